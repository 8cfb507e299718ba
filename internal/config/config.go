package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageMariaDB = "mariadb"
	StorageMemory  = "memory"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-required:"true"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"mariadb"`
	Database   `yaml:"database"`
	HTTPServer `yaml:"http_server"`
	Bot        Bot           `yaml:"bot"`
	Game       Game          `yaml:"game"`
	Wiki       Wiki          `yaml:"wiki"`
	Clients    ClientsConfig `yaml:"clients"`
}

type Database struct {
	Host       string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"PORT" env-default:"3306"`
	UsernameDB string `yaml:"username-db" env:"USERNAMEDB"`
	Password   string `yaml:"password" env:"PASSWORD"`
	DBName     string `yaml:"dbname" env:"DBNAME" env-default:"hangman"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Bot holds the VK community credentials and the chat command vocabulary.
type Bot struct {
	Token      string        `yaml:"token" env:"BOT_TOKEN" env-required:"true"`
	GroupID    int64         `yaml:"group_id" env:"BOT_GROUP_ID" env-required:"true"`
	APIURL     string        `yaml:"api_url" env:"BOT_API_URL" env-default:"https://api.vk.com/method/"`
	APIVersion string        `yaml:"api_version" env-default:"5.131"`
	Wait       time.Duration `yaml:"wait" env-default:"25s"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
	Commands   Commands      `yaml:"commands"`
}

type Commands struct {
	Join        string `yaml:"join" env-default:"/играть"`
	Start       string `yaml:"start" env-default:"/начать"`
	Finish      string `yaml:"finish" env-default:"/завершить"`
	GuessLetter string `yaml:"guess_letter" env-default:"/буква"`
	GuessWord   string `yaml:"guess_word" env-default:"/слово"`
}

type Game struct {
	TurnDuration  time.Duration `yaml:"turn_duration" env-default:"30s"`
	CheckInterval time.Duration `yaml:"check_interval" env-default:"5s"`
	LetterPoints  int           `yaml:"letter_points" env-default:"50"`
	WordPoints    int           `yaml:"word_points" env-default:"200"`
}

type Wiki struct {
	BaseURL string        `yaml:"base_url" env-default:"https://ru.wikipedia.org"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
	Enabled bool          `yaml:"enabled" env-default:"false"`
}

type Client struct {
	Address      string        `yaml:"address"`
	Timeout      time.Duration `yaml:"timeout" env-default:"5s"`
	RetriesCount int           `yaml:"retries_count" env-default:"3"`
	AppID        int32         `yaml:"app_id"`
}

type ClientsConfig struct {
	SSO Client `yaml:"sso"`
}

func MustLoad() *Config {
	configPath := flag.String("config", "", "path to config yaml file")
	flag.Parse()
	if *configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", *configPath)
	}

	// secrets may live in a local .env next to the binary
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot read .env: %s", err)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(*configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s - %s", *configPath, err)
	}

	return &cfg
}

func (cfg *Database) GetDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.UsernameDB,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)
}
