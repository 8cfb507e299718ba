package mariadb

import (
	"time"

	"hangman_bot/internal/models"
)

var activeStatuses = []string{string(models.StatusPreparing), string(models.StatusStarted)}

type gameRow struct {
	ID        int64      `gorm:"primaryKey"`
	StartTime *time.Time `gorm:"type:datetime(3)"`
	EndTime   *time.Time `gorm:"type:datetime(3)"`
	Status    string     `gorm:"type:varchar(20);not null;index:idx_games_peer_status"`
	PeerID    int64      `gorm:"not null;index:idx_games_peer_status"`
	WordID    *int64
	Word      *wordRow   `gorm:"foreignKey:WordID;constraint:OnDelete:CASCADE"`
	WordState string     `gorm:"type:varchar(255)"`
	WhosStep  int64
	TurnSeq   int64      `gorm:"not null;default:0"`
	Deadline  *time.Time `gorm:"type:datetime(3)"`
}

func (gameRow) TableName() string { return "games" }

type userRow struct {
	ID   int64 `gorm:"primaryKey"`
	VkID int64 `gorm:"not null;uniqueIndex"`
}

func (userRow) TableName() string { return "users" }

type stepOrderRow struct {
	ID         int64    `gorm:"primaryKey"`
	UserID     int64    `gorm:"not null;uniqueIndex:idx_step_orders_game_user"`
	GameID     int64    `gorm:"not null;uniqueIndex:idx_step_orders_game_user;uniqueIndex:idx_step_orders_game_step"`
	StepNumber int      `gorm:"not null;uniqueIndex:idx_step_orders_game_step"`
	User       *userRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Game       *gameRow `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

func (stepOrderRow) TableName() string { return "step_orders" }

type scoreRow struct {
	ID     int64    `gorm:"primaryKey"`
	UserID int64    `gorm:"not null;index"`
	GameID int64    `gorm:"not null;index"`
	Score  int      `gorm:"not null;default:0"`
	User   *userRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Game   *gameRow `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

func (scoreRow) TableName() string { return "scores" }

type wordRow struct {
	ID          int64  `gorm:"primaryKey"`
	WordKey     string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string `gorm:"type:text;not null"`
	IsUsed      bool   `gorm:"not null;default:false;index"`
}

func (wordRow) TableName() string { return "words" }

// turnEntryRow is the step_orders ⋈ users projection used for turn order reads.
type turnEntryRow struct {
	GameID     int64
	UserID     int64
	VkID       int64
	StepNumber int
}

func (r *gameRow) toModel() *models.Game {
	g := &models.Game{
		ID:          r.ID,
		ChannelID:   r.PeerID,
		Status:      models.GameStatus(r.Status),
		CurrentTurn: r.WhosStep,
		TurnSeq:     r.TurnSeq,
		Deadline:    r.Deadline,
		StartedAt:   r.StartTime,
		EndedAt:     r.EndTime,
	}
	if r.WordID != nil {
		g.WordID = *r.WordID
	}
	if r.WordState != "" {
		g.Mask = []rune(r.WordState)
	}
	return g
}

func (r *userRow) toModel() *models.Player {
	return &models.Player{ID: r.ID, ExternalID: r.VkID}
}

func (r turnEntryRow) toModel() models.TurnEntry {
	return models.TurnEntry{
		GameID:     r.GameID,
		PlayerID:   r.UserID,
		ExternalID: r.VkID,
		Position:   r.StepNumber,
	}
}

func (r scoreRow) toModel() models.ScoreEntry {
	return models.ScoreEntry{GameID: r.GameID, PlayerID: r.UserID, Points: r.Score}
}

func (r *wordRow) toModel() *models.Word {
	return &models.Word{
		ID:          r.ID,
		Key:         r.WordKey,
		Description: r.Description,
		Used:        r.IsUsed,
	}
}
