package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hangman_bot/internal/clients/vk"
	"hangman_bot/internal/clients/wiki"
	"hangman_bot/internal/config"
	"hangman_bot/internal/controllers"
	"hangman_bot/internal/poller"
	"hangman_bot/internal/routes"
	"hangman_bot/internal/scheduler"
	"hangman_bot/internal/services"
	"hangman_bot/internal/storage/mariadb"
	"hangman_bot/internal/storage/memory"

	ssogrpc "hangman_bot/internal/clients/sso/grpc"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

type store interface {
	services.GameStorage
	services.WordStorage
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting bot", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))

	storage, closeStorage, err := setupStorage(cfg, log)
	if err != nil {
		log.Error("failed to init storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStorage()

	log.Info("storage init")

	var describer services.Describer
	if cfg.Wiki.Enabled {
		describer = wiki.New(cfg.Wiki.BaseURL, cfg.Wiki.Timeout, log)
	}

	gameService := services.NewGameService(storage, log, cfg.Game)
	wordService := services.NewWordService(storage, describer, log)

	bot := vk.New(cfg.Bot, log)
	dispatcher := controllers.NewDispatcher(gameService, bot, cfg.Bot.Commands, cfg.Game, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sso routes.SSO
	if cfg.Clients.SSO.Address != "" {
		ssoClient, err := ssogrpc.New(
			ctx,
			log,
			cfg.Clients.SSO.Address,
			cfg.Clients.SSO.Timeout,
			cfg.Clients.SSO.RetriesCount,
			cfg.Clients.SSO.AppID,
		)
		if err != nil {
			log.Error("failed to create sso client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer ssoClient.Close()
		sso = ssoClient
	} else {
		log.Warn("sso address is empty, admin api runs without authentication")
	}

	r := routes.SetupRouter(log, wordService, sso)

	log.Info("routes init")

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var wg sync.WaitGroup
	serverErrors := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := poller.New(bot, dispatcher, cfg.Bot.RetryDelay, log).Run(ctx)
		log.Info("poller stopped", slog.String("reason", err.Error()))
	}()
	go func() {
		defer wg.Done()
		err := scheduler.New(gameService, bot, cfg.Game.CheckInterval, log).Run(ctx)
		log.Info("scheduler stopped", slog.String("reason", err.Error()))
	}()

	go func() {
		log.Info("starting admin server", slog.String("address", cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		log.Error("server error", slog.String("error", err.Error()))
		stop()
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown error", slog.String("error", err.Error()))
		if err := server.Close(); err != nil {
			log.Error("force shutdown error", slog.String("error", err.Error()))
		}
	}

	wg.Wait()
	log.Info("bot stopped")
}

func setupStorage(cfg *config.Config, log *slog.Logger) (store, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), func() {}, nil
	case config.StorageMariaDB:
		s, err := mariadb.New(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := s.Close(); err != nil {
				log.Error("failed to close database", slog.String("error", err.Error()))
			}
		}
		if err := s.Migrate(); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("migration: %w", err)
		}
		return s, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
