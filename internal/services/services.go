package services

import (
	"context"
	"errors"
	"time"

	"hangman_bot/internal/models"
)

var (
	ErrNoActiveGame    = errors.New("no active game in channel")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrGameNotStarted  = errors.New("game is not started yet")
	ErrAlreadyJoined   = errors.New("player already joined")
	ErrNoPlayers       = errors.New("no players joined")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNoWords         = errors.New("no unused words left")
	ErrNotSingleLetter = errors.New("guess must be a single letter")
	ErrLetterOpened    = errors.New("letter already opened")
	ErrWordExists      = errors.New("word already exists")
	ErrInvalidWordKey  = errors.New("invalid word key")
	ErrEmptyDesc       = errors.New("word description is empty")
)

// GameStorage is the persistence accessor the game engine runs against.
// Conditional updates return storage.ErrStale when the expected turn or
// status no longer matches the stored game.
type GameStorage interface {
	ActiveGame(ctx context.Context, channelID int64) (*models.Game, error)
	CreateGame(ctx context.Context, channelID int64) (*models.Game, error)
	// StartGame draws the unused word with the lowest id, marks it used and
	// starts the game. storage.ErrNotFound means no word is left.
	StartGame(ctx context.Context, gameID int64, start models.GameStart) (*models.Game, *models.Word, error)
	SaveHit(ctx context.Context, gameID int64, expect models.Turn, hit models.Hit) (*models.Game, error)
	AdvanceTurn(ctx context.Context, gameID int64, expect models.Turn, next int64, deadline time.Time) (*models.Game, error)
	EndGame(ctx context.Context, gameID int64, status models.GameStatus, endedAt time.Time) error
	GamesInProgress(ctx context.Context) ([]models.Game, error)

	PlayerByExternalID(ctx context.Context, externalID int64) (*models.Player, error)
	CreatePlayer(ctx context.Context, externalID int64) (*models.Player, error)
	AppendTurn(ctx context.Context, gameID int64, player models.Player) (models.TurnEntry, error)
	TurnOrder(ctx context.Context, gameID int64) ([]models.TurnEntry, error)

	Scores(ctx context.Context, gameID int64) ([]models.ScoreEntry, error)

	WordByID(ctx context.Context, id int64) (*models.Word, error)
}

type WordStorage interface {
	CreateWord(ctx context.Context, key, desc string) (*models.Word, error)
	WordByKey(ctx context.Context, key string) (*models.Word, error)
	ListWords(ctx context.Context) ([]models.Word, error)
}
