// Package scheduler drives turn deadlines: every tick it passes the turn on
// in games whose current player stayed silent and announces the next player.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"hangman_bot/internal/replies"
	"hangman_bot/internal/services"
)

type TurnExpirer interface {
	Restore(ctx context.Context) (int, error)
	ExpireDue(ctx context.Context) ([]services.TurnChange, error)
}

type Announcer interface {
	Send(ctx context.Context, channelID int64, text string) error
	DisplayName(ctx context.Context, userID int64) (string, error)
}

type Scheduler struct {
	games    TurnExpirer
	announce Announcer
	interval time.Duration
	log      *slog.Logger
}

func New(g TurnExpirer, a Announcer, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		games:    g,
		announce: a,
		interval: interval,
		log:      log,
	}
}

// Run restores pending deadlines and sweeps them every interval until ctx
// is done.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "scheduler.Run"

	n, err := s.games.Restore(ctx)
	if err != nil {
		s.log.Error("failed to restore turn deadlines",
			slog.String("operation", op),
			slog.String("error", err.Error()))
	} else {
		s.log.Info("turn deadlines restored", slog.Int("games", n))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass. Failures are logged; the failed games are
// retried on the next pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	const op = "scheduler.Sweep"

	changes, err := s.games.ExpireDue(ctx)
	if err != nil {
		s.log.Error("turn expiry failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
	}

	for _, c := range changes {
		s.log.Debug("turn expired",
			slog.Int64("channel", c.ChannelID),
			slog.Int64("game_id", c.GameID),
			slog.Int64("player", c.Player))

		if err := s.announce.Send(ctx, c.ChannelID, replies.Turn(s.name(ctx, c.Player))); err != nil {
			s.log.Error("failed to announce turn",
				slog.String("operation", op),
				slog.Int64("channel", c.ChannelID),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) name(ctx context.Context, userID int64) string {
	name, err := s.announce.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return "id" + strconv.FormatInt(userID, 10)
	}
	return name
}
