// Package poller runs the ingestion loop between the messaging gateway and
// the command dispatcher.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hangman_bot/internal/models"

	"github.com/google/uuid"
)

type Receiver interface {
	Receive(ctx context.Context) ([]models.InboundMessage, error)
}

type Handler interface {
	Dispatch(ctx context.Context, msg models.InboundMessage) error
}

var ErrReceive = errors.New("failed to receive messages")

type Poller struct {
	source     Receiver
	handler    Handler
	retryDelay time.Duration
	log        *slog.Logger
}

func New(source Receiver, handler Handler, retryDelay time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		source:     source,
		handler:    handler,
		retryDelay: retryDelay,
		log:        log,
	}
}

// Run polls until ctx is done. A failed receive is retried after the retry
// delay; a failed dispatch is logged and polling goes on.
func (p *Poller) Run(ctx context.Context) error {
	const op = "poller.Run"

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.Poll(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}

		p.log.Error("poll cycle failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))

		if errors.Is(err, ErrReceive) {
			select {
			case <-ctx.Done():
			case <-time.After(p.retryDelay):
			}
		}
	}
}

// Poll receives one batch and dispatches only its most recent message.
// Dispatch completes before Poll returns.
func (p *Poller) Poll(ctx context.Context) error {
	const op = "poller.Poll"

	batch, err := p.source.Receive(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrReceive, err)
	}
	if len(batch) == 0 {
		return nil
	}

	msg := batch[len(batch)-1]
	log := p.log.With(slog.String("cycle_id", uuid.NewString()))

	log.Debug("batch received",
		slog.Int("size", len(batch)),
		slog.Int64("channel", msg.ChannelID),
		slog.Int64("sender", msg.SenderID))

	if err := p.handler.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
