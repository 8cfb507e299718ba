package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"hangman_bot/internal/config"
	"hangman_bot/internal/models"
	"hangman_bot/internal/replies"
	"hangman_bot/internal/services"
)

const commandPrefix = "/"

type GameServicer interface {
	Join(ctx context.Context, channelID, externalID int64) (*services.JoinResult, error)
	Start(ctx context.Context, channelID int64) (*services.StartResult, error)
	Finish(ctx context.Context, channelID int64) (*services.Summary, error)
	GuessLetter(ctx context.Context, channelID, externalID int64, letter string) (*services.GuessResult, error)
	GuessWord(ctx context.Context, channelID, externalID int64, candidate string) (*services.GuessResult, error)
}

// Messenger delivers replies to a chat channel.
type Messenger interface {
	Send(ctx context.Context, channelID int64, text string) error
	DisplayName(ctx context.Context, userID int64) (string, error)
}

type Dispatcher struct {
	games     GameServicer
	messenger Messenger
	commands  config.Commands
	rules     config.Game
	log       *slog.Logger
}

func NewDispatcher(g GameServicer, m Messenger, commands config.Commands, rules config.Game, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		games:     g,
		messenger: m,
		commands:  commands,
		rules:     rules,
		log:       log,
	}
}

// Dispatch runs the command carried by msg and replies to its channel.
// Text without the command prefix is ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage) error {
	const op = "controllers.commands.Dispatch"

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, commandPrefix) {
		return nil
	}

	fields := strings.Fields(text)
	name, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch {
	case d.exact(text, d.commands.Join):
		err = d.join(ctx, msg)
	case d.exact(text, d.commands.Start):
		err = d.start(ctx, msg)
	case d.exact(text, d.commands.Finish):
		err = d.finish(ctx, msg)
	case name == strings.ToLower(d.commands.GuessLetter):
		err = d.guessLetter(ctx, msg, args)
	case name == strings.ToLower(d.commands.GuessWord):
		err = d.guessWord(ctx, msg, args)
	default:
		err = d.reply(ctx, msg.ChannelID, replies.Rules(d.commands))
	}

	if err == nil {
		return nil
	}

	if text, ok := d.userError(err); ok {
		if err := d.reply(ctx, msg.ChannelID, text); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	d.log.Error("command failed",
		slog.String("operation", op),
		slog.Int64("channel", msg.ChannelID),
		slog.String("command", name),
		slog.String("error", err.Error()))

	if sendErr := d.reply(ctx, msg.ChannelID, replies.Failure); sendErr != nil {
		d.log.Warn("failure reply not sent",
			slog.String("operation", op),
			slog.String("error", sendErr.Error()))
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (d *Dispatcher) join(ctx context.Context, msg models.InboundMessage) error {
	res, err := d.games.Join(ctx, msg.ChannelID, msg.SenderID)
	if err != nil {
		return err
	}

	joined := replies.Joined(d.name(ctx, msg.SenderID), res.Position)
	if res.Created {
		return d.reply(ctx, msg.ChannelID, joined, replies.BeforeStart(d.commands, d.rules.TurnDuration))
	}

	return d.reply(ctx, msg.ChannelID, joined)
}

func (d *Dispatcher) start(ctx context.Context, msg models.InboundMessage) error {
	res, err := d.games.Start(ctx, msg.ChannelID)
	if err != nil {
		return err
	}

	first := d.name(ctx, res.Game.CurrentTurn)

	return d.reply(ctx, msg.ChannelID, replies.Started(res.Game.Mask, res.Word.Description, first))
}

func (d *Dispatcher) finish(ctx context.Context, msg models.InboundMessage) error {
	summary, err := d.games.Finish(ctx, msg.ChannelID)
	if err != nil {
		return err
	}

	if summary.Game.Status == models.StatusCancelled {
		return d.reply(ctx, msg.ChannelID, replies.Cancelled)
	}

	return d.reply(ctx, msg.ChannelID, d.summary(ctx, summary)...)
}

func (d *Dispatcher) guessLetter(ctx context.Context, msg models.InboundMessage, args []string) error {
	switch {
	case len(args) == 0:
		return d.reply(ctx, msg.ChannelID, replies.MissingLetter)
	case len(args) > 1:
		return d.reply(ctx, msg.ChannelID, replies.OneLetter)
	}

	letter := args[0]
	res, err := d.games.GuessLetter(ctx, msg.ChannelID, msg.SenderID, letter)
	switch {
	case errors.Is(err, services.ErrNotSingleLetter):
		return d.reply(ctx, msg.ChannelID, replies.OneLetter)
	case errors.Is(err, services.ErrLetterOpened):
		return d.reply(ctx, msg.ChannelID, replies.LetterOpened(letter))
	case err != nil:
		return err
	}

	if !res.Hit {
		return d.reply(ctx, msg.ChannelID, replies.LetterMiss(letter), replies.Turn(d.name(ctx, res.NextTurn)))
	}

	texts := []string{replies.LetterHit(letter, res.Mask, res.Points)}
	if res.Summary != nil {
		texts = append(texts, d.summary(ctx, res.Summary)...)
	}

	return d.reply(ctx, msg.ChannelID, texts...)
}

func (d *Dispatcher) guessWord(ctx context.Context, msg models.InboundMessage, args []string) error {
	switch {
	case len(args) == 0:
		return d.reply(ctx, msg.ChannelID, replies.MissingWord)
	case len(args) > 1:
		return d.reply(ctx, msg.ChannelID, replies.OneWord)
	}

	word := args[0]
	res, err := d.games.GuessWord(ctx, msg.ChannelID, msg.SenderID, word)
	if err != nil {
		return err
	}

	if !res.Hit {
		return d.reply(ctx, msg.ChannelID, replies.WordMiss(word), replies.Turn(d.name(ctx, res.NextTurn)))
	}

	texts := []string{replies.WordHit(word, res.Points)}
	if res.Summary != nil {
		texts = append(texts, d.summary(ctx, res.Summary)...)
	}

	return d.reply(ctx, msg.ChannelID, texts...)
}

// summary renders a finished game as the end notice, the results and the winner.
func (d *Dispatcher) summary(ctx context.Context, s *services.Summary) []string {
	standings := make([]replies.Standing, 0, len(s.Standings))
	for _, st := range s.Standings {
		standings = append(standings, replies.Standing{
			Name:   d.name(ctx, st.ExternalID),
			Points: st.Points,
		})
	}

	texts := []string{replies.Finished, replies.Results(standings)}
	if s.Winner != nil {
		texts = append(texts, replies.Winner(standings[0].Name))
	}

	return texts
}

func (d *Dispatcher) userError(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrNoActiveGame):
		return replies.NoGame(d.commands), true
	case errors.Is(err, services.ErrAlreadyStarted):
		return replies.AlreadyStarted, true
	case errors.Is(err, services.ErrGameNotStarted):
		return replies.NotStarted, true
	case errors.Is(err, services.ErrAlreadyJoined):
		return replies.AlreadyJoined, true
	case errors.Is(err, services.ErrNoPlayers):
		return replies.NoPlayers, true
	case errors.Is(err, services.ErrNotYourTurn):
		return replies.NotYourTurn, true
	case errors.Is(err, services.ErrNoWords):
		return replies.NoWords, true
	}
	return "", false
}

// name resolves a player's display name, falling back to the VK id form.
func (d *Dispatcher) name(ctx context.Context, userID int64) string {
	name, err := d.messenger.DisplayName(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			d.log.Warn("display name lookup failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()))
		}
		return "id" + strconv.FormatInt(userID, 10)
	}
	return name
}

func (d *Dispatcher) reply(ctx context.Context, channelID int64, texts ...string) error {
	for _, text := range texts {
		if err := d.messenger.Send(ctx, channelID, text); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) exact(text, command string) bool {
	return strings.EqualFold(text, command)
}
