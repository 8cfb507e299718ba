package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hangman_bot/internal/config"
	"hangman_bot/internal/models"
	"hangman_bot/internal/puzzle"
	"hangman_bot/internal/storage"
)

type JoinResult struct {
	Game     *models.Game
	Created  bool
	Position int
}

type StartResult struct {
	Game *models.Game
	Word models.Word
}

// Summary describes a game that reached a terminal status.
type Summary struct {
	Game      *models.Game
	Standings []Standing
	Winner    *Standing
}

type GuessResult struct {
	Game   *models.Game
	Hit    bool
	Mask   []rune
	Points int
	// NextTurn is the external id of the player the turn passed to on a miss.
	NextTurn int64
	// Summary is set when the guess finished the game.
	Summary *Summary
}

// TurnChange is a turn the scheduler took away from an idle player.
type TurnChange struct {
	GameID    int64
	ChannelID int64
	Player    int64
	Deadline  time.Time
}

type GameService struct {
	storage GameStorage
	log     *slog.Logger
	rules   config.Game
	turns   *turnQueue
	locks   channelLocks
	now     func() time.Time
}

func NewGameService(s GameStorage, log *slog.Logger, rules config.Game) *GameService {
	return &GameService{
		storage: s,
		log:     log,
		rules:   rules,
		turns:   newTurnQueue(),
		now:     time.Now,
	}
}

func (s *GameService) Join(ctx context.Context, channelID, externalID int64) (*JoinResult, error) {
	const op = "services.games.Join"

	unlock := s.locks.lock(channelID)
	defer unlock()

	created := false
	game, err := s.storage.ActiveGame(ctx, channelID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		game, err = s.storage.CreateGame(ctx, channelID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case game.Status != models.StatusPreparing:
		return nil, ErrAlreadyStarted
	}

	player, err := s.player(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry, err := s.storage.AppendTurn(ctx, game.ID, *player)
	if errors.Is(err, storage.ErrExists) {
		return nil, ErrAlreadyJoined
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &JoinResult{Game: game, Created: created, Position: entry.Position}, nil
}

func (s *GameService) Start(ctx context.Context, channelID int64) (*StartResult, error) {
	const op = "services.games.Start"

	unlock := s.locks.lock(channelID)
	defer unlock()

	game, err := s.active(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.StatusPreparing {
		return nil, ErrAlreadyStarted
	}

	order, err := s.storage.TurnOrder(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(order) == 0 {
		return nil, ErrNoPlayers
	}

	now := s.now()
	started, word, err := s.storage.StartGame(ctx, game.ID, models.GameStart{
		FirstTurn: order[0].ExternalID,
		Deadline:  now.Add(s.rules.TurnDuration),
		StartedAt: now,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrNoWords
	case errors.Is(err, storage.ErrStale):
		return nil, ErrAlreadyStarted
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.turns.watch(started)

	s.log.Debug("game started",
		slog.Int64("channel", channelID),
		slog.Int64("game_id", started.ID),
		slog.Int64("word_id", word.ID))

	return &StartResult{Game: started, Word: *word}, nil
}

// Finish ends the channel's game on request. A started game is finished
// with results, a preparing one is cancelled.
func (s *GameService) Finish(ctx context.Context, channelID int64) (*Summary, error) {
	const op = "services.games.Finish"

	unlock := s.locks.lock(channelID)
	defer unlock()

	game, err := s.active(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if game.Status == models.StatusPreparing {
		if err := s.end(ctx, game, models.StatusCancelled); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Summary{Game: game}, nil
	}

	summary, err := s.finish(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return summary, nil
}

func (s *GameService) GuessLetter(ctx context.Context, channelID, externalID int64, letter string) (*GuessResult, error) {
	const op = "services.games.GuessLetter"

	symbols := []rune(letter)
	if len(symbols) != 1 {
		return nil, ErrNotSingleLetter
	}

	unlock := s.locks.lock(channelID)
	defer unlock()

	game, err := s.playing(ctx, channelID, externalID)
	if err != nil {
		return nil, err
	}

	word, err := s.storage.WordByID(ctx, game.WordID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mask, outcome, err := puzzle.GuessLetter(word.Key, game.Mask, symbols[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch outcome {
	case puzzle.AlreadyOpen:
		return nil, ErrLetterOpened
	case puzzle.Miss:
		return s.miss(ctx, game)
	}

	res, err := s.hit(ctx, game, externalID, mask, s.rules.LetterPoints)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *GameService) GuessWord(ctx context.Context, channelID, externalID int64, candidate string) (*GuessResult, error) {
	const op = "services.games.GuessWord"

	unlock := s.locks.lock(channelID)
	defer unlock()

	game, err := s.playing(ctx, channelID, externalID)
	if err != nil {
		return nil, err
	}

	word, err := s.storage.WordByID(ctx, game.WordID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !puzzle.GuessWord(word.Key, candidate) {
		return s.miss(ctx, game)
	}

	res, err := s.hit(ctx, game, externalID, puzzle.Reveal(word.Key), s.rules.WordPoints)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Restore watches every started game, so turns keep expiring after a restart.
func (s *GameService) Restore(ctx context.Context) (int, error) {
	const op = "services.games.Restore"

	games, err := s.storage.GamesInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for i := range games {
		s.turns.watch(&games[i])
	}

	return len(games), nil
}

// ExpireDue passes the turn on in every game whose current player let the
// deadline elapse. Failed games stay queued and are retried on the next call.
func (s *GameService) ExpireDue(ctx context.Context) ([]TurnChange, error) {
	now := s.now()

	var (
		changes []TurnChange
		errs    []error
	)
	for _, w := range s.turns.due(now) {
		change, err := s.expire(ctx, w, now)
		if err != nil {
			s.turns.retry(w)
			errs = append(errs, err)
			continue
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}

	return changes, errors.Join(errs...)
}

// Watched reports how many games currently have a pending deadline.
func (s *GameService) Watched() int {
	return s.turns.size()
}

func (s *GameService) expire(ctx context.Context, w turnWatch, now time.Time) (*TurnChange, error) {
	const op = "services.games.expire"

	unlock := s.locks.lock(w.channelID)
	defer unlock()

	if !s.turns.watching(w.gameID, w.seq) {
		return nil, nil
	}

	game, err := s.storage.ActiveGame(ctx, w.channelID)
	if errors.Is(err, storage.ErrNotFound) {
		s.turns.unwatch(w.gameID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if game.ID != w.gameID || game.Status != models.StatusStarted || game.Deadline == nil {
		s.turns.unwatch(w.gameID)
		return nil, nil
	}
	// The turn moved without a watch of its own.
	if game.TurnSeq != w.seq || game.Deadline.After(now) {
		s.turns.watch(game)
		return nil, nil
	}

	next, err := s.advance(ctx, game, now)
	if errors.Is(err, storage.ErrStale) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TurnChange{
		GameID:    next.ID,
		ChannelID: next.ChannelID,
		Player:    next.CurrentTurn,
		Deadline:  *next.Deadline,
	}, nil
}

func (s *GameService) miss(ctx context.Context, game *models.Game) (*GuessResult, error) {
	const op = "services.games.miss"

	next, err := s.advance(ctx, game, s.now())
	if errors.Is(err, storage.ErrStale) {
		return nil, ErrNotYourTurn
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &GuessResult{Game: next, Mask: game.Mask, NextTurn: next.CurrentTurn}, nil
}

// hit stores the revealed mask and the score entry in one write. A solving
// hit ends the game in the same write, so results are read before it.
func (s *GameService) hit(ctx context.Context, game *models.Game, externalID int64, mask []rune, points int) (*GuessResult, error) {
	player, err := s.storage.PlayerByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	h := models.Hit{
		Mask:     mask,
		Deadline: now.Add(s.rules.TurnDuration),
		Score:    models.ScoreEntry{GameID: game.ID, PlayerID: player.ID, Points: points},
	}

	solved := puzzle.Solved(mask)
	var (
		scores []models.ScoreEntry
		order  []models.TurnEntry
	)
	if solved {
		if scores, order, err = s.results(ctx, game.ID); err != nil {
			return nil, err
		}
		h.EndedAt = &now
	}

	updated, err := s.storage.SaveHit(ctx, game.ID, game.Turn(), h)
	if errors.Is(err, storage.ErrStale) {
		return nil, ErrNotYourTurn
	}
	if err != nil {
		return nil, err
	}

	res := &GuessResult{Game: updated, Hit: true, Mask: mask, Points: points}
	if !solved {
		s.turns.watch(updated)
		return res, nil
	}

	s.turns.unwatch(game.ID)
	res.Summary = summarize(updated, append(scores, h.Score), order)

	return res, nil
}

// advance hands the turn to the next player in turn order, wrapping after
// the last position.
func (s *GameService) advance(ctx context.Context, game *models.Game, now time.Time) (*models.Game, error) {
	order, err := s.storage.TurnOrder(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, ErrNoPlayers
	}

	next, err := s.storage.AdvanceTurn(ctx, game.ID, game.Turn(), NextTurn(order, game.CurrentTurn), now.Add(s.rules.TurnDuration))
	if err != nil {
		return nil, err
	}

	s.turns.watch(next)

	return next, nil
}

func (s *GameService) finish(ctx context.Context, game *models.Game) (*Summary, error) {
	scores, order, err := s.results(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	if err := s.end(ctx, game, models.StatusFinished); err != nil {
		return nil, err
	}

	return summarize(game, scores, order), nil
}

func (s *GameService) results(ctx context.Context, gameID int64) ([]models.ScoreEntry, []models.TurnEntry, error) {
	scores, err := s.storage.Scores(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.storage.TurnOrder(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	return scores, order, nil
}

func summarize(game *models.Game, scores []models.ScoreEntry, order []models.TurnEntry) *Summary {
	summary := &Summary{Game: game, Standings: Leaderboard(scores, order)}
	if w, ok := Winner(summary.Standings); ok {
		summary.Winner = &w
	}
	return summary
}

// end records the terminal status and drops the game's deadline watch while
// the channel lock is still held, so no expiry can follow it.
func (s *GameService) end(ctx context.Context, game *models.Game, status models.GameStatus) error {
	now := s.now()
	if err := s.storage.EndGame(ctx, game.ID, status, now); err != nil {
		return err
	}

	s.turns.unwatch(game.ID)

	game.Status = status
	game.EndedAt = &now
	game.Deadline = nil

	return nil
}

func (s *GameService) active(ctx context.Context, channelID int64) (*models.Game, error) {
	const op = "services.games.active"

	game, err := s.storage.ActiveGame(ctx, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveGame
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

func (s *GameService) playing(ctx context.Context, channelID, externalID int64) (*models.Game, error) {
	game, err := s.active(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.StatusStarted {
		return nil, ErrGameNotStarted
	}
	if game.CurrentTurn != externalID {
		return nil, ErrNotYourTurn
	}

	return game, nil
}

func (s *GameService) player(ctx context.Context, externalID int64) (*models.Player, error) {
	p, err := s.storage.PlayerByExternalID(ctx, externalID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	p, err = s.storage.CreatePlayer(ctx, externalID)
	if errors.Is(err, storage.ErrExists) {
		return s.storage.PlayerByExternalID(ctx, externalID)
	}

	return p, err
}

// NextTurn returns the external id following current in turn order.
// An unknown current player yields the first position.
func NextTurn(order []models.TurnEntry, current int64) int64 {
	for i, t := range order {
		if t.ExternalID == current {
			return order[(i+1)%len(order)].ExternalID
		}
	}
	return order[0].ExternalID
}
