// Package memory is an in-process implementation of the game storage.
// It is used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hangman_bot/internal/models"
	"hangman_bot/internal/puzzle"
	"hangman_bot/internal/storage"
)

// Storage keeps every table in maps guarded by a single lock.
type Storage struct {
	mu sync.RWMutex

	games   map[int64]*models.Game
	players map[int64]*models.Player
	turns   map[int64][]models.TurnEntry
	scores  []models.ScoreEntry
	words   map[int64]*models.Word

	lastGameID   int64
	lastPlayerID int64
	lastWordID   int64
}

func New() *Storage {
	return &Storage{
		games:   make(map[int64]*models.Game),
		players: make(map[int64]*models.Player),
		turns:   make(map[int64][]models.TurnEntry),
		words:   make(map[int64]*models.Word),
	}
}

func (s *Storage) ActiveGame(_ context.Context, channelID int64) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g := s.activeGame(channelID); g != nil {
		return cloneGame(g), nil
	}
	return nil, storage.ErrNotFound
}

func (s *Storage) CreateGame(_ context.Context, channelID int64) (*models.Game, error) {
	const op = "storage.memory.CreateGame"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeGame(channelID) != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrExists)
	}

	s.lastGameID++
	g := &models.Game{
		ID:        s.lastGameID,
		ChannelID: channelID,
		Status:    models.StatusPreparing,
	}
	s.games[g.ID] = g

	return cloneGame(g), nil
}

func (s *Storage) StartGame(_ context.Context, gameID int64, start models.GameStart) (*models.Game, *models.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok || g.Status != models.StatusPreparing {
		return nil, nil, storage.ErrStale
	}

	var word *models.Word
	for _, w := range s.words {
		if !w.Used && (word == nil || w.ID < word.ID) {
			word = w
		}
	}
	if word == nil {
		return nil, nil, storage.ErrNotFound
	}

	word.Used = true
	g.Status = models.StatusStarted
	g.WordID = word.ID
	g.Mask = puzzle.NewMask(word.Key)
	g.CurrentTurn = start.FirstTurn
	g.TurnSeq++
	g.Deadline = timePtr(start.Deadline)
	g.StartedAt = timePtr(start.StartedAt)

	cp := *word
	return cloneGame(g), &cp, nil
}

// SaveHit applies a successful guess and appends its score entry.
func (s *Storage) SaveHit(_ context.Context, gameID int64, expect models.Turn, hit models.Hit) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.startedAt(gameID, expect)
	if err != nil {
		return nil, err
	}

	g.Mask = cloneMask(hit.Mask)
	g.TurnSeq++
	g.Deadline = timePtr(hit.Deadline)
	if hit.EndedAt != nil {
		g.Status = models.StatusFinished
		g.EndedAt = timePtr(*hit.EndedAt)
		g.Deadline = nil
	}
	s.scores = append(s.scores, hit.Score)

	return cloneGame(g), nil
}

func (s *Storage) AdvanceTurn(_ context.Context, gameID int64, expect models.Turn, next int64, deadline time.Time) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.startedAt(gameID, expect)
	if err != nil {
		return nil, err
	}

	g.CurrentTurn = next
	g.TurnSeq++
	g.Deadline = timePtr(deadline)

	return cloneGame(g), nil
}

func (s *Storage) EndGame(_ context.Context, gameID int64, status models.GameStatus, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok || !g.Status.Active() {
		return storage.ErrStale
	}

	g.Status = status
	g.EndedAt = timePtr(endedAt)
	g.Deadline = nil

	return nil
}

func (s *Storage) GamesInProgress(_ context.Context) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Game
	for _, g := range s.games {
		if g.Status == models.StatusStarted {
			out = append(out, *cloneGame(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) PlayerByExternalID(_ context.Context, externalID int64) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Storage) CreatePlayer(_ context.Context, externalID int64) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		if p.ExternalID == externalID {
			return nil, storage.ErrExists
		}
	}

	s.lastPlayerID++
	p := &models.Player{ID: s.lastPlayerID, ExternalID: externalID}
	s.players[p.ID] = p

	cp := *p
	return &cp, nil
}

func (s *Storage) AppendTurn(_ context.Context, gameID int64, player models.Player) (models.TurnEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.turns[gameID]
	for _, t := range order {
		if t.PlayerID == player.ID {
			return models.TurnEntry{}, storage.ErrExists
		}
	}

	entry := models.TurnEntry{
		GameID:     gameID,
		PlayerID:   player.ID,
		ExternalID: player.ExternalID,
		Position:   len(order) + 1,
	}
	s.turns[gameID] = append(order, entry)

	return entry, nil
}

func (s *Storage) TurnOrder(_ context.Context, gameID int64) ([]models.TurnEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]models.TurnEntry, len(s.turns[gameID]))
	copy(order, s.turns[gameID])

	return order, nil
}

func (s *Storage) Scores(_ context.Context, gameID int64) ([]models.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScoreEntry
	for _, e := range s.scores {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Storage) WordByID(_ context.Context, id int64) (*models.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.words[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Storage) CreateWord(_ context.Context, key, desc string) (*models.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.words {
		if w.Key == key {
			return nil, storage.ErrExists
		}
	}

	s.lastWordID++
	w := &models.Word{ID: s.lastWordID, Key: key, Description: desc}
	s.words[w.ID] = w

	cp := *w
	return &cp, nil
}

func (s *Storage) WordByKey(_ context.Context, key string) (*models.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.words {
		if w.Key == key {
			cp := *w
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Storage) ListWords(_ context.Context) ([]models.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Word, 0, len(s.words))
	for _, w := range s.words {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) activeGame(channelID int64) *models.Game {
	for _, g := range s.games {
		if g.ChannelID == channelID && g.Status.Active() {
			return g
		}
	}
	return nil
}

func (s *Storage) startedAt(gameID int64, expect models.Turn) (*models.Game, error) {
	g, ok := s.games[gameID]
	if !ok || g.Status != models.StatusStarted || g.Turn() != expect {
		return nil, storage.ErrStale
	}
	return g, nil
}

func cloneGame(g *models.Game) *models.Game {
	cp := *g
	cp.Mask = cloneMask(g.Mask)
	if g.Deadline != nil {
		cp.Deadline = timePtr(*g.Deadline)
	}
	if g.StartedAt != nil {
		cp.StartedAt = timePtr(*g.StartedAt)
	}
	if g.EndedAt != nil {
		cp.EndedAt = timePtr(*g.EndedAt)
	}
	return &cp
}

func cloneMask(m []rune) []rune {
	if m == nil {
		return nil
	}
	out := make([]rune, len(m))
	copy(out, m)
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}
