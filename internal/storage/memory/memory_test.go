package memory

import (
	"context"
	"testing"
	"time"

	"hangman_bot/internal/models"
	"hangman_bot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_OneActiveGamePerChannel(t *testing.T) {
	s := New()
	ctx := context.Background()

	g, err := s.CreateGame(ctx, 1)
	require.NoError(t, err)

	_, err = s.CreateGame(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrExists)

	_, err = s.CreateGame(ctx, 2)
	assert.NoError(t, err)

	require.NoError(t, s.EndGame(ctx, g.ID, models.StatusCancelled, time.Now()))
	_, err = s.ActiveGame(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	next, err := s.CreateGame(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, g.ID, next.ID)
}

func TestStorage_AppendTurn(t *testing.T) {
	s := New()
	ctx := context.Background()

	g, _ := s.CreateGame(ctx, 1)
	p1, _ := s.CreatePlayer(ctx, 11)
	p2, _ := s.CreatePlayer(ctx, 12)

	e1, err := s.AppendTurn(ctx, g.ID, *p1)
	require.NoError(t, err)
	e2, err := s.AppendTurn(ctx, g.ID, *p2)
	require.NoError(t, err)

	assert.Equal(t, 1, e1.Position)
	assert.Equal(t, 2, e2.Position)

	_, err = s.AppendTurn(ctx, g.ID, *p1)
	assert.ErrorIs(t, err, storage.ErrExists)

	order, err := s.TurnOrder(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.TurnEntry{e1, e2}, order)
}

func TestStorage_StartGameDrawsWord(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	first, _ := s.CreateGame(ctx, 1)
	_, _, err := s.StartGame(ctx, first.ID, models.GameStart{FirstTurn: 11, Deadline: now})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	again, err := s.ActiveGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, again.Status)

	_, _ = s.CreateWord(ctx, "apple", "fruit")
	_, _ = s.CreateWord(ctx, "pear", "fruit too")

	started, w, err := s.StartGame(ctx, first.ID, models.GameStart{FirstTurn: 11, Deadline: now, StartedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "apple", w.Key)
	assert.True(t, w.Used)
	assert.Equal(t, w.ID, started.WordID)
	assert.Equal(t, "*****", string(started.Mask))
	assert.Equal(t, models.StatusStarted, started.Status)

	stored, err := s.WordByKey(ctx, "apple")
	require.NoError(t, err)
	assert.True(t, stored.Used)

	second, _ := s.CreateGame(ctx, 2)
	_, w, err = s.StartGame(ctx, second.ID, models.GameStart{FirstTurn: 11, Deadline: now})
	require.NoError(t, err)
	assert.Equal(t, "pear", w.Key)

	third, _ := s.CreateGame(ctx, 3)
	_, _, err = s.StartGame(ctx, third.ID, models.GameStart{FirstTurn: 11, Deadline: now})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_StartGameTwiceKeepsWords(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _ = s.CreateWord(ctx, "apple", "fruit")
	_, _ = s.CreateWord(ctx, "pear", "fruit too")

	g, _ := s.CreateGame(ctx, 1)
	_, _, err := s.StartGame(ctx, g.ID, models.GameStart{FirstTurn: 11, Deadline: time.Now()})
	require.NoError(t, err)

	_, _, err = s.StartGame(ctx, g.ID, models.GameStart{FirstTurn: 11, Deadline: time.Now()})
	assert.ErrorIs(t, err, storage.ErrStale)

	pear, err := s.WordByKey(ctx, "pear")
	require.NoError(t, err)
	assert.False(t, pear.Used)
}

func TestStorage_ConditionalTurnUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, _ = s.CreateWord(ctx, "apple", "fruit")
	g, _ := s.CreateGame(ctx, 1)
	started, _, err := s.StartGame(ctx, g.ID, models.GameStart{FirstTurn: 11, Deadline: now, StartedAt: now})
	require.NoError(t, err)

	expect := started.Turn()
	advanced, err := s.AdvanceTurn(ctx, g.ID, expect, 12, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(12), advanced.CurrentTurn)
	assert.Equal(t, expect.Seq+1, advanced.TurnSeq)

	_, err = s.AdvanceTurn(ctx, g.ID, expect, 12, now.Add(time.Second))
	assert.ErrorIs(t, err, storage.ErrStale)

	_, err = s.SaveHit(ctx, g.ID, expect, models.Hit{Mask: []rune("a****"), Deadline: now})
	assert.ErrorIs(t, err, storage.ErrStale)

	scores, err := s.Scores(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	require.NoError(t, s.EndGame(ctx, g.ID, models.StatusFinished, now))
	_, err = s.AdvanceTurn(ctx, g.ID, advanced.Turn(), 11, now)
	assert.ErrorIs(t, err, storage.ErrStale)
	assert.ErrorIs(t, s.EndGame(ctx, g.ID, models.StatusFinished, now), storage.ErrStale)
}

func TestStorage_SaveHit(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, _ = s.CreateWord(ctx, "apple", "fruit")
	g, _ := s.CreateGame(ctx, 1)
	started, _, err := s.StartGame(ctx, g.ID, models.GameStart{FirstTurn: 11, Deadline: now, StartedAt: now})
	require.NoError(t, err)

	hit := models.Hit{
		Mask:     []rune("*pp**"),
		Deadline: now.Add(time.Minute),
		Score:    models.ScoreEntry{GameID: g.ID, PlayerID: 1, Points: 100},
	}
	saved, err := s.SaveHit(ctx, g.ID, started.Turn(), hit)
	require.NoError(t, err)
	assert.Equal(t, "*pp**", string(saved.Mask))
	assert.Equal(t, started.TurnSeq+1, saved.TurnSeq)
	assert.Equal(t, int64(11), saved.CurrentTurn)
	require.NotNil(t, saved.Deadline)
	assert.True(t, saved.Deadline.Equal(hit.Deadline))

	end := now.Add(2 * time.Minute)
	final := models.Hit{
		Mask:     []rune("apple"),
		Deadline: end,
		Score:    models.ScoreEntry{GameID: g.ID, PlayerID: 1, Points: 150},
		EndedAt:  &end,
	}
	saved, err = s.SaveHit(ctx, g.ID, saved.Turn(), final)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, saved.Status)
	assert.Nil(t, saved.Deadline)
	require.NotNil(t, saved.EndedAt)

	scores, err := s.Scores(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ScoreEntry{hit.Score, final.Score}, scores)

	_, err = s.ActiveGame(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _ = s.CreateWord(ctx, "cat", "pet")
	g, _ := s.CreateGame(ctx, 1)
	started, _, err := s.StartGame(ctx, g.ID, models.GameStart{FirstTurn: 11, Deadline: time.Now()})
	require.NoError(t, err)
	started.Mask[0] = 'x'

	again, err := s.ActiveGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "***", string(again.Mask))
}
