package models

import "time"

type GameStatus string

const (
	StatusPreparing GameStatus = "preparing"
	StatusStarted   GameStatus = "started"
	StatusFinished  GameStatus = "finished"
	StatusCancelled GameStatus = "cancelled"
)

// Active reports whether the game still occupies its channel.
func (s GameStatus) Active() bool {
	return s == StatusPreparing || s == StatusStarted
}

type Game struct {
	ID          int64
	ChannelID   int64
	Status      GameStatus
	WordID      int64
	Mask        []rune
	CurrentTurn int64
	TurnSeq     int64
	Deadline    *time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time
}

// Turn identifies whose turn it is. Storage applies turn changes only
// when the stored turn still equals the expected one.
type Turn struct {
	Player int64
	Seq    int64
}

func (g *Game) Turn() Turn {
	return Turn{Player: g.CurrentTurn, Seq: g.TurnSeq}
}

// GameStart carries the fields written when a preparing game starts.
// Storage draws the word in the same write.
type GameStart struct {
	FirstTurn int64
	Deadline  time.Time
	StartedAt time.Time
}

// Hit is a successful guess. Storage saves the mask, the score entry and,
// when EndedAt is set, the end of the game in one write.
type Hit struct {
	Mask     []rune
	Deadline time.Time
	Score    ScoreEntry
	EndedAt  *time.Time
}
