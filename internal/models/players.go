package models

type Player struct {
	ID         int64
	ExternalID int64
}

// TurnEntry is a player's slot in a game's turn order.
type TurnEntry struct {
	GameID     int64
	PlayerID   int64
	ExternalID int64
	Position   int
}

type ScoreEntry struct {
	GameID   int64
	PlayerID int64
	Points   int
}
