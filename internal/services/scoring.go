package services

import (
	"math"
	"sort"

	"hangman_bot/internal/models"
)

type Standing struct {
	PlayerID   int64
	ExternalID int64
	Position   int
	Points     int
}

// Totals sums score entries per player id.
func Totals(entries []models.ScoreEntry) map[int64]int {
	totals := make(map[int64]int, len(entries))
	for _, e := range entries {
		totals[e.PlayerID] += e.Points
	}
	return totals
}

// Leaderboard orders every player with at least one score entry by total
// points, ties going to the earlier turn order position.
func Leaderboard(entries []models.ScoreEntry, order []models.TurnEntry) []Standing {
	slots := make(map[int64]models.TurnEntry, len(order))
	for _, t := range order {
		slots[t.PlayerID] = t
	}

	totals := Totals(entries)
	standings := make([]Standing, 0, len(totals))
	for playerID, points := range totals {
		st := Standing{PlayerID: playerID, Points: points, Position: math.MaxInt}
		if slot, ok := slots[playerID]; ok {
			st.ExternalID = slot.ExternalID
			st.Position = slot.Position
		}
		standings = append(standings, st)
	}

	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.PlayerID < b.PlayerID
	})

	return standings
}

func Winner(standings []Standing) (Standing, bool) {
	if len(standings) == 0 {
		return Standing{}, false
	}
	return standings[0], true
}
