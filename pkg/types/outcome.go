package types

import "time"

// OutcomeStatus describes how far along resolution a market is.
type OutcomeStatus string

const (
	// OutcomeOpen means the underlying game has not started.
	OutcomeOpen OutcomeStatus = "open"
	// OutcomeInProgress means the game is live and no winner exists yet.
	OutcomeInProgress OutcomeStatus = "in_progress"
	// OutcomeFinal means the game finished and WinningSide is set.
	OutcomeFinal OutcomeStatus = "final"
	// OutcomeUnavailable means the outcome source could not answer.
	OutcomeUnavailable OutcomeStatus = "unavailable"
)

// OutcomeReport is the answer from an outcome source for one market.
type OutcomeReport struct {
	Ticker      string        `json:"ticker"`
	Status      OutcomeStatus `json:"status"`
	WinningSide Side          `json:"winning_side,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	CheckedAt   time.Time     `json:"checked_at"`
}

// GameContext is live scoreboard context for the game behind a market.
// Available is false when no matching game could be found; evaluation
// proceeds without it.
type GameContext struct {
	HomeAbbr  string `json:"home_abbr"`
	AwayAbbr  string `json:"away_abbr"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Status    string `json:"status"`
	Available bool   `json:"-"`
}

// TeamForm is a team's recent record, used to color the narrative
// around a proposal. Purely informational.
type TeamForm struct {
	Team   string `json:"team"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Streak string `json:"streak"`
}
