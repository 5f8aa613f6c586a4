package types

import "time"

// Category classifies what kind of market a ticker refers to.
type Category string

const (
	CategoryGameWinner Category = "game_winner"
	CategoryTotals     Category = "totals"
	CategoryPlayerProp Category = "player_prop"
	CategoryUnknown    Category = "unknown"
)

// Side is one of the two outcomes of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite returns the other side of a binary market.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Action is the direction a candidate suggests betting.
type Action string

const (
	ActionBetYes Action = "bet_yes"
	ActionBetNo  Action = "bet_no"
)

// Side returns the side of the market the action would hold.
func (a Action) Side() Side {
	if a == ActionBetYes {
		return SideYes
	}
	return SideNo
}

// MarketMetadata is descriptive and liquidity data for a market,
// fetched from the exchange REST API. Available is false when the
// lookup failed or no API access is configured; consumers treat
// missing metadata as a soft condition, never a hard stop.
type MarketMetadata struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	Rules        string `json:"rules_primary"`
	OpenInterest int    `json:"open_interest"`
	Volume24h    int    `json:"volume_24h"`
	Available    bool   `json:"-"`
}

// Candidate is a trade event that survived classification and the
// longshot price filter, annotated with the direction worth examining.
type Candidate struct {
	Ticker    string         `json:"ticker"`
	EventKey  string         `json:"event_key"`
	Category  Category       `json:"category"`
	YesPrice  int            `json:"yes_price"`
	Action    Action         `json:"action"`
	Rationale string         `json:"rationale"`
	Meta      MarketMetadata `json:"meta"`
	Timestamp time.Time      `json:"timestamp"`
}

// EntryCents returns the cost in cents of one contract on the side the
// candidate's action would hold.
func (c Candidate) EntryCents() int {
	if c.Action.Side() == SideYes {
		return c.YesPrice
	}
	return 100 - c.YesPrice
}
