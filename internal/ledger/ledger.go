package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/quantfade/longshot/pkg/types"
)

// unitPayout is the settlement value of one winning contract in dollars.
const unitPayout = 1.0

var (
	// ErrInsufficientCash means the book cannot fund even one contract
	// at the requested fraction.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrQuantityCap means the sized quantity exceeds the per-trade
	// contract cap.
	ErrQuantityCap = errors.New("quantity exceeds per-trade cap")

	// ErrPositionNotFound means no position exists with the given ID.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidOrder means the order failed basic validation.
	ErrInvalidOrder = errors.New("invalid order")
)

// Status is a position's lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Outcome is how a position resolved.
type Outcome string

const (
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeWon        Outcome = "won"
	OutcomeLost       Outcome = "lost"
)

// Order is a sized request to open a position. The broker converts the
// bankroll fraction into a whole number of contracts at the entry price.
type Order struct {
	Ticker     string         `json:"ticker"`
	EventKey   string         `json:"event_key"`
	Category   types.Category `json:"category"`
	Side       types.Side     `json:"side"`
	EntryCents int            `json:"entry_cents"`
	Fraction   float64        `json:"fraction"`
}

// Position is one paper trade held in the book.
type Position struct {
	ID          string         `json:"id"`
	Ticker      string         `json:"ticker"`
	EventKey    string         `json:"event_key"`
	Category    types.Category `json:"category"`
	Side        types.Side     `json:"side"`
	EntryCents  int            `json:"entry_cents"`
	Quantity    int            `json:"quantity"`
	Cost        float64        `json:"cost"`
	Fraction    float64        `json:"fraction"`
	Status      Status         `json:"status"`
	Outcome     Outcome        `json:"outcome"`
	Payout      float64        `json:"payout"`
	RealizedPnL float64        `json:"realized_pnl"`
	OpenedAt    time.Time      `json:"opened_at"`
	SettledAt   time.Time      `json:"settled_at,omitempty"`
}

// Book is the full state of the paper account.
type Book struct {
	Cash        float64    `json:"cash"`
	RealizedPnL float64    `json:"realized_pnl"`
	Positions   []Position `json:"positions"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OpenPositions returns the positions still awaiting settlement.
func (b Book) OpenPositions() []Position {
	var open []Position
	for _, pos := range b.Positions {
		if pos.Status == StatusOpen {
			open = append(open, pos)
		}
	}
	return open
}

// OpenCount returns the number of open positions.
func (b Book) OpenCount() int {
	count := 0
	for _, pos := range b.Positions {
		if pos.Status == StatusOpen {
			count++
		}
	}
	return count
}

// OpenCost returns the total entry cost tied up in open positions.
func (b Book) OpenCost() float64 {
	total := 0.0
	for _, pos := range b.Positions {
		if pos.Status == StatusOpen {
			total += pos.Cost
		}
	}
	return total
}

// EventExposure returns the entry cost of open positions sharing an
// event key. Used to cap concentration on a single game.
func (b Book) EventExposure(eventKey string) float64 {
	total := 0.0
	for _, pos := range b.Positions {
		if pos.Status == StatusOpen && pos.EventKey == eventKey {
			total += pos.Cost
		}
	}
	return total
}

// Equity returns cash plus open positions at cost.
func (b Book) Equity() float64 {
	return b.Cash + b.OpenCost()
}

// clone returns a deep copy safe to hand outside the broker's lock.
func (b Book) clone() Book {
	out := b
	out.Positions = make([]Position, len(b.Positions))
	copy(out.Positions, b.Positions)
	return out
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Cash          float64   `json:"cash"`
	OpenCost      float64   `json:"open_cost"`
	RealizedPnL   float64   `json:"realized_pnl"`
	Equity        float64   `json:"equity"`
	OpenPositions int       `json:"open_positions"`
}

// Broker opens and settles positions against a book.
type Broker interface {
	// Open sizes and books a new position. Rejections (insufficient
	// cash, quantity cap) come back as wrapped sentinel errors.
	Open(ctx context.Context, order Order) (Position, error)

	// Settle closes a position at the winning side. Settling an
	// already-closed position returns it unchanged with no error.
	Settle(ctx context.Context, positionID string, winner types.Side) (Position, error)

	// Snapshot returns a deep copy of the current book.
	Snapshot() Book
}

// Store persists book state and the trade log. Implementations live in
// internal/storage.
type Store interface {
	SaveBook(ctx context.Context, book Book) error
	LoadBook(ctx context.Context) (Book, bool, error)
	RecordFill(ctx context.Context, pos Position, cashAfter float64) error
	RecordSettlement(ctx context.Context, pos Position, cashAfter float64) error
	RecordEquity(ctx context.Context, point EquityPoint) error
	Close() error
}
