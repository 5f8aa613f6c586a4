package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// PaperBroker simulates fills against an in-memory book. All entries
// fill at the observed price with no slippage; winning contracts pay
// out one dollar each at settlement.
type PaperBroker struct {
	mu     sync.Mutex
	book   Book
	store  Store
	logger *zap.Logger

	startingCash float64
	maxContracts int
}

// Config holds paper broker configuration.
type Config struct {
	StartingCash float64
	MaxContracts int
	Store        Store
	Logger       *zap.Logger
}

// NewPaperBroker creates a paper broker. If the store holds a saved
// book, the broker resumes from it; otherwise it starts a fresh book
// at the configured cash level.
func NewPaperBroker(ctx context.Context, cfg *Config) (*PaperBroker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.StartingCash <= 0 {
		return nil, fmt.Errorf("starting cash must be positive")
	}
	if cfg.MaxContracts <= 0 {
		return nil, fmt.Errorf("max contracts must be positive")
	}

	broker := &PaperBroker{
		store:        cfg.Store,
		logger:       cfg.Logger,
		startingCash: cfg.StartingCash,
		maxContracts: cfg.MaxContracts,
	}

	book, found, err := cfg.Store.LoadBook(ctx)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}

	if found {
		broker.book = book
		cfg.Logger.Info("book-resumed",
			zap.Float64("cash", book.Cash),
			zap.Int("open_positions", book.OpenCount()),
			zap.Float64("realized_pnl", book.RealizedPnL))
	} else {
		broker.book = Book{
			Cash:      cfg.StartingCash,
			UpdatedAt: time.Now(),
		}
		cfg.Logger.Info("book-initialized",
			zap.Float64("cash", cfg.StartingCash))
	}

	broker.publishGauges()

	return broker, nil
}

// Open sizes and books a new position. The quantity is the largest
// whole number of contracts the fraction of current cash can buy at
// the entry price.
func (p *PaperBroker) Open(ctx context.Context, order Order) (Position, error) {
	if order.EntryCents < 1 || order.EntryCents > 99 {
		return Position{}, fmt.Errorf("%w: entry price %d outside 1..99", ErrInvalidOrder, order.EntryCents)
	}
	if order.Fraction <= 0 || order.Fraction > 1 {
		return Position{}, fmt.Errorf("%w: fraction %f outside (0,1]", ErrInvalidOrder, order.Fraction)
	}
	if order.Side != types.SideYes && order.Side != types.SideNo {
		return Position{}, fmt.Errorf("%w: side %q", ErrInvalidOrder, order.Side)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	costPerContract := float64(order.EntryCents) / 100.0
	budget := p.book.Cash * order.Fraction
	quantity := int(math.Floor(budget / costPerContract))

	if quantity < 1 {
		OpenRejectionsTotal.WithLabelValues("insufficient_cash").Inc()
		return Position{}, fmt.Errorf("%w: cash %.2f at fraction %.3f cannot buy one contract at %d cents",
			ErrInsufficientCash, p.book.Cash, order.Fraction, order.EntryCents)
	}

	if quantity > p.maxContracts {
		OpenRejectionsTotal.WithLabelValues("quantity_cap").Inc()
		return Position{}, fmt.Errorf("%w: sized %d contracts, cap %d",
			ErrQuantityCap, quantity, p.maxContracts)
	}

	cost := float64(quantity) * costPerContract
	if cost > p.book.Cash {
		OpenRejectionsTotal.WithLabelValues("insufficient_cash").Inc()
		return Position{}, fmt.Errorf("%w: cost %.2f exceeds cash %.2f",
			ErrInsufficientCash, cost, p.book.Cash)
	}

	pos := Position{
		ID:         uuid.New().String(),
		Ticker:     order.Ticker,
		EventKey:   order.EventKey,
		Category:   order.Category,
		Side:       order.Side,
		EntryCents: order.EntryCents,
		Quantity:   quantity,
		Cost:       cost,
		Fraction:   order.Fraction,
		Status:     StatusOpen,
		Outcome:    OutcomeUnresolved,
		OpenedAt:   time.Now(),
	}

	p.book.Cash -= cost
	p.book.Positions = append(p.book.Positions, pos)
	p.book.UpdatedAt = time.Now()

	PositionsOpenedTotal.Inc()
	p.publishGauges()

	p.logger.Info("position-opened",
		zap.String("id", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("side", string(pos.Side)),
		zap.Int("entry_cents", pos.EntryCents),
		zap.Int("quantity", quantity),
		zap.Float64("cost", cost),
		zap.Float64("cash_after", p.book.Cash))

	p.persistFill(ctx, pos)

	return pos, nil
}

// Settle closes a position at the winning side. Winning contracts pay
// one dollar each; losing positions pay nothing. Settling a closed
// position is a no-op that returns the stored position.
func (p *PaperBroker) Settle(ctx context.Context, positionID string, winner types.Side) (Position, error) {
	if winner != types.SideYes && winner != types.SideNo {
		return Position{}, fmt.Errorf("%w: winner %q", ErrInvalidOrder, winner)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i := range p.book.Positions {
		if p.book.Positions[i].ID == positionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Position{}, fmt.Errorf("%w: %s", ErrPositionNotFound, positionID)
	}

	pos := &p.book.Positions[idx]
	if pos.Status == StatusClosed {
		p.logger.Debug("settle-already-closed",
			zap.String("id", positionID))
		return *pos, nil
	}

	payout := 0.0
	outcome := OutcomeLost
	if pos.Side == winner {
		payout = float64(pos.Quantity) * unitPayout
		outcome = OutcomeWon
	}

	pos.Status = StatusClosed
	pos.Outcome = outcome
	pos.Payout = payout
	pos.RealizedPnL = payout - pos.Cost
	pos.SettledAt = time.Now()

	p.book.Cash += payout
	p.book.RealizedPnL += pos.RealizedPnL
	p.book.UpdatedAt = time.Now()

	PositionsSettledTotal.WithLabelValues(string(outcome)).Inc()
	p.publishGauges()

	p.logger.Info("position-settled",
		zap.String("id", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("outcome", string(outcome)),
		zap.Float64("payout", payout),
		zap.Float64("realized_pnl", pos.RealizedPnL),
		zap.Float64("cash_after", p.book.Cash))

	p.persistSettlement(ctx, *pos)

	return *pos, nil
}

// Snapshot returns a deep copy of the current book.
func (p *PaperBroker) Snapshot() Book {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.book.clone()
}

// equityPoint samples the curve. Caller must hold the lock.
func (p *PaperBroker) equityPoint() EquityPoint {
	return EquityPoint{
		Timestamp:     time.Now(),
		Cash:          p.book.Cash,
		OpenCost:      p.book.OpenCost(),
		RealizedPnL:   p.book.RealizedPnL,
		Equity:        p.book.Equity(),
		OpenPositions: p.book.OpenCount(),
	}
}

// persistFill writes the fill, equity sample and book snapshot.
// Storage failures are logged, not propagated: the in-memory book is
// authoritative for the life of the process.
func (p *PaperBroker) persistFill(ctx context.Context, pos Position) {
	if err := p.store.RecordFill(ctx, pos, p.book.Cash); err != nil {
		p.logger.Error("record-fill-failed", zap.Error(err), zap.String("id", pos.ID))
	}
	if err := p.store.RecordEquity(ctx, p.equityPoint()); err != nil {
		p.logger.Error("record-equity-failed", zap.Error(err))
	}
	if err := p.store.SaveBook(ctx, p.book.clone()); err != nil {
		p.logger.Error("save-book-failed", zap.Error(err))
	}
}

func (p *PaperBroker) persistSettlement(ctx context.Context, pos Position) {
	if err := p.store.RecordSettlement(ctx, pos, p.book.Cash); err != nil {
		p.logger.Error("record-settlement-failed", zap.Error(err), zap.String("id", pos.ID))
	}
	if err := p.store.RecordEquity(ctx, p.equityPoint()); err != nil {
		p.logger.Error("record-equity-failed", zap.Error(err))
	}
	if err := p.store.SaveBook(ctx, p.book.clone()); err != nil {
		p.logger.Error("save-book-failed", zap.Error(err))
	}
}

// publishGauges pushes book state to metrics. Caller must hold the lock.
func (p *PaperBroker) publishGauges() {
	BookCash.Set(p.book.Cash)
	BookRealizedPnL.Set(p.book.RealizedPnL)
	BookOpenPositions.Set(float64(p.book.OpenCount()))
}
