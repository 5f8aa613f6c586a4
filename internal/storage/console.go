package storage

import (
	"context"

	"github.com/quantfade/longshot/internal/ledger"
	"go.uber.org/zap"
)

// ConsoleStore implements ledger.Store by logging records instead of
// persisting them. The book is never saved, so every run starts fresh.
// Useful for development.
type ConsoleStore struct {
	logger *zap.Logger
}

// NewConsoleStore creates a console store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	return &ConsoleStore{logger: logger}
}

// SaveBook logs the book headline numbers.
func (c *ConsoleStore) SaveBook(_ context.Context, book ledger.Book) error {
	c.logger.Debug("book-state",
		zap.Float64("cash", book.Cash),
		zap.Float64("realized_pnl", book.RealizedPnL),
		zap.Int("open_positions", book.OpenCount()))
	return nil
}

// LoadBook always reports no saved book.
func (c *ConsoleStore) LoadBook(_ context.Context) (ledger.Book, bool, error) {
	return ledger.Book{}, false, nil
}

// RecordFill logs the fill.
func (c *ConsoleStore) RecordFill(_ context.Context, pos ledger.Position, cashAfter float64) error {
	c.logger.Info("fill",
		zap.String("position-id", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("side", string(pos.Side)),
		zap.Int("entry_cents", pos.EntryCents),
		zap.Int("quantity", pos.Quantity),
		zap.Float64("cost", pos.Cost),
		zap.Float64("cash_after", cashAfter))
	return nil
}

// RecordSettlement logs the settlement.
func (c *ConsoleStore) RecordSettlement(_ context.Context, pos ledger.Position, cashAfter float64) error {
	c.logger.Info("settlement",
		zap.String("position-id", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("outcome", string(pos.Outcome)),
		zap.Float64("payout", pos.Payout),
		zap.Float64("realized_pnl", pos.RealizedPnL),
		zap.Float64("cash_after", cashAfter))
	return nil
}

// RecordEquity logs the equity sample.
func (c *ConsoleStore) RecordEquity(_ context.Context, point ledger.EquityPoint) error {
	c.logger.Debug("equity",
		zap.Float64("cash", point.Cash),
		zap.Float64("equity", point.Equity),
		zap.Int("open_positions", point.OpenPositions))
	return nil
}

// Close is a no-op.
func (c *ConsoleStore) Close() error {
	return nil
}
