package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// BacktestBroker replays historical markets with known results. Every
// opened position settles immediately at its pre-loaded outcome, so a
// run over N markets produces a complete equity curve with no pending
// positions left behind.
type BacktestBroker struct {
	*PaperBroker

	mu      sync.Mutex
	results map[string]types.Side
	wins    int
	losses  int
	skipped int
}

// NewBacktestBroker creates a backtest broker over a fresh paper book.
func NewBacktestBroker(ctx context.Context, cfg *Config) (*BacktestBroker, error) {
	paper, err := NewPaperBroker(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("paper broker: %w", err)
	}

	return &BacktestBroker{
		PaperBroker: paper,
		results:     make(map[string]types.Side),
	}, nil
}

// SetResult registers the known winning side for a ticker before it is
// replayed.
func (b *BacktestBroker) SetResult(ticker string, winner types.Side) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[ticker] = winner
}

// Open books the position and settles it on the spot using the
// registered result. Tickers with no registered result stay open and
// are counted as skipped.
func (b *BacktestBroker) Open(ctx context.Context, order Order) (Position, error) {
	pos, err := b.PaperBroker.Open(ctx, order)
	if err != nil {
		return Position{}, err
	}

	b.mu.Lock()
	winner, known := b.results[order.Ticker]
	b.mu.Unlock()

	if !known {
		b.mu.Lock()
		b.skipped++
		b.mu.Unlock()
		b.logger.Warn("backtest-result-missing", zap.String("ticker", order.Ticker))
		return pos, nil
	}

	settled, err := b.PaperBroker.Settle(ctx, pos.ID, winner)
	if err != nil {
		return pos, fmt.Errorf("immediate settle: %w", err)
	}

	b.mu.Lock()
	if settled.Outcome == OutcomeWon {
		b.wins++
	} else {
		b.losses++
	}
	b.mu.Unlock()

	return settled, nil
}

// Summary describes a completed backtest run.
type Summary struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Skipped      int     `json:"skipped"`
	WinRate      float64 `json:"win_rate"`
	StartingCash float64 `json:"starting_cash"`
	FinalCash    float64 `json:"final_cash"`
	RealizedPnL  float64 `json:"realized_pnl"`
	ReturnPct    float64 `json:"return_pct"`
}

// Summary returns the run's aggregate results.
func (b *BacktestBroker) Summary() Summary {
	b.mu.Lock()
	wins, losses, skipped := b.wins, b.losses, b.skipped
	b.mu.Unlock()

	book := b.Snapshot()

	trades := wins + losses
	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return Summary{
		Trades:       trades,
		Wins:         wins,
		Losses:       losses,
		Skipped:      skipped,
		WinRate:      winRate,
		StartingCash: b.startingCash,
		FinalCash:    book.Cash,
		RealizedPnL:  book.RealizedPnL,
		ReturnPct:    (book.Equity() - b.startingCash) / b.startingCash * 100.0,
	}
}
