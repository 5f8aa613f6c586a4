package settlement

import (
	"context"
	"fmt"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OutcomeSource answers whether a market's underlying event finished
// and which side won.
type OutcomeSource interface {
	Resolve(ctx context.Context, ticker string) (types.OutcomeReport, error)
}

// Settler sweeps open positions against the outcome source. Outcome
// lookups fan out concurrently; the settles themselves run serially so
// the book mutates in one place. A position whose outcome cannot be
// determined is skipped and picked up on the next sweep.
type Settler struct {
	broker      ledger.Broker
	source      OutcomeSource
	logger      *zap.Logger
	concurrency int
}

// Config holds settler configuration.
type Config struct {
	Broker      ledger.Broker
	Source      OutcomeSource
	Logger      *zap.Logger
	Concurrency int
}

// New creates a settler.
func New(cfg *Config) (*Settler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Broker == nil {
		return nil, fmt.Errorf("broker cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("outcome source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Settler{
		broker:      cfg.Broker,
		source:      cfg.Source,
		logger:      cfg.Logger,
		concurrency: concurrency,
	}, nil
}

// Summary describes one settlement sweep.
type Summary struct {
	Checked     int     `json:"checked"`
	Settled     int     `json:"settled"`
	Won         int     `json:"won"`
	Lost        int     `json:"lost"`
	Pending     int     `json:"pending"`
	Unavailable int     `json:"unavailable"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// Run executes one sweep over all open positions.
func (s *Settler) Run(ctx context.Context) (Summary, error) {
	open := s.broker.Snapshot().OpenPositions()

	summary := Summary{Checked: len(open)}
	if len(open) == 0 {
		s.logger.Info("settlement-sweep-empty")
		return summary, nil
	}

	s.logger.Info("settlement-sweep-starting",
		zap.Int("open_positions", len(open)))

	reports := make([]types.OutcomeReport, len(open))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pos := range open {
		i, pos := i, pos
		g.Go(func() error {
			report, err := s.source.Resolve(gctx, pos.Ticker)
			if err != nil {
				// Degrade to unavailable: one flaky lookup must not
				// abort the whole sweep.
				s.logger.Warn("outcome-lookup-failed",
					zap.String("ticker", pos.Ticker),
					zap.Error(err))
				report = types.OutcomeReport{
					Ticker: pos.Ticker,
					Status: types.OutcomeUnavailable,
					Detail: err.Error(),
				}
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("resolve outcomes: %w", err)
	}

	for i, pos := range open {
		report := reports[i]

		switch report.Status {
		case types.OutcomeFinal:
			settled, err := s.broker.Settle(ctx, pos.ID, report.WinningSide)
			if err != nil {
				s.logger.Error("settle-failed",
					zap.String("position-id", pos.ID),
					zap.String("ticker", pos.Ticker),
					zap.Error(err))
				continue
			}
			summary.Settled++
			summary.RealizedPnL += settled.RealizedPnL
			if settled.Outcome == ledger.OutcomeWon {
				summary.Won++
			} else {
				summary.Lost++
			}

		case types.OutcomeUnavailable:
			summary.Unavailable++

		default:
			summary.Pending++
		}
	}

	SweepsTotal.Inc()
	PositionsSettledTotal.Add(float64(summary.Settled))

	s.logger.Info("settlement-sweep-complete",
		zap.Int("checked", summary.Checked),
		zap.Int("settled", summary.Settled),
		zap.Int("pending", summary.Pending),
		zap.Int("unavailable", summary.Unavailable),
		zap.Float64("realized_pnl", summary.RealizedPnL))

	return summary, nil
}
