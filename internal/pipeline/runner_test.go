package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/internal/review"
	"github.com/quantfade/longshot/internal/synthesis"
	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct{}

func (memStore) SaveBook(context.Context, ledger.Book) error { return nil }
func (memStore) LoadBook(context.Context) (ledger.Book, bool, error) {
	return ledger.Book{}, false, nil
}
func (memStore) RecordFill(context.Context, ledger.Position, float64) error       { return nil }
func (memStore) RecordSettlement(context.Context, ledger.Position, float64) error { return nil }
func (memStore) RecordEquity(context.Context, ledger.EquityPoint) error           { return nil }
func (memStore) Close() error                                                     { return nil }

type runnerStats struct {
	bucket    quant.PriceBucket
	bucketErr error
}

func (s *runnerStats) QueryPriceBucket(_ context.Context, _ int, _ types.Side) (quant.PriceBucket, error) {
	return s.bucket, s.bucketErr
}

func (s *runnerStats) QueryLongshotAggregate(_ context.Context, _ int) (quant.LongshotAggregate, error) {
	return quant.LongshotAggregate{YesWinRate: 0.06, SampleSize: 5000}, nil
}

type stubBreaker struct {
	enabled bool
	trades  []float64
}

func (b *stubBreaker) IsEnabled() bool          { return b.enabled }
func (b *stubBreaker) RecordTrade(size float64) { b.trades = append(b.trades, size) }

type runnerFixture struct {
	runner  *Runner
	broker  *ledger.PaperBroker
	breaker *stubBreaker
}

func newRunnerFixture(t *testing.T, stats quant.Stats, metadata MetadataSource) *runnerFixture {
	t.Helper()
	logger := zap.NewNop()

	broker, err := ledger.NewPaperBroker(context.Background(), &ledger.Config{
		StartingCash: 1000.0,
		MaxContracts: 10000,
		Store:        memStore{},
		Logger:       logger,
	})
	require.NoError(t, err)

	filter, err := NewFilter(&FilterConfig{
		Metadata:        metadata,
		Logger:          logger,
		LongshotCeiling: 20,
		FavoriteFloor:   80,
	})
	require.NoError(t, err)

	evaluator, err := quant.NewEvaluator(&quant.Config{
		Stats:            stats,
		Logger:           logger,
		ConfirmedGapPP:   2.0,
		WeakGapPP:        0.8,
		ConfirmedSamples: 200,
		WeakSamples:      100,
		StaleHorizon:     180 * 24 * time.Hour,
		LongshotCeiling:  20,
	})
	require.NoError(t, err)

	synthesizer, err := synthesis.New(&synthesis.Config{
		Logger:   logger,
		KellyCap: 0.15,
	})
	require.NoError(t, err)

	reviewer, err := review.New(&review.Config{
		Book:                  broker,
		Logger:                logger,
		RiskThreshold:         6,
		LiquidityFloor:        500,
		ExposureCapUSD:        15.0,
		MediumFractionCeiling: 0.10,
	})
	require.NoError(t, err)

	breaker := &stubBreaker{enabled: true}

	runner, err := NewRunner(&RunnerConfig{
		Filter:      filter,
		Evaluator:   evaluator,
		Synthesizer: synthesizer,
		Reviewer:    reviewer,
		Broker:      broker,
		Breaker:     breaker,
		Logger:      logger,
	})
	require.NoError(t, err)

	return &runnerFixture{runner: runner, broker: broker, breaker: breaker}
}

func confirmedEdgeStats() *runnerStats {
	// implied no-side prob at 7c YES is 0.93; 0.956 is a 2.6pp gap
	return &runnerStats{
		bucket: quant.PriceBucket{
			WinRate:     0.956,
			SampleSize:  1240,
			LatestClose: time.Now().Add(-24 * time.Hour),
		},
	}
}

func liquidMetadata() *stubMetadata {
	return &stubMetadata{meta: types.MarketMetadata{
		OpenInterest: 12000,
		Volume24h:    4500,
		Available:    true,
	}}
}

func TestProcessEventOpensOnConfirmedEdge(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), liquidMetadata())

	result := fx.runner.ProcessEvent(context.Background(), event(7))

	assert.Equal(t, "open", result.Stage)
	assert.Equal(t, "opened", result.Status)
	require.NotNil(t, result.Position)
	assert.Equal(t, types.SideNo, result.Position.Side)
	assert.Equal(t, 93, result.Position.EntryCents)

	book := fx.broker.Snapshot()
	assert.Equal(t, 1, book.OpenCount())
	assert.Less(t, book.Cash, 1000.0)

	require.Len(t, fx.breaker.trades, 1)
	assert.Equal(t, result.Position.Cost, fx.breaker.trades[0])
}

func TestProcessEventDropsMidBand(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), nil)

	result := fx.runner.ProcessEvent(context.Background(), event(50))

	assert.Equal(t, "filter", result.Stage)
	assert.Equal(t, "dropped", result.Status)
	assert.Equal(t, 0, fx.broker.Snapshot().OpenCount())
}

func TestProcessEventRecognizedSeriesNotTraded(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), nil)

	ev := event(7)
	ev.MarketTicker = "KXNBAWINS-25BOS-50"
	result := fx.runner.ProcessEvent(context.Background(), ev)

	assert.Equal(t, "classify", result.Stage)
	assert.Equal(t, "recognized", result.Status)
	assert.Equal(t, types.CategoryTotals, result.Category)
}

func TestProcessEventDropsUnknownSeries(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), nil)

	ev := event(7)
	ev.MarketTicker = "KXBTCUSD-25JAN15"
	result := fx.runner.ProcessEvent(context.Background(), ev)

	assert.Equal(t, "classify", result.Stage)
	assert.Equal(t, "dropped", result.Status)
}

func TestProcessEventPassesOnNoEdge(t *testing.T) {
	stats := &runnerStats{
		bucket: quant.PriceBucket{WinRate: 0.93, SampleSize: 1240},
	}
	fx := newRunnerFixture(t, stats, nil)

	result := fx.runner.ProcessEvent(context.Background(), event(7))

	assert.Equal(t, "synthesize", result.Stage)
	assert.Equal(t, "pass", result.Status)
	assert.Equal(t, 0, fx.broker.Snapshot().OpenCount())
}

func TestProcessEventVetoesIlliquidMarket(t *testing.T) {
	metadata := &stubMetadata{meta: types.MarketMetadata{
		OpenInterest: 200,
		Volume24h:    4500,
		Available:    true,
	}}
	fx := newRunnerFixture(t, confirmedEdgeStats(), metadata)

	result := fx.runner.ProcessEvent(context.Background(), event(7))

	assert.Equal(t, "review", result.Stage)
	assert.Equal(t, "vetoed", result.Status)
	assert.Contains(t, result.Reason, "illiquid")
	assert.Equal(t, 0, fx.broker.Snapshot().OpenCount())
}

func TestProcessEventStatsFailureLeavesBookUntouched(t *testing.T) {
	stats := &runnerStats{bucketErr: errors.New("connection refused")}
	fx := newRunnerFixture(t, stats, nil)

	result := fx.runner.ProcessEvent(context.Background(), event(7))

	assert.Equal(t, "evaluate", result.Stage)
	assert.Equal(t, "error", result.Status)

	book := fx.broker.Snapshot()
	assert.Equal(t, 1000.0, book.Cash)
	assert.Equal(t, 0, book.OpenCount())
}

func TestProcessEventHaltedByBreaker(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), liquidMetadata())
	fx.breaker.enabled = false

	result := fx.runner.ProcessEvent(context.Background(), event(7))

	assert.Equal(t, "gate", result.Stage)
	assert.Equal(t, "halted", result.Status)
	assert.Equal(t, 0, fx.broker.Snapshot().OpenCount())
}

func TestProcessEventExposureCapAcrossEvents(t *testing.T) {
	fx := newRunnerFixture(t, confirmedEdgeStats(), liquidMetadata())
	ctx := context.Background()

	first := fx.runner.ProcessEvent(ctx, event(7))
	require.Equal(t, "opened", first.Status)

	// second market on the same game trips the concentration cap
	ev := event(8)
	ev.MarketTicker = "KXNBAGAME-25JAN15LACBOS-BOS"
	second := fx.runner.ProcessEvent(ctx, ev)

	assert.Equal(t, "vetoed", second.Status)
	assert.Contains(t, second.Reason, "event-exposure-cap")
	assert.Equal(t, 1, fx.broker.Snapshot().OpenCount())
}

func TestRunStopsOnClosedChannel(t *testing.T) {
	events := make(chan types.TradeEvent, 1)
	fx := newRunnerFixture(t, confirmedEdgeStats(), nil)
	fx.runner.events = events

	events <- event(50)
	close(events)

	err := fx.runner.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	events := make(chan types.TradeEvent)
	fx := newRunnerFixture(t, confirmedEdgeStats(), nil)
	fx.runner.events = events

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fx.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
