package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantfade/longshot/internal/ledger"
	"go.uber.org/zap"
)

// BookSource reports current book state. The paper broker implements
// this directly.
type BookSource interface {
	Snapshot() ledger.Book
}

// CashCircuitBreaker halts new opens when book cash falls below a
// dynamic threshold derived from recent trade sizes, with hysteresis
// so the gate does not flap around the threshold. Settlement is never
// gated.
type CashCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads on the hot path

	checkInterval   time.Duration
	book            BookSource
	logger          *zap.Logger
	tradeMultiplier float64 // multiplier over avg trade size
	minAbsolute     float64 // absolute cash floor
	hysteresisRatio float64 // re-enable at ratio * disable threshold

	// Protected by mutex
	mu               sync.RWMutex
	lastCash         float64
	lastCheck        time.Time
	recentTrades     []float64 // rolling window of entry costs
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	Book            BookSource
	Logger          *zap.Logger
}

// Status holds current breaker state for debugging and HTTP endpoints.
type Status struct {
	Enabled          bool
	LastCash         float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgTradeSize     float64
	RecentTradeCount int
}

// New creates a circuit breaker.
func New(cfg *Config) (*CashCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Book == nil {
		return nil, fmt.Errorf("book source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	breaker := &CashCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		book:             cfg.Book,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, 20),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}

	breaker.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerDisableThreshold.Set(breaker.disableThreshold)
	BreakerEnableThreshold.Set(breaker.enableThreshold)
	BreakerAvgTradeSize.Set(0)

	return breaker, nil
}

// IsEnabled returns true if new opens should go through.
// Lock-free and safe to call from hot paths.
func (b *CashCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds an entry cost to the rolling window and
// recalculates thresholds. Call after each successful open.
func (b *CashCircuitBreaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size",
			zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Keep the last 20 trades
	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > 20 {
		b.recentTrades = b.recentTrades[1:]
	}

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := sum / float64(len(b.recentTrades))

	b.disableThreshold = math.Max(avgTradeSize*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	BreakerAvgTradeSize.Set(avgTradeSize)
	BreakerDisableThreshold.Set(b.disableThreshold)
	BreakerEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("thresholds-updated",
		zap.Float64("avg_trade_size", avgTradeSize),
		zap.Int("trade_count", len(b.recentTrades)),
		zap.Float64("disable_threshold", b.disableThreshold),
		zap.Float64("enable_threshold", b.enableThreshold))
}

// CheckCash compares current book cash against the thresholds and
// flips the breaker state with hysteresis.
func (b *CashCircuitBreaker) CheckCash() {
	cash := b.book.Snapshot().Cash

	b.mu.RLock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.RUnlock()

	currentlyEnabled := b.enabled.Load()

	b.mu.Lock()
	b.lastCash = cash
	b.lastCheck = time.Now()
	b.mu.Unlock()

	BreakerCash.Set(cash)

	shouldDisable := currentlyEnabled && cash < disableThreshold
	shouldEnable := !currentlyEnabled && cash >= enableThreshold

	if shouldDisable {
		b.enabled.Store(false)
		BreakerEnabled.Set(0)
		BreakerStateChanges.Inc()

		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("cash", cash),
			zap.Float64("disable_threshold", disableThreshold),
			zap.Float64("enable_threshold", enableThreshold))
	} else if shouldEnable {
		b.enabled.Store(true)
		BreakerEnabled.Set(1)
		BreakerStateChanges.Inc()

		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("cash", cash),
			zap.Float64("disable_threshold", disableThreshold),
			zap.Float64("enable_threshold", enableThreshold))
	} else {
		b.logger.Debug("cash-checked",
			zap.Float64("cash", cash),
			zap.Bool("enabled", currentlyEnabled))
	}
}

// Start begins the background monitoring loop. Runs until the context
// is cancelled.
func (b *CashCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check_interval", b.checkInterval),
		zap.Float64("trade_multiplier", b.tradeMultiplier),
		zap.Float64("min_absolute", b.minAbsolute),
		zap.Float64("hysteresis_ratio", b.hysteresisRatio))

	b.CheckCash()

	go b.monitorLoop(ctx)
}

func (b *CashCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			b.CheckCash()
		}
	}
}

// GetStatus returns current breaker status.
func (b *CashCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := 0.0
	if len(b.recentTrades) > 0 {
		avgTradeSize = sum / float64(len(b.recentTrades))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastCash:         b.lastCash,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avgTradeSize,
		RecentTradeCount: len(b.recentTrades),
	}
}
