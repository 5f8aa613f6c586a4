package circuitbreaker

import (
	"testing"
	"time"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBook struct {
	cash float64
}

func (s *stubBook) Snapshot() ledger.Book {
	return ledger.Book{Cash: s.cash}
}

func newTestBreaker(t *testing.T, book *stubBook) *CashCircuitBreaker {
	t.Helper()

	breaker, err := New(&Config{
		CheckInterval:   time.Minute,
		TradeMultiplier: 3.0,
		MinAbsolute:     25.0,
		HysteresisRatio: 1.5,
		Book:            book,
		Logger:          zap.NewNop(),
	})
	require.NoError(t, err)
	return breaker
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil-config", cfg: nil},
		{name: "nil-book", cfg: &Config{
			CheckInterval: time.Minute, TradeMultiplier: 3, MinAbsolute: 25,
			HysteresisRatio: 1.5, Logger: zap.NewNop(),
		}},
		{name: "nil-logger", cfg: &Config{
			CheckInterval: time.Minute, TradeMultiplier: 3, MinAbsolute: 25,
			HysteresisRatio: 1.5, Book: &stubBook{},
		}},
		{name: "hysteresis-below-one", cfg: &Config{
			CheckInterval: time.Minute, TradeMultiplier: 3, MinAbsolute: 25,
			HysteresisRatio: 0.9, Book: &stubBook{}, Logger: zap.NewNop(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestStartsEnabled(t *testing.T) {
	breaker := newTestBreaker(t, &stubBook{cash: 1000})
	assert.True(t, breaker.IsEnabled())
}

func TestDisablesBelowThreshold(t *testing.T) {
	book := &stubBook{cash: 1000}
	breaker := newTestBreaker(t, book)

	breaker.CheckCash()
	assert.True(t, breaker.IsEnabled())

	// Below the 25.0 absolute floor
	book.cash = 20
	breaker.CheckCash()
	assert.False(t, breaker.IsEnabled())
}

func TestHysteresisOnReEnable(t *testing.T) {
	book := &stubBook{cash: 20}
	breaker := newTestBreaker(t, book)

	breaker.CheckCash()
	require.False(t, breaker.IsEnabled())

	// Above disable (25) but below enable (37.5): stays disabled
	book.cash = 30
	breaker.CheckCash()
	assert.False(t, breaker.IsEnabled())

	book.cash = 40
	breaker.CheckCash()
	assert.True(t, breaker.IsEnabled())
}

func TestRecordTradeRaisesThreshold(t *testing.T) {
	book := &stubBook{cash: 1000}
	breaker := newTestBreaker(t, book)

	// Avg 50 * multiplier 3 = 150 > min absolute 25
	breaker.RecordTrade(40)
	breaker.RecordTrade(60)

	status := breaker.GetStatus()
	assert.InDelta(t, 50.0, status.AvgTradeSize, 0.001)
	assert.InDelta(t, 150.0, status.DisableThreshold, 0.001)
	assert.InDelta(t, 225.0, status.EnableThreshold, 0.001)

	book.cash = 140
	breaker.CheckCash()
	assert.False(t, breaker.IsEnabled())
}

func TestRecordTradeWindowCapped(t *testing.T) {
	breaker := newTestBreaker(t, &stubBook{cash: 1000})

	for i := 0; i < 30; i++ {
		breaker.RecordTrade(10)
	}

	assert.Equal(t, 20, breaker.GetStatus().RecentTradeCount)
}

func TestRecordTradeIgnoresInvalid(t *testing.T) {
	breaker := newTestBreaker(t, &stubBook{cash: 1000})

	breaker.RecordTrade(0)
	breaker.RecordTrade(-5)

	assert.Equal(t, 0, breaker.GetStatus().RecentTradeCount)
}

func TestSmallTradesKeepAbsoluteFloor(t *testing.T) {
	breaker := newTestBreaker(t, &stubBook{cash: 1000})

	// Avg 2 * multiplier 3 = 6 < min absolute 25
	breaker.RecordTrade(2)

	assert.InDelta(t, 25.0, breaker.GetStatus().DisableThreshold, 0.001)
}
