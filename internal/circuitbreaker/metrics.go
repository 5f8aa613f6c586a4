package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_breaker_enabled",
		Help: "Whether the circuit breaker currently allows new opens (1 = enabled, 0 = disabled)",
	})

	BreakerCash = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_breaker_cash",
		Help: "Book cash observed at the last breaker check",
	})

	BreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_breaker_disable_threshold",
		Help: "Cash level below which the breaker disables new opens",
	})

	BreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_breaker_enable_threshold",
		Help: "Cash level above which a disabled breaker re-enables",
	})

	BreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_breaker_avg_trade_size",
		Help: "Average entry cost over the rolling trade window",
	})

	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_breaker_state_changes_total",
		Help: "Total number of breaker enable/disable transitions",
	})
)
