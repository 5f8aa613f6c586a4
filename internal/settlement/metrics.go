package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_settlement_sweeps_total",
		Help: "Total number of settlement sweeps",
	})

	PositionsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_settlement_positions_total",
		Help: "Total number of positions settled by sweeps",
	})
)
