package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	QueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "longshot_stats_query_duration_seconds",
		Help:    "Calibration query latency by query kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	QueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_stats_query_errors_total",
		Help: "Total number of failed calibration queries",
	})
)
