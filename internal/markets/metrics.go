package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	LookupDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "longshot_metadata_lookup_duration_seconds",
		Help:    "Market metadata REST lookup latency",
		Buckets: prometheus.DefBuckets,
	})

	LookupErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_metadata_lookup_errors_total",
		Help: "Total number of failed market metadata lookups",
	})
)
