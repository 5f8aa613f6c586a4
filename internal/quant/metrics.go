package quant

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_verdicts_total",
		Help: "Total number of verdicts by tier",
	}, []string{"tier"})

	EvaluationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_evaluation_errors_total",
		Help: "Total number of calibration store failures during evaluation",
	})

	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "longshot_evaluation_duration_seconds",
		Help:    "Time spent evaluating a candidate",
		Buckets: prometheus.DefBuckets,
	})
)
