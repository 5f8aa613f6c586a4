package review

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_review_decisions_total",
		Help: "Total number of review decisions by status",
	}, []string{"status"})

	ConcernsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_review_concerns_total",
		Help: "Total number of concerns raised by rule code",
	}, []string{"code"})
)
