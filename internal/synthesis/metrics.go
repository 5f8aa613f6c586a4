package synthesis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ProposalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_proposals_total",
		Help: "Total number of proposals by disposition and confidence",
	}, []string{"disposition", "confidence"})

	SummaryFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_summary_fallbacks_total",
		Help: "Total number of narrative summaries that fell back to the template",
	})
)
