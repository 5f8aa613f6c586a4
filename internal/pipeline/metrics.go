package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_events_total",
		Help: "Total number of trade events by classified category",
	}, []string{"category"})

	CandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_candidates_total",
		Help: "Total number of candidates emitted by action",
	}, []string{"action"})

	FilterDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_filter_drops_total",
		Help: "Total number of events dropped inside the ignore band",
	})

	MetadataFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_metadata_failures_total",
		Help: "Total number of failed metadata enrichment lookups",
	})

	StageResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_stage_results_total",
		Help: "Total number of pipeline outcomes by stage and status",
	}, []string{"stage", "status"})
)
