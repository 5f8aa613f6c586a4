package scoreboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_scoreboard_fetch_errors_total",
		Help: "Total number of failed scoreboard fetches",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_scoreboard_resolutions_total",
		Help: "Total number of outcome resolutions by status",
	}, []string{"status"})
)
