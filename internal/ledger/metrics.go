package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	PositionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_positions_opened_total",
		Help: "Total number of positions opened",
	})

	PositionsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_positions_settled_total",
		Help: "Total number of positions settled by outcome",
	}, []string{"outcome"})

	OpenRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_open_rejections_total",
		Help: "Total number of rejected open attempts by reason",
	}, []string{"reason"})

	BookCash = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_book_cash",
		Help: "Current cash balance of the paper book",
	})

	BookRealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_book_realized_pnl",
		Help: "Cumulative realized profit and loss",
	})

	BookOpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_book_open_positions",
		Help: "Number of currently open positions",
	})
)
