package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "longshot_stream_active_connections",
		Help: "Number of active trade feed connections",
	})

	MessagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_stream_messages_received_total",
		Help: "Total number of trade feed messages received by type",
	}, []string{"type"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "longshot_stream_events_dropped_total",
		Help: "Total number of trade events dropped",
	}, []string{"reason"})

	MessageLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "longshot_stream_message_latency_seconds",
		Help:    "Latency of trade message decode and dispatch",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
	})

	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "longshot_stream_connection_duration_seconds",
		Help:    "Duration of trade feed connections before disconnect",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	})

	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_stream_reconnect_attempts_total",
		Help: "Total number of reconnection attempts",
	})

	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longshot_stream_reconnect_failures_total",
		Help: "Total number of failed reconnection attempts",
	})
)
