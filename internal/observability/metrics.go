// Package observability registers the client's prometheus metrics and can
// expose them on a local address when configured.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Appends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsole_appends_total",
			Help: "Total number of messages appended to the realtime store.",
		},
	)
	AppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsole_append_failures_total",
			Help: "Total number of failed append attempts.",
		},
	)
	StreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsole_stream_reconnects_total",
			Help: "Total number of event-stream reconnections.",
		},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gsole_queue_depth",
			Help: "Number of messages waiting in the offline send queue.",
		},
	)
	QueueDrains = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsole_queue_drains_total",
			Help: "Total number of completed queue drains.",
		},
	)
	QueueDeadLetters = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gsole_queue_dead_letters_total",
			Help: "Total number of queued messages that exhausted their retry budget.",
		},
	)
	ConnectivityChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsole_connectivity_changes_total",
			Help: "Total number of connectivity transitions.",
		},
		[]string{"to"},
	)
)

func init() {
	prometheus.MustRegister(
		Appends,
		AppendFailures,
		StreamReconnects,
		QueueDepth,
		QueueDrains,
		QueueDeadLetters,
		ConnectivityChanges,
	)
}

// Serve exposes /metrics on addr in a background goroutine. Best-effort:
// a bind failure is logged, never fatal.
func Serve(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
