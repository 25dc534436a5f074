// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Feed metrics
	TicksProcessed    prometheus.Counter
	TicksOutOfOrder   prometheus.Counter
	TicksOutsideHours prometheus.Counter
	FeedReconnects    prometheus.Counter
	LastTickUnixTime  prometheus.Gauge

	// Signal metrics
	SignalsDetected *prometheus.CounterVec
	ReentrySignals  prometheus.Counter

	// Risk metrics
	EntriesRejected *prometheus.CounterVec

	// Position metrics
	PositionsOpened  prometheus.Counter
	PositionsClosed  *prometheus.CounterVec
	OpenPositions    prometheus.Gauge
	TradesToday      prometheus.Gauge
	IntentsSubmitted *prometheus.CounterVec
	IntentFailures   *prometheus.CounterVec

	// Persistence metrics
	EventsPersisted   prometheus.Counter
	PersistenceErrors *prometheus.CounterVec
	AuditQueueDepth   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "options_engine"
	}

	return &Metrics{
		// Feed metrics
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_processed_total",
			Help:      "Total number of premium ticks processed",
		}),
		TicksOutOfOrder: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_out_of_order_total",
			Help:      "Total number of ticks dropped for non-monotonic timestamps",
		}),
		TicksOutsideHours: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_outside_hours_total",
			Help:      "Total number of ticks received outside the session window",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnection attempts",
		}),
		LastTickUnixTime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_tick_unix_timestamp",
			Help:      "Unix timestamp of the last processed tick",
		}),

		// Signal metrics
		SignalsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "detected_total",
			Help:      "Total number of entry signals detected by kind",
		}, []string{"kind"}),
		ReentrySignals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "reentry_total",
			Help:      "Total number of reentry signals detected",
		}),

		// Risk metrics
		EntriesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "entries_rejected_total",
			Help:      "Total number of entries rejected by the risk gate, by reason",
		}, []string{"reason"}),

		// Position metrics
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "opened_total",
			Help:      "Total number of confirmed position entries",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "closed_total",
			Help:      "Total number of closed positions by exit reason",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Number of currently open positions",
		}),
		TradesToday: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "trades_today",
			Help:      "Confirmed entries in the current session",
		}),
		IntentsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "intents_submitted_total",
			Help:      "Total number of order intents submitted by kind",
		}, []string{"kind"}),
		IntentFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "intent_failures_total",
			Help:      "Total number of order intents rejected or timed out",
		}, []string{"kind", "outcome"}),

		// Persistence metrics
		EventsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_persisted_total",
			Help:      "Total number of lifecycle events written to storage",
		}),
		PersistenceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "persistence_errors_total",
			Help:      "Total number of storage write failures after retries",
		}, []string{"store"}),
		AuditQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "queue_depth",
			Help:      "Current number of events waiting to be persisted",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
