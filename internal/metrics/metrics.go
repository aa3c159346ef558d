package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/arkit/pkg/connect"
)

var (
	transitionsTotal     *prometheus.CounterVec
	probesTotal          *prometheus.CounterVec
	connectAttemptsTotal *prometheus.CounterVec
	connectDuration      *prometheus.HistogramVec
	sessionConnected     *prometheus.GaugeVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers all Prometheus metrics with the default registry.
// It is safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		transitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arkit_transitions_total",
				Help: "Total number of connection state transitions by target status",
			},
			[]string{"strategy", "status"},
		)

		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arkit_availability_probes_total",
				Help: "Total number of strategy availability probes",
			},
			[]string{"strategy", "result"},
		)

		connectAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arkit_connect_attempts_total",
				Help: "Total number of connect attempts",
			},
			[]string{"strategy", "outcome"},
		)

		connectDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arkit_connect_duration_seconds",
				Help:    "Duration of connect attempts in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"strategy"},
		)

		sessionConnected = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arkit_session_connected",
				Help: "Whether a strategy currently holds the session (1 = connected)",
			},
			[]string{"strategy"},
		)

		metricsRegistered = true
	})
}

// IsMetricsRegistered reports whether InitMetrics has run
func IsMetricsRegistered() bool {
	return metricsRegistered
}

// Observer records connection lifecycle events as Prometheus metrics.
type Observer struct {
	mu        sync.Mutex
	connected string
}

// NewObserver registers the metrics and returns an observer for
// connect.WithObserver.
func NewObserver() *Observer {
	InitMetrics()
	return &Observer{}
}

// Transition implements connect.Observer.
func (o *Observer) Transition(strategyID string, from, to connect.Status) {
	transitionsTotal.WithLabelValues(strategyID, to.String()).Inc()

	o.mu.Lock()
	defer o.mu.Unlock()
	if from == connect.StatusConnected && o.connected != "" {
		sessionConnected.WithLabelValues(o.connected).Set(0)
		o.connected = ""
	}
	if to == connect.StatusConnected {
		sessionConnected.WithLabelValues(strategyID).Set(1)
		o.connected = strategyID
	}
}

// Probed implements connect.Observer.
func (o *Observer) Probed(strategyID string, available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	probesTotal.WithLabelValues(strategyID, result).Inc()
}

// ConnectFinished implements connect.Observer.
func (o *Observer) ConnectFinished(strategyID string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	connectAttemptsTotal.WithLabelValues(strategyID, outcome).Inc()
	connectDuration.WithLabelValues(strategyID).Observe(elapsed.Seconds())
}

var _ connect.Observer = (*Observer)(nil)
