package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview"

// event outcomes
const (
	OutcomeOK      = "ok"
	OutcomeDropped = "dropped"
	OutcomeError   = "error"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held in the registry",
	})

	sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Inbound session events by outcome",
	}, []string{"event", "outcome"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "operation-error frames sent to clients",
	}, []string{"code"})

	collaboratorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collaborator_request_duration_seconds",
		Help:      "Latency of calls to the AI collaborator",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"operation", "outcome"})
)

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func ObserveEvent(event, outcome string) {
	sessionEvents.WithLabelValues(event, outcome).Inc()
}

func ObserveOperationError(code string) {
	operationErrors.WithLabelValues(code).Inc()
}

func ObserveCollaborator(operation, outcome string, elapsed time.Duration) {
	collaboratorLatency.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}
