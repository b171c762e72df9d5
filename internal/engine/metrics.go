package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "active_sessions",
		Help:      "Sessions currently being stepped by the scheduler",
	})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "queued_requests",
		Help:      "Requests waiting in the intake queue",
	})

	chunksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "chunks_total",
		Help:      "Total text chunks delivered to callers",
	})

	sessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "sessions_finished_total",
		Help:      "Finished sessions by outcome",
	}, []string{"outcome"})

	activationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "activation_failures_total",
		Help:      "Requests dropped because session activation failed",
	})

	persistenceErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "persistence_errors_total",
		Help:      "Chat entry store calls that failed",
	})

	completionsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "completions_dropped_total",
		Help:      "Completion records dropped because the hand-off buffer was full",
	})
)

func init() {
	prometheus.MustRegister(
		activeSessionsGauge,
		queueDepthGauge,
		chunksTotal,
		sessionsTotal,
		activationFailuresTotal,
		persistenceErrorsTotal,
		completionsDroppedTotal,
	)
}
