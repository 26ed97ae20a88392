package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconcileOutcomes counts Reconcile calls by outcome.
	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Subsystem: "jobs",
		Name:      "reconcile_total",
		Help:      "Reconcile calls by outcome.",
	}, []string{"outcome"})

	// TerminalTransitions counts persisted terminal writes by status and
	// failure cause. Zombie jobs show up as cause="executor_job_missing".
	TerminalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Subsystem: "jobs",
		Name:      "terminal_transitions_total",
		Help:      "Terminal status writes by status and failure cause.",
	}, []string{"status", "cause"})

	// ExecutorRequests counts executor calls by operation and result.
	ExecutorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Subsystem: "executor",
		Name:      "requests_total",
		Help:      "Executor requests by operation and result.",
	}, []string{"op", "result"})

	// ExecutorDuration tracks executor call latency.
	ExecutorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scancore",
		Subsystem: "executor",
		Name:      "request_duration_seconds",
		Help:      "Executor request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// NormalizedFindings counts findings emitted by normalizer category.
	NormalizedFindings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Subsystem: "normalize",
		Name:      "findings_total",
		Help:      "Findings emitted by normalizer category.",
	}, []string{"category"})
)
