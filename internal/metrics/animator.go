// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enqueue results.
const (
	EnqueueAccepted        = "accepted"
	EnqueueForced          = "forced"
	EnqueueOverwritten     = "overwritten"
	EnqueueRejectedFull    = "rejected_full"
	EnqueueRejectedDrained = "rejected_drained"
)

// Handler failure reasons.
const (
	FailureError = "error"
	FailurePanic = "panic"
	FailureExit  = "goexit"
)

// Worker exit reasons.
const (
	ExitTerminated = "terminated"
	ExitShrink     = "shrink"
	ExitIdle       = "idle"
	ExitDied       = "died"
)

var (
	enqueueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_enqueue_total",
		Help: "Enqueue attempts by animator kind and result",
	}, []string{"kind", "result"})

	forcedOverwritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_forced_overwrites_total",
		Help: "Applications discarded because a forced enqueue hit a full queue",
	}, []string{"kind"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animator_handler_duration_seconds",
		Help:    "Handler execution latency",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"kind"})

	handlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_handler_failures_total",
		Help: "Handler invocations that failed, by reason",
	}, []string{"kind", "reason"}) // reason=error|panic|goexit

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_status_transitions_total",
		Help: "Completed status transitions",
	}, []string{"kind", "from", "to"})

	workerExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_worker_exits_total",
		Help: "Worker goroutine exits by reason",
	}, []string{"kind", "reason"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "animator_queue_depth",
		Help: "Pending applications per animator",
	}, []string{"animator"})

	threads = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "animator_threads",
		Help: "Live worker goroutines per animator",
	}, []string{"animator"})
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncEnqueue records the outcome of an enqueue call.
func IncEnqueue(kind, result string) {
	kind = orUnknown(kind)
	enqueueTotal.WithLabelValues(kind, orUnknown(result)).Inc()
	if result == EnqueueOverwritten {
		forcedOverwritesTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveHandlerDuration records how long one handler invocation took.
func ObserveHandlerDuration(kind string, d time.Duration) {
	handlerDuration.WithLabelValues(orUnknown(kind)).Observe(d.Seconds())
}

// IncHandlerFailure counts a failed handler invocation.
func IncHandlerFailure(kind, reason string) {
	handlerFailuresTotal.WithLabelValues(orUnknown(kind), orUnknown(reason)).Inc()
}

// IncTransition counts a status change that took effect.
func IncTransition(kind, from, to string) {
	transitionsTotal.WithLabelValues(orUnknown(kind), from, to).Inc()
}

// IncWorkerExit counts a worker goroutine leaving its loop.
func IncWorkerExit(kind, reason string) {
	workerExitsTotal.WithLabelValues(orUnknown(kind), orUnknown(reason)).Inc()
}

func SetQueueDepth(animator string, depth int) {
	queueDepth.WithLabelValues(animator).Set(float64(depth))
}

func SetThreads(animator string, n int) {
	threads.WithLabelValues(animator).Set(float64(n))
}

// ForgetAnimator removes the per-animator series of a terminated animator.
func ForgetAnimator(animator string) {
	queueDepth.DeleteLabelValues(animator)
	threads.DeleteLabelValues(animator)
}
