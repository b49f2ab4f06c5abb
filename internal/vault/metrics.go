package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mirrorAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvault_mirror_attempts_total",
		Help: "Vault mirror attempts by result.",
	}, []string{"result"})

	mirrorDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelvault_mirror_duration_seconds",
		Help:    "Time spent duplicating a resource into the vault.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	mirrorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelvault_mirror_queue_depth",
		Help: "Mirror tasks waiting for a worker.",
	})

	mirrorDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelvault_mirror_dropped_total",
		Help: "Mirror tasks dropped because the queue was full.",
	})

	staleDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelvault_stale_handles_detected_total",
		Help: "Handles newly flagged stale after a provider rejection.",
	})

	staleBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelvault_stale_handles_blocked_total",
		Help: "Handle uses refused because the record awaits refresh.",
	})

	reconcileOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvault_reconcile_outcomes_total",
		Help: "Archive notifications by outcome and resolver.",
	}, []string{"outcome", "resolver"})
)
