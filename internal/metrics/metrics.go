// Package metrics exposes the Prometheus series the control plane updates
// during operation, registered once in init() and served by the HTTP
// handler started in cmd/kaskade, mirroring the teacher bot's metrics.go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TicksTotal counts scheduler ticks per pair.
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaskade_scheduler_ticks_total",
			Help: "Scheduler ticks executed, by pair.",
		},
		[]string{"pair"},
	)

	// CandidatesSelected counts intents selected by DRR per tick.
	CandidatesSelected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaskade_candidates_selected_total",
			Help: "Sessions selected as intents by the scheduler, by pair.",
		},
		[]string{"pair"},
	)

	// ReservationOutcomes counts reserve_execution outcomes (success/cas_miss/empty).
	ReservationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaskade_reservation_outcomes_total",
			Help: "reserve_execution outcomes, by pair and outcome.",
		},
		[]string{"pair", "outcome"},
	)

	// ChunkOutcomes counts batch-item terminal outcomes.
	ChunkOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaskade_chunk_outcomes_total",
			Help: "Batch item terminal outcomes, by pair and status.",
		},
		[]string{"pair", "status"},
	)

	// PulseValidity reports 1 when the latest pulse for a pair/kind is valid, else 0.
	PulseValidity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kaskade_pulse_valid",
			Help: "1 if the latest pulse evaluation was valid, 0 otherwise.",
		},
		[]string{"pair", "pulse"},
	)

	// SlowOps counts operations that exceeded their watchdog threshold.
	SlowOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaskade_slow_ops_total",
			Help: "Operations that exceeded their slow-op watchdog threshold.",
		},
		[]string{"op"},
	)

	// RecoveredBatches counts batches aborted by recover_uncommitted at startup.
	RecoveredBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kaskade_recovered_batches_total",
			Help: "RESERVED batches aborted by startup recovery.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		CandidatesSelected,
		ReservationOutcomes,
		ChunkOutcomes,
		PulseValidity,
		SlowOps,
		RecoveredBatches,
	)
}
