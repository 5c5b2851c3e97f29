// Package observability holds the Prometheus metrics of the progression engine.
// Every counter is registered on the default registry and exposed by the
// API server at /metrics.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Progression Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// CoinsAwarded tracks coins credited by reason.
var CoinsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "ledger",
	Name:      "coins_awarded_total",
	Help:      "Total coins credited to the player, by reason.",
}, []string{"reason"})

// CoinsSpent tracks coins debited.
var CoinsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "ledger",
	Name:      "coins_spent_total",
	Help:      "Total coins spent by the player.",
})

// ExperienceAwarded tracks character experience gained.
var ExperienceAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "ledger",
	Name:      "experience_awarded_total",
	Help:      "Total character experience gained.",
})

// LevelUps tracks character level-ups.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "ledger",
	Name:      "level_ups_total",
	Help:      "Total character level-ups.",
})

// AnswersRecorded tracks answers by subject and correctness.
var AnswersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "ledger",
	Name:      "answers_recorded_total",
	Help:      "Total answers recorded, by subject and correctness.",
}, []string{"subject", "correct"})

// ─── Achievement Metrics ────────────────────────────────────────────────────

// AchievementsUnlocked tracks unlocks by rarity.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "achievements",
	Name:      "unlocked_total",
	Help:      "Total achievements unlocked, by rarity.",
}, []string{"rarity"})

// ─── Power-Up Metrics ───────────────────────────────────────────────────────

// PowerUpActivations tracks activation attempts by power-up and outcome.
var PowerUpActivations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "powerups",
	Name:      "activations_total",
	Help:      "Total power-up activation attempts, by power-up and result.",
}, []string{"power_up", "result"})

// ─── Event Metrics ──────────────────────────────────────────────────────────

// EventsTriggered tracks event activations.
var EventsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "events",
	Name:      "triggered_total",
	Help:      "Total events triggered, by event.",
}, []string{"event"})

// EventOutcomes tracks how event activations ended.
var EventOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "events",
	Name:      "outcomes_total",
	Help:      "Total event activations ended, by event and status.",
}, []string{"event", "status"})

// ─── Storage Metrics ────────────────────────────────────────────────────────

// StorageOperations tracks persistence calls by backend, operation and result.
var StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "brainquest",
	Subsystem: "storage",
	Name:      "operations_total",
	Help:      "Total persistence operations, by backend, operation and result.",
}, []string{"backend", "op", "result"})

// SaveSizeBytes tracks the encoded size of saved envelopes.
var SaveSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "brainquest",
	Subsystem: "storage",
	Name:      "save_size_bytes",
	Help:      "Size of the serialized save envelope in bytes.",
	Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
})

// ─── Helpers ────────────────────────────────────────────────────────────────

// Result maps an ok flag to the "ok"/"error" label value.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// Bool renders a bool label value.
func Bool(b bool) string { return strconv.FormatBool(b) }
