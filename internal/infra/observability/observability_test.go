package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue gathers the default registry and returns the counter of
// family name whose labels include every pair of want.
func counterValue(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			have := map[string]string{}
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if have[k] != v {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

// ═══════════════════════════════════════════════════════════════════════════
// Metrics
// ═══════════════════════════════════════════════════════════════════════════

func TestCounters_Increment(t *testing.T) {
	coins := map[string]string{"reason": "test"}
	before := counterValue(t, "brainquest_ledger_coins_awarded_total", coins)
	CoinsAwarded.WithLabelValues("test").Add(15)
	if got := counterValue(t, "brainquest_ledger_coins_awarded_total", coins) - before; got != 15 {
		t.Errorf("CoinsAwarded delta = %v, want 15", got)
	}

	ops := map[string]string{"backend": "memory", "op": "put", "result": "error"}
	before = counterValue(t, "brainquest_storage_operations_total", ops)
	StorageOperations.WithLabelValues("memory", "put", Result(false)).Inc()
	if got := counterValue(t, "brainquest_storage_operations_total", ops) - before; got != 1 {
		t.Errorf("StorageOperations delta = %v, want 1", got)
	}
}

func TestMetrics_RegisteredWithNamespace(t *testing.T) {
	AnswersRecorded.WithLabelValues("math", Bool(true)).Inc()
	SaveSizeBytes.Observe(1024)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "brainquest_") {
			found[f.GetName()] = true
		}
	}
	for _, name := range []string{"brainquest_ledger_coins_awarded_total", "brainquest_storage_save_size_bytes"} {
		if !found[name] {
			t.Errorf("metric %s not registered; have %v", name, found)
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func TestLabelHelpers(t *testing.T) {
	if Result(true) != "ok" || Result(false) != "error" {
		t.Errorf("Result() = %q/%q", Result(true), Result(false))
	}
	if Bool(true) != "true" || Bool(false) != "false" {
		t.Errorf("Bool() = %q/%q", Bool(true), Bool(false))
	}
}
