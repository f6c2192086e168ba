package criticalchain

import (
	"testing"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmgraph"
	"github.com/aristath/ccpm/internal/resource"
	"github.com/aristath/ccpm/internal/task"
)

func mk(t *testing.T, id string, duration float64, deps []string) *task.Task {
	t.Helper()
	tk, err := task.New(id, id, duration, duration, deps, nil)
	if err != nil {
		t.Fatalf("task.New(%s) error = %v", id, err)
	}
	return tk
}

func TestIdentifyPicksHigherDurationZeroSlackPath(t *testing.T) {
	// A -> B -> D (duration 1+5+1=7, critical)
	// A -> C -> D (duration 1+2+1=4, slack)
	tasks := map[string]*task.Task{
		"A": mk(t, "A", 1, nil),
		"B": mk(t, "B", 5, []string{"A"}),
		"C": mk(t, "C", 2, []string{"A"}),
		"D": mk(t, "D", 1, []string{"B", "C"}),
	}
	order := []string{"A", "B", "C", "D"}
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	}
	ccpmgraph.ForwardBackwardPass(tasks, order, deps)

	registry := resource.NewRegistry()
	cal := calendar.New()
	start := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)

	chain, err := Identify(tasks, order, deps, registry, cal, start)
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	want := []string{"A", "B", "D"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i, id := range want {
		if chain[i] != id {
			t.Errorf("chain[%d] = %v, want %v", i, chain[i], id)
		}
	}
	if !tasks["C"].IsCritical == false {
		t.Errorf("C should not be marked critical")
	}
	if !tasks["B"].IsCritical {
		t.Errorf("B should be marked critical")
	}
}

func TestAddResourceOrderingEdgesOrdersByEarlyStartThenID(t *testing.T) {
	a := mk(t, "A", 2, nil)
	b := mk(t, "B", 2, nil)
	a.Resources = []task.ResourceRequirement{{Name: "dev", Units: 1}}
	b.Resources = []task.ResourceRequirement{{Name: "dev", Units: 1}}
	a.EarlyStart = 0
	b.EarlyStart = 5

	tasks := map[string]*task.Task{"A": a, "B": b}
	path := []string{"A", "B"}
	deps := map[string][]string{"A": nil, "B": nil}

	resolved := addResourceOrderingEdges(tasks, path, deps)

	found := false
	for _, dep := range resolved["B"] {
		if dep == "A" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected resource ordering edge A -> B (A has lower early_start), got deps[B] = %v", resolved["B"])
	}
}
