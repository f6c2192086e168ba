package ccpmgraph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aristath/ccpm/internal/ccpmerrors"
	"github.com/aristath/ccpm/internal/task"
)

type testNode struct {
	id   string
	deps []string
}

func (n testNode) NodeID() string            { return n.id }
func (n testNode) NodeDependencies() []string { return n.deps }

func nodes(pairs ...[2]interface{}) []Node {
	var out []Node
	for _, p := range pairs {
		out = append(out, testNode{id: p[0].(string), deps: p[1].([]string)})
	}
	return out
}

func TestTopoOrderLinear(t *testing.T) {
	ns := nodes(
		[2]interface{}{"A", []string(nil)},
		[2]interface{}{"B", []string{"A"}},
		[2]interface{}{"C", []string{"B"}},
	)

	order, err := TopoOrder(ns)
	if err != nil {
		t.Fatalf("TopoOrder() error = %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if !(pos["A"] < pos["B"] && pos["B"] < pos["C"]) {
		t.Errorf("expected order A, B, C; got %v", order)
	}
}

func TestTopoOrderDetectsCycle(t *testing.T) {
	ns := nodes(
		[2]interface{}{"A", []string{"B"}},
		[2]interface{}{"B", []string{"A"}},
	)

	_, err := TopoOrder(ns)
	var cycleErr *ccpmerrors.CycleDetected
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
	if len(cycleErr.Path) < 2 {
		t.Errorf("expected cycle path with at least 2 nodes, got %v", cycleErr.Path)
	}
}

func TestReverseGraph(t *testing.T) {
	ns := nodes(
		[2]interface{}{"A", []string(nil)},
		[2]interface{}{"B", []string{"A"}},
		[2]interface{}{"C", []string{"A"}},
	)

	rev := ReverseGraph(ns)
	got := append([]string(nil), rev["A"]...)
	want := []string{"B", "C"}

	sortStrings(got)
	sortStrings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReverseGraph()[A] = %v, want %v", got, want)
	}
	if len(rev["B"]) != 0 {
		t.Errorf("ReverseGraph()[B] should have no dependents, got %v", rev["B"])
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func TestLongestPathByDurationDiamond(t *testing.T) {
	// A -> B -> D, A -> C -> D; B is longer, so the critical path is A,B,D.
	order := []string{"A", "B", "C", "D"}
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	}
	weight := map[string]float64{"A": 1, "B": 5, "C": 2, "D": 1}

	path, finish := LongestPathByDuration(order, deps, func(id string) float64 { return weight[id] })

	want := []string{"A", "B", "D"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("LongestPathByDuration() path = %v, want %v", path, want)
	}
	if finish["D"] != 7 {
		t.Errorf("finish[D] = %v, want 7", finish["D"])
	}
}

func TestForwardBackwardPassDiamond(t *testing.T) {
	mk := func(id string, duration float64) *task.Task {
		tk, err := task.New(id, id, duration, duration, nil, nil)
		if err != nil {
			t.Fatalf("task.New(%s) error = %v", id, err)
		}
		return tk
	}

	tasks := map[string]*task.Task{
		"A": mk("A", 1),
		"B": mk("B", 5),
		"C": mk("C", 2),
		"D": mk("D", 1),
	}
	order := []string{"A", "B", "C", "D"}
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	}

	ForwardBackwardPass(tasks, order, deps)

	if tasks["A"].EarlyStart != 0 || tasks["A"].EarlyFinish != 1 {
		t.Errorf("A early = (%v, %v), want (0, 1)", tasks["A"].EarlyStart, tasks["A"].EarlyFinish)
	}
	if tasks["D"].EarlyFinish != 7 {
		t.Errorf("D.EarlyFinish = %v, want 7", tasks["D"].EarlyFinish)
	}
	if !tasks["A"].IsCritical || !tasks["B"].IsCritical || !tasks["D"].IsCritical {
		t.Errorf("expected A, B, D on the critical path")
	}
	if tasks["C"].IsCritical {
		t.Errorf("C has slack (shorter branch), should not be critical")
	}
	if tasks["C"].Slack <= 0 {
		t.Errorf("C.Slack = %v, want > 0", tasks["C"].Slack)
	}
}
