// Package ccpmgraph provides dependency-graph utilities shared by the
// forward/backward pass, critical-chain identification, and feeding-chain
// discovery: topological ordering, cycle detection, reverse adjacency, and
// longest-path-by-duration, all operating on task ids rather than pointers
// so callers stay in control of the task registry.
package ccpmgraph

import (
	"github.com/gammazero/toposort"

	"github.com/aristath/ccpm/internal/ccpmerrors"
	"github.com/aristath/ccpm/internal/task"
)

// Node is the minimal shape ccpmgraph needs from a task: an id and the ids
// of the tasks it depends on.
type Node interface {
	NodeID() string
	NodeDependencies() []string
}

// TopoOrder returns nodes topologically ordered so that every dependency
// precedes its dependents. It returns a *ccpmerrors.CycleDetected error
// naming one cycle if the dependency graph is not acyclic.
func TopoOrder(nodes []Node) ([]string, error) {
	index := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		index[n.NodeID()] = n
	}

	var edges []toposort.Edge
	for _, n := range nodes {
		if len(n.NodeDependencies()) == 0 {
			edges = append(edges, toposort.Edge{nil, n.NodeID()})
			continue
		}
		for _, dep := range n.NodeDependencies() {
			edges = append(edges, toposort.Edge{dep, n.NodeID()})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &ccpmerrors.CycleDetected{Path: findCycle(index)}
	}

	order := make([]string, 0, len(nodes))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(nodes) {
		return nil, &ccpmerrors.CycleDetected{Path: findCycle(index)}
	}

	return order, nil
}

// findCycle walks the graph with a recursion-stack DFS to report one
// concrete cycle, for inclusion in the CycleDetected error. It returns nil
// if (unexpectedly) no cycle is found.
func findCycle(index map[string]Node) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(index))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = visiting
		stack = append(stack, id)

		if n, ok := index[id]; ok {
			for _, dep := range n.NodeDependencies() {
				switch state[dep] {
				case unvisited:
					if cycle := visit(dep); cycle != nil {
						return cycle
					}
				case visiting:
					// Found the repeated node: slice the stack from its
					// first occurrence to here, closing the loop.
					for i, s := range stack {
						if s == dep {
							cycle := append([]string(nil), stack[i:]...)
							return append(cycle, dep)
						}
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for id := range index {
		if state[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ReverseGraph returns, for every node id, the ids of the nodes that
// directly depend on it (its dependents), the inverse of NodeDependencies.
func ReverseGraph(nodes []Node) map[string][]string {
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		if _, ok := dependents[n.NodeID()]; !ok {
			dependents[n.NodeID()] = nil
		}
		for _, dep := range n.NodeDependencies() {
			dependents[dep] = append(dependents[dep], n.NodeID())
		}
	}
	return dependents
}

// LongestPathByDuration runs a forward pass over nodes in dependency order,
// weighting each node by weight(id), and returns the set of node ids lying
// on the path whose total weight equals the critical path length, together
// with each node's finish distance from the sources. Ties among
// multiple maximum-weight predecessors are broken by the predecessor's own
// id, lowest first, for determinism.
func LongestPathByDuration(order []string, deps map[string][]string, weight func(id string) float64) (path []string, finish map[string]float64) {
	start := make(map[string]float64, len(order))
	finishAt := make(map[string]float64, len(order))
	predecessor := make(map[string]string, len(order))

	for _, id := range order {
		maxFinish := 0.0
		best := ""
		for _, dep := range deps[id] {
			if f, ok := finishAt[dep]; ok {
				if f > maxFinish || (f == maxFinish && (best == "" || dep < best)) {
					maxFinish = f
					best = dep
				}
			}
		}
		start[id] = maxFinish
		finishAt[id] = maxFinish + weight(id)
		if best != "" {
			predecessor[id] = best
		}
	}

	if len(order) == 0 {
		return nil, finishAt
	}

	// The path end is the node with the greatest finish time; ties broken
	// by lowest id for determinism.
	end := order[0]
	for _, id := range order {
		if finishAt[id] > finishAt[end] || (finishAt[id] == finishAt[end] && id < end) {
			end = id
		}
	}

	var reversed []string
	for cur := end; cur != ""; {
		reversed = append(reversed, cur)
		pred, ok := predecessor[cur]
		if !ok {
			break
		}
		cur = pred
	}
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	return reversed, finishAt
}

// ForwardBackwardPass computes EarlyStart/EarlyFinish/LateStart/LateFinish/
// Slack/IsCritical on every task in tasks, given their dependency order and
// the reverse (dependents) adjacency from ReverseGraph, weighting each task
// by its PlannedDuration — grounded on original_source/ccpm/utils/graph.py's
// forward_pass/backward_pass pair, translated into the same topological-DP
// shape TopoOrder/LongestPathByDuration already use.
func ForwardBackwardPass(tasks map[string]*task.Task, order []string, deps map[string][]string) {
	dependents := make(map[string][]string, len(tasks))
	for id := range tasks {
		dependents[id] = nil
	}
	for id, ds := range deps {
		for _, d := range ds {
			dependents[d] = append(dependents[d], id)
		}
	}

	weight := func(id string) float64 { return tasks[id].PlannedDuration }

	earlyStart := make(map[string]float64, len(order))
	earlyFinish := make(map[string]float64, len(order))
	for _, id := range order {
		maxFinish := 0.0
		for _, dep := range deps[id] {
			if f, ok := earlyFinish[dep]; ok && f > maxFinish {
				maxFinish = f
			}
		}
		earlyStart[id] = maxFinish
		earlyFinish[id] = maxFinish + weight(id)
	}

	projectDuration := 0.0
	for _, f := range earlyFinish {
		if f > projectDuration {
			projectDuration = f
		}
	}

	lateStart := make(map[string]float64, len(order))
	lateFinish := make(map[string]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		succ := dependents[id]
		if len(succ) == 0 {
			lateFinish[id] = projectDuration
		} else {
			minStart := lateStart[succ[0]]
			for _, s := range succ {
				if ls, ok := lateStart[s]; ok && ls < minStart {
					minStart = ls
				}
			}
			lateFinish[id] = minStart
		}
		lateStart[id] = lateFinish[id] - weight(id)
	}

	for _, id := range order {
		t := tasks[id]
		t.EarlyStart = earlyStart[id]
		t.EarlyFinish = earlyFinish[id]
		t.LateStart = lateStart[id]
		t.LateFinish = lateFinish[id]
		t.Slack = lateStart[id] - earlyStart[id]
		t.IsCritical = t.Slack <= 1e-9
	}
}

// StartTimes returns the early-start distance of every node, as a by-product
// of the same forward pass LongestPathByDuration performs. Kept separate so
// callers that only need start times don't have to discard the path.
func StartTimes(order []string, deps map[string][]string, weight func(id string) float64) map[string]float64 {
	start := make(map[string]float64, len(order))
	finishAt := make(map[string]float64, len(order))

	for _, id := range order {
		maxFinish := 0.0
		for _, dep := range deps[id] {
			if f, ok := finishAt[dep]; ok && f > maxFinish {
				maxFinish = f
			}
		}
		start[id] = maxFinish
		finishAt[id] = maxFinish + weight(id)
	}
	return start
}
