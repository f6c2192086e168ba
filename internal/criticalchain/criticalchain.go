// Package criticalchain implements the critical-chain service (C5):
// identify the zero-slack critical path, resolve resource conflicts along
// it via leveling restricted to its own tasks, then recompute the longest
// path through the now resource-feasible graph.
package criticalchain

import (
	"sort"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmgraph"
	"github.com/aristath/ccpm/internal/leveling"
	"github.com/aristath/ccpm/internal/resource"
	"github.com/aristath/ccpm/internal/task"
)

// Identify finds the critical path and then resolves any resource
// conflicts along it, returning the final critical chain as an ordered
// sequence of task ids. tasks must already have EarlyStart/EarlyFinish/
// LateStart/LateFinish/Slack/IsCritical populated by
// ccpmgraph.ForwardBackwardPass. order is the full project's topological
// order; deps is the full project's dependency map.
func Identify(tasks map[string]*task.Task, order []string, deps map[string][]string, registry *resource.Registry, projectCal *calendar.Calendar, projectStart time.Time) ([]string, error) {
	path := longestCriticalPath(tasks, order, deps)

	resolvedDeps := addResourceOrderingEdges(tasks, path, deps)

	restricted := make(map[string]*task.Task, len(path))
	for _, id := range path {
		restricted[id] = tasks[id]
	}

	pathDeps := restrictDeps(resolvedDeps, path)
	g := leveling.Graph{
		Dependencies: pathDeps,
		Dependents:   reverseDeps(path, pathDeps),
	}

	if _, err := leveling.Level(restricted, g, path, nil, registry, projectCal, projectStart); err != nil {
		return nil, err
	}

	finalPath := longestPathByActualDates(tasks, path, resolvedDeps, projectCal, projectStart)

	for _, id := range finalPath {
		tasks[id].IsCritical = true
		tasks[id].ChainID = "critical"
	}

	return finalPath, nil
}

// longestCriticalPath restricts the graph to slack=0 tasks and returns the
// longest path by aggressive duration through them, ties broken by lower
// terminal task id — per spec.md §4.5 step 1.
func longestCriticalPath(tasks map[string]*task.Task, order []string, deps map[string][]string) []string {
	var criticalOrder []string
	critical := make(map[string]bool)
	for _, id := range order {
		if tasks[id].IsCritical {
			criticalOrder = append(criticalOrder, id)
			critical[id] = true
		}
	}

	criticalDeps := make(map[string][]string, len(criticalOrder))
	for _, id := range criticalOrder {
		for _, dep := range deps[id] {
			if critical[dep] {
				criticalDeps[id] = append(criticalDeps[id], dep)
			}
		}
	}

	path, _ := ccpmgraph.LongestPathByDuration(criticalOrder, criticalDeps, func(id string) float64 {
		return tasks[id].AggressiveDuration
	})
	return path
}

// addResourceOrderingEdges adds a dependency edge from the earlier-priority
// task to the later one for every pair of path tasks that share a resource
// and have no existing dependency path, so leveling's forward scheduling
// honors "earlier-scheduled one keeps its slot" without re-deriving that
// rule inside leveling itself. Priority is (lower early_start, lower id),
// matching spec.md §4.5 step 2.
func addResourceOrderingEdges(tasks map[string]*task.Task, path []string, deps map[string][]string) map[string][]string {
	out := make(map[string][]string, len(deps))
	for id, ds := range deps {
		out[id] = append([]string(nil), ds...)
	}

	reachable := func(from, to string) bool {
		seen := map[string]bool{from: true}
		queue := []string{from}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, dep := range out[cur] {
				if dep == to {
					return true
				}
				if !seen[dep] {
					seen[dep] = true
					queue = append(queue, dep)
				}
			}
		}
		return false
	}

	sorted := append([]string(nil), path...)
	sort.Strings(sorted)

	for i, id1 := range sorted {
		for _, id2 := range sorted[i+1:] {
			if !sharesResource(tasks[id1], tasks[id2]) {
				continue
			}
			if reachable(id1, id2) || reachable(id2, id1) {
				continue
			}
			first, second := priorityOrder(tasks[id1], tasks[id2])
			out[second] = append(out[second], first)
		}
	}
	return out
}

func sharesResource(a, b *task.Task) bool {
	names := make(map[string]bool, len(a.Resources))
	for _, r := range a.Resources {
		names[r.Name] = true
	}
	for _, r := range b.Resources {
		if names[r.Name] {
			return true
		}
	}
	return false
}

// priorityOrder returns (first, second) such that first keeps its slot:
// lower early_start wins, ties broken by lower id.
func priorityOrder(a, b *task.Task) (string, string) {
	if a.EarlyStart != b.EarlyStart {
		if a.EarlyStart < b.EarlyStart {
			return a.ID, b.ID
		}
		return b.ID, a.ID
	}
	if a.ID < b.ID {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}

func reverseDeps(ids []string, deps map[string][]string) map[string][]string {
	rev := make(map[string][]string, len(ids))
	for _, id := range ids {
		rev[id] = nil
	}
	for id, ds := range deps {
		for _, d := range ds {
			rev[d] = append(rev[d], id)
		}
	}
	return rev
}

func restrictDeps(deps map[string][]string, path []string) map[string][]string {
	members := make(map[string]bool, len(path))
	for _, id := range path {
		members[id] = true
	}
	out := make(map[string][]string, len(path))
	for _, id := range path {
		for _, dep := range deps[id] {
			if members[dep] {
				out[id] = append(out[id], dep)
			}
		}
	}
	return out
}

// longestPathByActualDates recomputes the critical chain over the
// resource-ordering-augmented graph, weighting by elapsed working days
// between the leveled start/end, so a resource-induced delay lengthens the
// chain exactly as spec.md §4.5 step 3 requires.
func longestPathByActualDates(tasks map[string]*task.Task, path []string, resolvedDeps map[string][]string, projectCal *calendar.Calendar, projectStart time.Time) []string {
	members := make(map[string]bool, len(path))
	for _, id := range path {
		members[id] = true
	}
	restricted := restrictDeps(resolvedDeps, path)

	order, err := ccpmgraph.TopoOrder(nodesFor(path, restricted))
	if err != nil {
		// Augmented edges cannot introduce a cycle among these tasks (they
		// only run forward from a strictly lower (early_start, id) task),
		// but fall back to the original path rather than panicking if they
		// somehow did.
		return path
	}

	finalPath, _ := ccpmgraph.LongestPathByDuration(order, restricted, func(id string) float64 {
		return projectCal.WorkdaysBetween(tasks[id].StartDate, tasks[id].EndDate)
	})
	if len(finalPath) == 0 {
		return path
	}
	return finalPath
}

type idNode struct {
	id   string
	deps []string
}

func (n idNode) NodeID() string             { return n.id }
func (n idNode) NodeDependencies() []string { return n.deps }

func nodesFor(ids []string, deps map[string][]string) []ccpmgraph.Node {
	nodes := make([]ccpmgraph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = idNode{id: id, deps: deps[id]}
	}
	return nodes
}
