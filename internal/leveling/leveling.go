// Package leveling implements the resource-leveling service (C7):
// conflict-graph construction, priority-based greedy coloring, and
// wave-based forward scheduling against the resource registry, iterated to
// a fixed point.
package leveling

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmerrors"
	"github.com/aristath/ccpm/internal/resource"
	"github.com/aristath/ccpm/internal/task"
)

// MaxIterations bounds the fixed-point loop, per spec.md §4.7.
const MaxIterations = 8

// Graph supplies the dependency edges leveling needs without depending on
// any particular graph-building package.
type Graph struct {
	Dependencies map[string][]string // taskID -> ids it depends on
	Dependents   map[string][]string // taskID -> ids that depend on it (ReverseGraph output)
}

// reachable reports whether there is a dependency path from `from` to `to`
// in either direction, via BFS over Dependents then Dependencies.
func (g Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	return bfs(g.Dependents, from, to) || bfs(g.Dependencies, from, to)
}

func bfs(adj map[string][]string, from, to string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Level assigns a feasible StartDate/EndDate to every task in tasks (keyed
// by id) that is not in pinned, registering allocations in registry, such
// that no resource ever exceeds its available capacity on any day — unless
// a resource allows overallocation, in which case conflicts there are
// recorded rather than blocking. criticalChain lists the task ids that are
// visited first when coloring, ahead of every other task. pinned lists task ids
// that already carry a committed StartDate/EndDate and registry allocation
// from an earlier leveling pass (e.g. the critical chain's own
// resource-conflict resolution): Level leaves their schedule and
// allocations untouched but still consults their dates as a floor for
// tasks that depend on them. pinned may be nil. projectCal is the
// project-wide calendar used to convert durations into date spans.
func Level(tasks map[string]*task.Task, g Graph, criticalChain []string, pinned map[string]bool, registry *resource.Registry, projectCal *calendar.Calendar, projectStart time.Time) (int, error) {
	schedulable := make(map[string]*task.Task, len(tasks))
	for id, t := range tasks {
		if !pinned[id] {
			schedulable[id] = t
		}
	}

	prevStarts := map[string]time.Time{}

	for iteration := 1; iteration <= MaxIterations; iteration++ {
		deallocatePrevious(schedulable, registry)

		conflicts := buildConflictGraph(schedulable, g, registry)
		coloring := colorGraph(schedulable, conflicts, criticalChain)

		if err := scheduleByColor(tasks, schedulable, g, coloring, registry, projectCal, projectStart); err != nil {
			return iteration, err
		}

		starts := map[string]time.Time{}
		for id, t := range schedulable {
			starts[id] = t.StartDate
		}

		if iteration > 1 && sameStarts(prevStarts, starts) {
			return iteration, nil
		}
		prevStarts = starts
	}

	return MaxIterations, &ccpmerrors.LevelingDidNotConverge{Iterations: MaxIterations}
}

// deallocatePrevious removes this leveling pass's own allocations from the
// prior iteration so scheduleByColor can freely re-derive them; tasks not
// yet scheduled (zero StartDate) have nothing to remove.
func deallocatePrevious(tasks map[string]*task.Task, registry *resource.Registry) {
	for _, t := range tasks {
		if t.StartDate.IsZero() {
			continue
		}
		for cursor := t.StartDate; cursor.Before(t.EndDate); cursor = cursor.AddDate(0, 0, 1) {
			for _, r := range t.Resources {
				registry.Deallocate(r.Name, cursor, t.ID)
			}
		}
	}
}

func sameStarts(a, b map[string]time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for id, da := range a {
		db, ok := b[id]
		if !ok || !da.Equal(db) {
			return false
		}
	}
	return true
}

// buildConflictGraph connects two tasks when they share a resource whose
// combined demand could exceed capacity and neither is reachable from the
// other through dependencies (so nothing already orders them).
func buildConflictGraph(tasks map[string]*task.Task, g Graph, registry *resource.Registry) map[string]map[string]bool {
	conflicts := make(map[string]map[string]bool, len(tasks))
	ids := sortedIDs(tasks)

	for i, id1 := range ids {
		t1 := tasks[id1]
		for _, id2 := range ids[i+1:] {
			t2 := tasks[id2]
			if g.reachable(id1, id2) {
				continue
			}
			if sharesOverloadedResource(t1, t2, registry) {
				addConflictEdge(conflicts, id1, id2)
			}
		}
	}
	return conflicts
}

// sharesOverloadedResource reports whether a and b both need a resource
// whose combined demand could exceed its nominal capacity.
func sharesOverloadedResource(a, b *task.Task, registry *resource.Registry) bool {
	units := make(map[string]float64, len(a.Resources))
	for _, r := range a.Resources {
		units[r.Name] = r.Units
	}
	for _, r := range b.Resources {
		other, ok := units[r.Name]
		if !ok {
			continue
		}
		capacity, err := registry.Capacity(r.Name)
		if err != nil {
			capacity = 1.0
		}
		if other+r.Units > capacity {
			return true
		}
	}
	return false
}

func addConflictEdge(conflicts map[string]map[string]bool, a, b string) {
	if conflicts[a] == nil {
		conflicts[a] = make(map[string]bool)
	}
	if conflicts[b] == nil {
		conflicts[b] = make(map[string]bool)
	}
	conflicts[a][b] = true
	conflicts[b][a] = true
}

func sortedIDs(tasks map[string]*task.Task) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// colorGraph greedily colors the conflict graph, visiting tasks in
// decreasing (is_on_critical_path, -early_start, -aggressive_duration)
// priority order with ties broken by lower task id, per spec.md §4.7.
func colorGraph(tasks map[string]*task.Task, conflicts map[string]map[string]bool, criticalChain []string) map[string]int {
	onChain := make(map[string]bool, len(criticalChain))
	for _, id := range criticalChain {
		onChain[id] = true
	}

	order := sortedIDs(tasks)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := tasks[order[i]], tasks[order[j]]
		ai, bi := onChain[order[i]], onChain[order[j]]
		if ai != bi {
			return ai
		}
		if a.EarlyStart != b.EarlyStart {
			return a.EarlyStart < b.EarlyStart
		}
		if a.AggressiveDuration != b.AggressiveDuration {
			return a.AggressiveDuration < b.AggressiveDuration
		}
		return order[i] < order[j]
	})

	coloring := make(map[string]int, len(tasks))
	for _, id := range order {
		used := map[int]bool{}
		for nbr := range conflicts[id] {
			if c, ok := coloring[nbr]; ok {
				used[c] = true
			}
		}
		color := 0
		for used[color] {
			color++
		}
		coloring[id] = color
	}
	return coloring
}

// scheduleByColor processes color classes in ascending order. Coloring
// guarantees that no two same-color tasks share an overloaded resource, so
// within a color it is safe to schedule concurrently; what is NOT safe is
// ignoring a dependency edge between two same-color tasks (the conflict
// graph only encodes resource conflicts, not dependency order). Each color
// is therefore split into dependency levels via dependencyLevels, and only
// tasks within the same level — which by construction have no dependency
// relationship to each other — are scheduled concurrently with errgroup;
// levels form a barrier so a task's floor always sees its same-color
// dependencies' committed end dates.
func scheduleByColor(allTasks, schedulable map[string]*task.Task, g Graph, coloring map[string]int, registry *resource.Registry, projectCal *calendar.Calendar, projectStart time.Time) error {
	classes := map[int][]string{}
	maxColor := 0
	for id, c := range coloring {
		classes[c] = append(classes[c], id)
		if c > maxColor {
			maxColor = c
		}
	}

	for color := 0; color <= maxColor; color++ {
		members := classes[color]
		if len(members) == 0 {
			continue
		}

		for _, level := range dependencyLevels(members, g.Dependencies) {
			grp, _ := errgroup.WithContext(context.Background())
			for _, id := range level {
				id := id
				grp.Go(func() error {
					t := schedulable[id]
					floor := dependencyFloor(allTasks, g, id, projectStart)
					start, err := earliestFeasibleStart(t, floor, registry, projectCal)
					if err != nil {
						return err
					}
					t.StartDate = start
					t.EndDate = projectCal.AddWorkdays(start, t.PlannedDuration)
					for _, r := range t.Resources {
						if err := registry.AllocateSpan(r.Name, start, t.PlannedDuration, r.Units, t.ID); err != nil {
							return err
						}
					}
					return nil
				})
			}
			if err := grp.Wait(); err != nil {
				return err
			}
		}
	}
	return nil
}

// dependencyLevels partitions members into topological levels using only
// dependency edges that stay within members: level 0 holds every member
// with no in-members predecessor, level 1 holds members whose in-members
// predecessors are all in level 0, and so on. Each level is sorted
// ascending by id for determinism.
func dependencyLevels(members []string, deps map[string][]string) [][]string {
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	inDegree := make(map[string]int, len(members))
	dependents := make(map[string][]string, len(members))
	for _, m := range members {
		inDegree[m] = 0
	}
	for _, m := range members {
		for _, dep := range deps[m] {
			if memberSet[dep] {
				dependents[dep] = append(dependents[dep], m)
				inDegree[m]++
			}
		}
	}

	var levels [][]string
	remaining := len(members)
	for remaining > 0 {
		var level []string
		for _, m := range members {
			if inDegree[m] == 0 {
				level = append(level, m)
			}
		}
		if len(level) == 0 {
			// Cycles are rejected upstream by ccpmgraph.TopoOrder before
			// leveling ever runs; this guards against an empty level
			// looping forever rather than silently dropping tasks.
			level = members
		}
		sort.Strings(level)
		levels = append(levels, level)

		for _, m := range level {
			if inDegree[m] < 0 {
				continue // already consumed via the cycle fallback above
			}
			inDegree[m] = -1
			remaining--
			for _, next := range dependents[m] {
				inDegree[next]--
			}
		}
	}
	return levels
}

// dependencyFloor returns the latest end date among id's dependencies, or
// projectStart if it has none.
func dependencyFloor(tasks map[string]*task.Task, g Graph, id string, projectStart time.Time) time.Time {
	floor := projectStart
	for _, dep := range g.Dependencies[id] {
		if depTask, ok := tasks[dep]; ok && depTask.EndDate.After(floor) {
			floor = depTask.EndDate
		}
	}
	return floor
}

// earliestFeasibleStart advances candidate day by day from floor until
// every resource t needs fits for the task's full planned duration.
func earliestFeasibleStart(t *task.Task, floor time.Time, registry *resource.Registry, projectCal *calendar.Calendar) (time.Time, error) {
	candidate := floor
	const maxProbeDays = 3650

	for day := 0; day < maxProbeDays; day++ {
		if fitsAllResources(t, candidate, registry) {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}

	// Exhausted the probe window: report the first resource that still
	// does not fit on the final candidate, for a concrete error.
	for _, r := range t.Resources {
		if !registry.FitsSpan(r.Name, candidate, t.PlannedDuration, r.Units) {
			avail, _ := registry.Available(r.Name, candidate)
			return time.Time{}, &ccpmerrors.ResourceOverallocationError{
				Resource:  r.Name,
				Day:       candidate,
				Requested: r.Units,
				Available: avail,
			}
		}
	}
	return candidate, nil
}

func fitsAllResources(t *task.Task, candidate time.Time, registry *resource.Registry) bool {
	for _, r := range t.Resources {
		if !registry.FitsSpan(r.Name, candidate, t.PlannedDuration, r.Units) {
			return false
		}
	}
	return true
}
