// Package feedingchain implements the feeding-chain service (C6): for every
// critical-chain task with non-critical predecessors, walk backward along
// dependency edges picking the largest-early-finish predecessor at each
// step, claiming tasks so feeding chains stay vertex-disjoint from each
// other and from the critical chain.
package feedingchain

import (
	"sort"
	"strconv"

	"github.com/aristath/ccpm/internal/task"
)

// Identify returns one task.Chain per feeding chain discovered, in the
// deterministic order of the critical-chain task they merge into (ascending
// critical-chain position) and, within a critical task, the order the
// non-critical predecessor walks were started (ascending predecessor id).
// tasks is keyed by id; deps maps a task id to the ids it depends on;
// criticalChain is the ordered critical-chain task ids produced by
// criticalchain.Identify.
func Identify(tasks map[string]*task.Task, deps map[string][]string, criticalChain []string) []*task.Chain {
	critical := make(map[string]bool, len(criticalChain))
	for _, id := range criticalChain {
		critical[id] = true
	}

	claimed := make(map[string]bool)
	var chains []*task.Chain
	seq := 0

	for _, mergeTaskID := range criticalChain {
		predecessors := nonCriticalPredecessors(tasks, deps, mergeTaskID, critical)
		sort.Strings(predecessors)

		for _, start := range predecessors {
			if claimed[start] {
				continue
			}

			walk := walkBack(tasks, deps, start, critical, claimed)
			if len(walk) == 0 {
				continue
			}

			for _, id := range walk {
				claimed[id] = true
			}

			// walk is sink->source (start first, oldest predecessor last);
			// reverse it so the chain reads source->sink per spec.md §4.6.
			reversed := make([]string, len(walk))
			for i, id := range walk {
				reversed[len(walk)-1-i] = id
			}

			seq++
			chain := task.NewChain(feedingChainID(mergeTaskID, seq), task.ChainFeeding, reversed)
			chains = append(chains, chain)

			for _, id := range reversed {
				tasks[id].ChainID = chain.ID
			}
		}
	}

	return chains
}

// nonCriticalPredecessors returns mergeTaskID's direct dependencies that are
// not themselves on the critical chain, in the order they appear in deps.
func nonCriticalPredecessors(tasks map[string]*task.Task, deps map[string][]string, mergeTaskID string, critical map[string]bool) []string {
	var out []string
	for _, dep := range deps[mergeTaskID] {
		if !critical[dep] {
			out = append(out, dep)
		}
	}
	return out
}

// walkBack follows the largest-early-finish non-critical, unclaimed
// predecessor from start, stopping when no such predecessor exists or the
// next candidate is already claimed by another feeding chain. Returns the
// walked ids in sink->source order (start first).
func walkBack(tasks map[string]*task.Task, deps map[string][]string, start string, critical, claimed map[string]bool) []string {
	var walk []string
	visited := map[string]bool{}
	cur := start

	for {
		if claimed[cur] || visited[cur] {
			break
		}
		visited[cur] = true
		walk = append(walk, cur)

		next := bestPredecessor(tasks, deps, cur, critical)
		if next == "" || claimed[next] {
			break
		}
		cur = next
	}

	return walk
}

// bestPredecessor returns the non-critical direct dependency of id with the
// largest EarlyFinish, ties broken by lower id. Returns "" if id has no
// non-critical predecessors.
func bestPredecessor(tasks map[string]*task.Task, deps map[string][]string, id string, critical map[string]bool) string {
	best := ""
	var bestFinish float64
	for _, dep := range deps[id] {
		if critical[dep] {
			continue
		}
		t, ok := tasks[dep]
		if !ok {
			continue
		}
		if best == "" || t.EarlyFinish > bestFinish || (t.EarlyFinish == bestFinish && dep < best) {
			best = dep
			bestFinish = t.EarlyFinish
		}
	}
	return best
}

func feedingChainID(mergeTaskID string, seq int) string {
	return "feed-" + mergeTaskID + "-" + strconv.Itoa(seq)
}
