// Package scheduler implements the C6 Dependency Scheduler (§4.6): it
// builds the DependencyEdge set between CallSites from local data flow
// and global read/write overlap, then layers the call indices into an
// ExecutionPlan by Kahn topological sort. The layering loop mirrors the
// teacher lineage's worker-pool readiness queue (internal/concurrency's
// dependency-gated task scheduler), generalized from runtime task
// readiness to static call-index readiness computed once, ahead of time.
package scheduler

import (
	"sort"

	"hybridize/internal/model"
)

// BuildEdges implements §4.6.1: for every ordered pair (i, j) with i < j
// in source order, add an edge labeled with every applicable reason.
func BuildEdges(calls []*model.CallSite, summaries map[string]*model.FunctionSummary) []model.DependencyEdge {
	var edges []model.DependencyEdge
	for i := 0; i < len(calls); i++ {
		for j := i + 1; j < len(calls); j++ {
			var reasons []model.EdgeReason

			if calls[i].ReturnBinding != nil && calls[j].UsedLocals[calls[i].ReturnBinding.Name] {
				reasons = append(reasons, model.EdgeReason{Kind: model.LocalDataFlow, Symbol: calls[i].ReturnBinding.Name})
			}

			fi := summaries[calls[i].CalleeName]
			fj := summaries[calls[j].CalleeName]
			if fi != nil && fj != nil {
				for sym := range intersect(fi.GlobalWrites, fj.GlobalReads) {
					reasons = append(reasons, model.EdgeReason{Kind: model.GlobalRAW, Symbol: sym})
				}
				for sym := range intersect(fi.GlobalWrites, fj.GlobalWrites) {
					reasons = append(reasons, model.EdgeReason{Kind: model.GlobalWAW, Symbol: sym})
				}
				for sym := range intersect(fi.GlobalReads, fj.GlobalWrites) {
					reasons = append(reasons, model.EdgeReason{Kind: model.GlobalWAR, Symbol: sym})
				}
			}

			if len(reasons) > 0 {
				sortReasons(reasons)
				edges = append(edges, model.DependencyEdge{From: i, To: j, Reasons: reasons})
			}
		}
	}
	return edges
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for sym := range a {
		if b[sym] {
			out[sym] = true
		}
	}
	return out
}

func sortReasons(reasons []model.EdgeReason) {
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Kind != reasons[j].Kind {
			return reasons[i].Kind < reasons[j].Kind
		}
		return reasons[i].Symbol < reasons[j].Symbol
	})
}

// Schedule implements §4.6.2/§4.6.3: Kahn's algorithm layered by level,
// with ascending order_index as the within-level tie-break.
func Schedule(numCalls int, edges []model.DependencyEdge) *model.ExecutionPlan {
	inEdges := make([][]int, numCalls) // predecessors per node
	outEdges := make([][]int, numCalls)
	for _, e := range edges {
		inEdges[e.To] = append(inEdges[e.To], e.From)
		outEdges[e.From] = append(outEdges[e.From], e.To)
	}

	remaining := make([]int, numCalls) // count of unsatisfied in-edges
	for i := range remaining {
		remaining[i] = len(inEdges[i])
	}

	done := make([]bool, numCalls)
	plan := &model.ExecutionPlan{}
	left := numCalls

	for left > 0 {
		var ready []int
		for i := 0; i < numCalls; i++ {
			if !done[i] && remaining[i] == 0 {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			// Invariant #2 (acyclic) guarantees this never happens for a
			// valid graph; break defensively rather than loop forever.
			break
		}
		sort.Ints(ready)
		plan.Groups = append(plan.Groups, ready)
		for _, n := range ready {
			done[n] = true
			left--
		}
		for _, n := range ready {
			for _, succ := range outEdges[n] {
				remaining[succ]--
			}
		}
	}
	return plan
}
