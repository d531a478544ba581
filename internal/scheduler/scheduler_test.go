package scheduler

import (
	"testing"

	"hybridize/internal/model"
)

func newSite(callee string, order int, binding *model.LocalBinding, used ...string) *model.CallSite {
	s := &model.CallSite{CalleeName: callee, OrderIndex: order, UsedLocals: make(map[string]bool), ReturnBinding: binding}
	for _, u := range used {
		s.UsedLocals[u] = true
	}
	return s
}

// S3. Independent calls: x = f(); y = g(); with no shared globals.
func TestIndependentCallsFormOneGroupS3(t *testing.T) {
	x := model.NewLocalBinding("x", "int", 0)
	y := model.NewLocalBinding("y", "int", 1)
	calls := []*model.CallSite{
		newSite("f", 0, x),
		newSite("g", 1, y),
	}
	summaries := map[string]*model.FunctionSummary{
		"f": model.NewFunctionSummary("f", "int", nil, ""),
		"g": model.NewFunctionSummary("g", "int", nil, ""),
	}
	edges := BuildEdges(calls, summaries)
	if len(edges) != 0 {
		t.Fatalf("expected no edges between independent calls, got %+v", edges)
	}
	plan := Schedule(len(calls), edges)
	if len(plan.Groups) != 1 || len(plan.Groups[0]) != 2 {
		t.Fatalf("expected one group of 2, got %+v", plan.Groups)
	}
}

// S4. Global RAW: update_counter() writes counter, read_counter() reads it.
func TestGlobalRAWProducesSequentialGroupsS4(t *testing.T) {
	calls := []*model.CallSite{
		newSite("update_counter", 0, nil),
		newSite("read_counter", 1, model.NewLocalBinding("r", "int", 0)),
	}
	update := model.NewFunctionSummary("update_counter", "void", nil, "")
	update.GlobalWrites["counter"] = true
	read := model.NewFunctionSummary("read_counter", "int", nil, "")
	read.GlobalReads["counter"] = true
	summaries := map[string]*model.FunctionSummary{"update_counter": update, "read_counter": read}

	edges := BuildEdges(calls, summaries)
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.From != 0 || e.To != 1 {
		t.Fatalf("expected edge 0->1, got %d->%d", e.From, e.To)
	}
	if len(e.Reasons) != 1 || e.Reasons[0].Kind != model.GlobalRAW || e.Reasons[0].Symbol != "counter" {
		t.Fatalf("expected GlobalRAW(counter), got %+v", e.Reasons)
	}

	plan := Schedule(len(calls), edges)
	if len(plan.Groups) != 2 {
		t.Fatalf("expected 2 sequential groups, got %+v", plan.Groups)
	}
	if len(plan.Groups[0]) != 1 || plan.Groups[0][0] != 0 {
		t.Fatalf("expected group 0 = [0], got %+v", plan.Groups[0])
	}
	if len(plan.Groups[1]) != 1 || plan.Groups[1][0] != 1 {
		t.Fatalf("expected group 1 = [1], got %+v", plan.Groups[1])
	}
}

// Invariant #2: no edge source index >= target index; acyclic by construction
// (BuildEdges only ever considers i < j).
func TestEdgesAreForwardOnly(t *testing.T) {
	calls := []*model.CallSite{
		newSite("a", 0, nil),
		newSite("b", 1, nil),
		newSite("c", 2, nil),
	}
	a := model.NewFunctionSummary("a", "void", nil, "")
	a.GlobalWrites["g"] = true
	b := model.NewFunctionSummary("b", "void", nil, "")
	b.GlobalReads["g"] = true
	b.GlobalWrites["g"] = true
	c := model.NewFunctionSummary("c", "void", nil, "")
	c.GlobalReads["g"] = true
	summaries := map[string]*model.FunctionSummary{"a": a, "b": b, "c": c}

	edges := BuildEdges(calls, summaries)
	for _, e := range edges {
		if e.From >= e.To {
			t.Errorf("edge %d->%d violates forward-only invariant", e.From, e.To)
		}
	}
}

// Invariant #3: for every group and every pair within it, no edge exists.
func TestNoEdgeWithinAGroup(t *testing.T) {
	calls := []*model.CallSite{
		newSite("f", 0, nil),
		newSite("g", 1, nil),
		newSite("h", 2, model.NewLocalBinding("r", "int", 0)),
	}
	f := model.NewFunctionSummary("f", "void", nil, "")
	f.GlobalWrites["x"] = true
	g := model.NewFunctionSummary("g", "void", nil, "")
	g.GlobalWrites["y"] = true
	h := model.NewFunctionSummary("h", "int", nil, "")
	h.GlobalReads["x"] = true
	h.GlobalReads["y"] = true
	summaries := map[string]*model.FunctionSummary{"f": f, "g": g, "h": h}

	edges := BuildEdges(calls, summaries)
	plan := Schedule(len(calls), edges)

	edgeSet := make(map[[2]int]bool)
	for _, e := range edges {
		edgeSet[[2]int{e.From, e.To}] = true
	}
	for _, group := range plan.Groups {
		for _, u := range group {
			for _, v := range group {
				if u == v {
					continue
				}
				if edgeSet[[2]int{u, v}] || edgeSet[[2]int{v, u}] {
					t.Errorf("group %v contains dependent pair (%d,%d)", group, u, v)
				}
			}
		}
	}
}
