package reporting

import (
	"strings"
	"testing"

	"hybridize/internal/model"
)

func TestBuildComputesParallelizationRate(t *testing.T) {
	fn := model.NewFunctionSummary("work", "void", nil, "")
	parallel := model.NewLoopRecord(model.For, "work")
	parallel.Parallelizable = true
	parallel.Sched = model.Static
	blocked := model.NewLoopRecord(model.For, "work")
	blocked.Parallelizable = false
	blocked.NotParallelizableReason = "loop performs I/O"
	fn.Loops = []*model.LoopRecord{parallel, blocked}

	r := Build(nil, nil, []*model.FunctionSummary{fn}, nil, nil)
	if r.Totals.LoopsFound != 2 {
		t.Fatalf("loops_found = %d, want 2", r.Totals.LoopsFound)
	}
	if r.Totals.LoopsParallelized != 1 {
		t.Fatalf("loops_parallelized = %d, want 1", r.Totals.LoopsParallelized)
	}
	if r.Totals.RatePercent != 50.0 {
		t.Fatalf("rate = %v, want 50.0", r.Totals.RatePercent)
	}
}

func TestRenderContainsRequiredSections(t *testing.T) {
	r := Build(
		[]GlobalInfo{{Name: "total", Type: "double"}},
		[]LocalInfo{{Name: "x", Type: "int"}},
		nil, nil, nil,
	)
	out := r.Render()
	for _, want := range []string{"=== Globals ===", "=== Locals (main) ===", "=== Functions ===", "=== Totals ===", "=== Groups ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing section %q", want)
		}
	}
	if !strings.Contains(out, "double total") {
		t.Error("expected global total to be rendered")
	}
}
