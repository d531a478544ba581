package loopanalysis

import (
	"strings"
	"testing"

	"hybridize/internal/funcanalysis"
	"hybridize/internal/lexer"
	"hybridize/internal/model"
	"hybridize/internal/parser"
	"hybridize/internal/symbols"
)

func analyzeOne(t *testing.T, src string) *model.FunctionSummary {
	t.Helper()
	tokens := lexer.NewScanner(src, "test.cpp").ScanTokens()
	p := parser.NewParserWithSource(tokens, src, "test.cpp")
	tu, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	globals := symbols.CollectGlobals(tu, nil)
	summaries := funcanalysis.Analyze(tu, globals, nil)
	Analyze(tu, summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 function, got %d", len(summaries))
	}
	return summaries[0]
}

// S1. Reduction loop.
func TestReductionLoopS1(t *testing.T) {
	fn := analyzeOne(t, `double sum_squares(int n){double s=0;for(int i=1;i<=n;i++) s+=i*i; return s;}`)
	if len(fn.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(fn.Loops))
	}
	lr := fn.Loops[0]
	if !lr.Parallelizable {
		t.Fatalf("expected parallelizable=true, reason=%q", lr.NotParallelizableReason)
	}
	if len(lr.Reductions) != 1 || lr.Reductions[0].Symbol != "s" || lr.Reductions[0].Op != "+" {
		t.Fatalf("expected reduction (s,+), got %+v", lr.Reductions)
	}
	want := "#pragma omp parallel for reduction(+:s) schedule(static)"
	if lr.PragmaText != want {
		t.Errorf("pragma = %q, want %q", lr.PragmaText, want)
	}
}

// S2. Loop-carried dependence.
func TestLoopCarriedDepS2(t *testing.T) {
	fn := analyzeOne(t, `void shift(int a[], int N){for(int i=1;i<N;i++) a[i]=a[i-1]+1;}`)
	lr := fn.Loops[0]
	if !lr.HasLoopCarriedDep {
		t.Fatal("expected has_loop_carried_dep=true")
	}
	if len(lr.Reductions) != 0 {
		t.Fatalf("expected no reductions, got %+v", lr.Reductions)
	}
	if lr.Parallelizable {
		t.Fatal("expected parallelizable=false")
	}
	if !strings.Contains(lr.NotParallelizableReason, "Has loop-carried dependencies") {
		t.Errorf("reason %q must mention loop-carried dependencies", lr.NotParallelizableReason)
	}
}

// S5. Complex condition excused by reduction.
func TestComplexConditionExcusedByReductionS5(t *testing.T) {
	fn := analyzeOne(t, `double accumulate(int n){double s=0;for(int i=0;i<n && s<1000.0;i++) s+=i*0.5; return s;}`)
	lr := fn.Loops[0]
	if !lr.HasComplexCondition {
		t.Fatal("expected has_complex_condition=true")
	}
	if !lr.Parallelizable {
		t.Fatalf("expected parallelizable=true (excused by reduction), reason=%q", lr.NotParallelizableReason)
	}
}

func TestNestedLoopMarkedInner(t *testing.T) {
	fn := analyzeOne(t, `void grid(int n){for(int i=0;i<n;i++){for(int j=0;j<n;j++){int x=i+j;}}}`)
	if len(fn.Loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(fn.Loops))
	}
	outer, inner := fn.Loops[0], fn.Loops[1]
	if !outer.IsNestedInner {
		t.Error("outer loop must be marked is_nested_inner")
	}
	if inner.Parallelizable {
		t.Error("inner loop (depth 2) must not be parallelizable")
	}
	if inner.NotParallelizableReason != "Inner loop in nested structure" {
		t.Errorf("unexpected inner reason: %q", inner.NotParallelizableReason)
	}
}

func TestIOBlocksParallelization(t *testing.T) {
	fn := analyzeOne(t, `void report(int n){for(int i=0;i<n;i++){printf("%d\n", i);}}`)
	lr := fn.Loops[0]
	if !lr.HasIO {
		t.Fatal("expected has_io=true")
	}
	if lr.Parallelizable {
		t.Fatal("expected parallelizable=false for I/O loop")
	}
}

func TestRandCallAddsThreadSeed(t *testing.T) {
	fn := analyzeOne(t, `void fill(int a[], int n){for(int i=0;i<n;i++){a[i]=rand();}}`)
	lr := fn.Loops[0]
	if !lr.HasUnsafeCall {
		t.Fatal("expected has_unsafe_call=true")
	}
	if !lr.ThreadLocalNeeds["__thread_seed"] {
		t.Fatal("expected __thread_seed in thread_local_needs")
	}
	if !lr.Parallelizable {
		t.Fatal("rand() has an automatic rewrite, loop should stay parallelizable")
	}
}
