package emitter

import (
	"strings"
	"testing"

	"hybridize/internal/model"
)

func sumSquaresSummary() *model.FunctionSummary {
	fn := model.NewFunctionSummary("sum_squares", "double", []model.Param{{Name: "n", Type: "int"}},
		"{\n  double s = 0;\n  for (int i = 1; i <= n; i++) s += i * i;\n  return s;\n}")
	loop := model.NewLoopRecord(model.For, "sum_squares")
	loop.SourceText = "for (int i = 1; i <= n; i++) s += i * i;"
	loop.IterationVariable = "i"
	loop.Span = model.SourceSpan{StartLine: 3, StartColumn: 3}
	loop.Depth = 1
	loop.Reductions = []model.Reduction{{Symbol: "s", Op: "+"}}
	loop.Parallelizable = true
	loop.Sched = model.Static
	loop.PragmaText = "#pragma omp parallel for reduction(+:s) schedule(static)"
	fn.Loops = []*model.LoopRecord{loop}
	return fn
}

// Invariant #4: exactly one schedule(...) and at least one reduction(...).
func TestPragmaInsertionInvariant4(t *testing.T) {
	fn := sumSquaresSummary()
	out := emitFunction(fn)
	if strings.Count(out, "schedule(") != 1 {
		t.Fatalf("expected exactly one schedule() clause, got: %s", out)
	}
	if !strings.Contains(out, "reduction(+:s)") {
		t.Fatalf("expected a reduction() clause, got: %s", out)
	}
	if !strings.Contains(out, "#pragma omp parallel for") {
		t.Fatalf("expected pragma inserted, got: %s", out)
	}
}

// Idempotence: running the rewrite on already-pragma'd text must not duplicate it.
func TestPragmaInsertionIsIdempotent(t *testing.T) {
	fn := sumSquaresSummary()
	first := emitFunction(fn)

	fn2 := sumSquaresSummary()
	fn2.BodyText = first[strings.Index(first, "{"):]
	second := emitFunction(fn2)
	if strings.Count(second, "#pragma omp parallel for") != 1 {
		t.Fatalf("expected idempotent pragma insertion, got: %s", second)
	}
}

// Invariant #5: __thread_seed declared exactly once at function entry.
func TestThreadSeedDeclaredOnce(t *testing.T) {
	fn := model.NewFunctionSummary("fill", "void", []model.Param{{Name: "a", Type: "int []"}, {Name: "n", Type: "int"}},
		"{\n  for (int i = 0; i < n; i++) {\n    a[i] = rand();\n  }\n}")
	loop := model.NewLoopRecord(model.For, "fill")
	loop.SourceText = "for (int i = 0; i < n; i++) {\n    a[i] = rand();\n  }"
	loop.IterationVariable = "i"
	loop.Depth = 1
	loop.HasUnsafeCall = true
	loop.UnsafeCalls = map[string]bool{"rand": true}
	loop.ThreadLocalNeeds = map[string]bool{"__thread_seed": true}
	loop.Parallelizable = true
	loop.Sched = model.Static
	loop.PragmaText = "#pragma omp parallel for firstprivate(__thread_seed) schedule(static)"
	fn.Loops = []*model.LoopRecord{loop}

	out := emitFunction(fn)
	if strings.Count(out, "__thread_seed =") != 1 {
		t.Fatalf("expected exactly one __thread_seed declaration, got: %s", out)
	}
	if !strings.Contains(out, "rand_r(&__thread_seed)") {
		t.Fatalf("expected rand() substituted, got: %s", out)
	}
	if strings.Contains(out, "rand()") {
		t.Fatalf("rand() call should have been replaced: %s", out)
	}
}

// Invariant #6/S6: a local renamed to user_NAME leaves no bare NAME.
func TestNameCollisionRenamingS6(t *testing.T) {
	locals := []*model.LocalBinding{
		model.NewLocalBinding("rank", "int", 0),
	}
	locals[0].InitializerText = "5"
	renameMap := buildRenameMap(locals)
	decl := renderLocalDecl(locals[0], renameMap)
	if !strings.Contains(decl, "user_rank") {
		t.Fatalf("expected renamed declaration, got: %s", decl)
	}

	call := &model.CallSite{CalleeName: "f", OrderIndex: 0, RawText: "f(rank)"}
	stmt := renderCallStatement(call, renameMap)
	if strings.Contains(stmt, "f(rank)") {
		t.Fatalf("expected word-boundary rename inside call text, got: %s", stmt)
	}
	if !strings.Contains(stmt, "f(user_rank)") {
		t.Fatalf("expected f(user_rank), got: %s", stmt)
	}
}

func TestWordBoundaryRenameDoesNotTouchSubstrings(t *testing.T) {
	renameMap := map[string]string{"rank": "user_rank"}
	out := applyRename("ranked(rank, rankings)", renameMap)
	if out != "ranked(user_rank, rankings)" {
		t.Fatalf("expected only the standalone identifier renamed, got: %s", out)
	}
}

// Invariant #7: determinism.
func TestEmitMainIsDeterministic(t *testing.T) {
	a := model.NewLocalBinding("total", "double", 0)
	a.InitializerText = "0.0"
	extraction := &model.MainExtraction{Locals: []*model.LocalBinding{a}}
	plan := &model.ExecutionPlan{}

	first := emitMain(extraction, plan, nil)
	second := emitMain(extraction, plan, nil)
	if first != second {
		t.Fatal("emit(ast) must equal emit(ast) byte-for-byte")
	}
}
