// Package loopanalysis implements the C4 Loop Analyzer (§4.4): for
// every function it discovers lexical loops, classifies their reads,
// writes and reductions, sets the pattern flags, runs the conservative
// loop-carried dependence test, decides parallelizability, chooses an
// OpenMP schedule, and synthesizes the pragma text. It shares the
// stack-based nesting tracker idiom the teacher lineage used for its
// bytecode loop-label scopes (internal/jit's loop-template classifier),
// generalized here from "is this a tight numeric loop" to the full
// §4.4 flag set.
package loopanalysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"hybridize/internal/model"
	"hybridize/internal/parser"
)

var ioCalls = map[string]bool{
	"printf": true, "scanf": true, "puts": true, "gets": true,
	"fprintf": true, "fscanf": true, "fread": true, "fwrite": true,
}

var unsafeCalls = map[string]bool{
	"rand": true, "srand": true, "strtok": true, "asctime": true,
	"ctime": true, "gmtime": true, "localtime": true, "strerror": true,
}

var compoundReductionOp = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "&=": "&", "|=": "|", "^=": "^",
}

// Analyze walks every function in tu whose name matches a FunctionSummary
// in summaries and attaches discovered LoopRecords to it, in source
// order, mutating summaries in place (§3 lifecycle: "mutated only by C3
// and C4").
func Analyze(tu *parser.TranslationUnit, summaries []*model.FunctionSummary) {
	byName := make(map[string]*model.FunctionSummary, len(summaries))
	for _, s := range summaries {
		byName[s.Name] = s
	}
	for _, fn := range tu.Functions {
		summary, ok := byName[fn.Name]
		if !ok || fn.Body == nil {
			continue
		}
		w := &walker{fn: fn.Name}
		fn.Body.Accept(w)
		for _, lr := range w.loops {
			finalize(lr)
		}
		summary.Loops = w.loops
	}
}

// walker discovers loops in source order and tracks lexical nesting via
// a stack; every active ancestor loop's IsNestedInner flag is set the
// moment a descendant loop is discovered, and every read/write/call seen
// while a loop is on the stack is attributed to it (a loop's lexical
// extent includes its nested loops' bodies).
type walker struct {
	fn      string
	depth   int
	stack   []*loopCtx
	loops   []*model.LoopRecord
}

// loopCtx pairs a LoopRecord with the set of names declared inside it
// (needed by §4.4.2's reduction exclusion and is discarded once the loop
// is fully walked).
type loopCtx struct {
	rec            *model.LoopRecord
	declaredInside map[string]bool
}

func (w *walker) top() *loopCtx {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func iterationVariableOf(init parser.Node) string {
	decl, ok := init.(*parser.DeclStmt)
	if !ok || len(decl.Decls) == 0 {
		return ""
	}
	return decl.Decls[0].Name
}

func hasComplexCondition(condText string) bool {
	stripped := strings.ReplaceAll(condText, " ", "")
	stripped = strings.ReplaceAll(stripped, "\t", "")
	stripped = strings.ReplaceAll(stripped, "\n", "")
	return strings.Contains(stripped, "&&") || strings.Contains(stripped, "||")
}

func (w *walker) enterLoop(kind model.LoopKind, sourceText, condText string, rng parser.SourceRange, iterVar string) *loopCtx {
	w.depth++
	rec := model.NewLoopRecord(kind, w.fn)
	rec.SourceText = sourceText
	rec.CondText = condText
	rec.Span = model.SourceSpan{StartLine: rng.StartLine, StartColumn: rng.StartColumn, EndLine: rng.EndLine, EndColumn: rng.EndColumn}
	rec.Depth = w.depth
	rec.IterationVariable = iterVar
	if condText != "" {
		rec.HasComplexCondition = hasComplexCondition(condText)
	}

	for _, anc := range w.stack {
		anc.rec.IsNestedInner = true
	}

	ctx := &loopCtx{rec: rec, declaredInside: make(map[string]bool)}
	w.stack = append(w.stack, ctx)
	w.loops = append(w.loops, rec)
	return ctx
}

func (w *walker) exitLoop() {
	ctx := w.top()
	if len(ctx.rec.Reductions) == 0 {
		for _, name := range textualPlusReductions(ctx.rec, ctx.declaredInside) {
			ctx.rec.Reductions = append(ctx.rec.Reductions, model.Reduction{Symbol: name, Op: "+"})
		}
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.depth--
}

func (w *walker) recordReadAll(name string) {
	for _, ctx := range w.stack {
		if name != "cout" && name != "cin" && name != "endl" {
			ctx.rec.Reads[name] = true
		}
	}
}

func (w *walker) recordWriteAll(name string) {
	for _, ctx := range w.stack {
		ctx.rec.Writes[name] = true
	}
}

func (w *walker) recordDeclAll(name string) {
	for _, ctx := range w.stack {
		ctx.declaredInside[name] = true
	}
}

func (w *walker) recordReductionAll(name, op string) {
	for _, ctx := range w.stack {
		if ctx.declaredInside[name] {
			continue
		}
		ctx.rec.Reductions = append(ctx.rec.Reductions, model.Reduction{Symbol: name, Op: op})
	}
}

func (w *walker) recordCall(callee string) {
	isIO := ioCalls[callee]
	isUnsafe := unsafeCalls[callee]
	for _, ctx := range w.stack {
		switch {
		case isIO:
			ctx.rec.HasIO = true
		case isUnsafe:
			ctx.rec.HasUnsafeCall = true
			ctx.rec.UnsafeCalls[callee] = true
			if callee == "rand" {
				ctx.rec.ThreadLocalNeeds["__thread_seed"] = true
			}
		default:
			ctx.rec.HasFunctionCall = true
		}
	}
}

func (w *walker) recordBreakContinue() {
	for _, ctx := range w.stack {
		ctx.rec.HasBreakContinue = true
	}
}

// --- parser.Visitor implementation ---

func (w *walker) VisitFunctionDecl(n *parser.FunctionDecl) interface{} {
	if n.Body != nil {
		n.Body.Accept(w)
	}
	return nil
}

func (w *walker) VisitVarDecl(n *parser.VarDecl) interface{} {
	w.recordDeclAll(n.Name)
	if n.Initializer != nil {
		n.Initializer.Accept(w)
	}
	return nil
}

func (w *walker) VisitCompoundStmt(n *parser.CompoundStmt) interface{} {
	for _, s := range n.Stmts {
		s.Accept(w)
	}
	return nil
}

func (w *walker) VisitForStmt(n *parser.ForStmt) interface{} {
	iterVar := iterationVariableOf(n.Init)
	w.enterLoop(model.For, n.SourceText, n.CondText, n.Range(), iterVar)
	if n.Init != nil {
		n.Init.Accept(w)
	}
	if n.Cond != nil {
		n.Cond.Accept(w)
	}
	if n.Update != nil {
		n.Update.Accept(w)
	}
	if n.Body != nil {
		n.Body.Accept(w)
	}
	w.exitLoop()
	return nil
}

func (w *walker) VisitWhileStmt(n *parser.WhileStmt) interface{} {
	w.enterLoop(model.While, n.SourceText, "", n.Range(), "")
	if n.Cond != nil {
		n.Cond.Accept(w)
	}
	if n.Body != nil {
		n.Body.Accept(w)
	}
	w.exitLoop()
	return nil
}

func (w *walker) VisitDoStmt(n *parser.DoStmt) interface{} {
	w.enterLoop(model.DoWhile, n.SourceText, "", n.Range(), "")
	if n.Body != nil {
		n.Body.Accept(w)
	}
	if n.Cond != nil {
		n.Cond.Accept(w)
	}
	w.exitLoop()
	return nil
}

func (w *walker) VisitIfStmt(n *parser.IfStmt) interface{} {
	if n.Cond != nil {
		n.Cond.Accept(w)
	}
	if n.Then != nil {
		n.Then.Accept(w)
	}
	if n.Else != nil {
		n.Else.Accept(w)
	}
	return nil
}

func (w *walker) VisitReturnStmt(n *parser.ReturnStmt) interface{} {
	if n.Value != nil {
		n.Value.Accept(w)
	}
	return nil
}

func (w *walker) VisitBinaryOperator(n *parser.BinaryOperator) interface{} {
	if n.Operator == "=" {
		if name, ok := nameOf(n.Left); ok {
			w.recordWriteAll(name)
			if idx, ok := n.Left.(*parser.IndexExpr); ok {
				idx.Index.Accept(w)
			}
		} else {
			n.Left.Accept(w)
		}
		n.Right.Accept(w)
		return nil
	}
	n.Left.Accept(w)
	n.Right.Accept(w)
	return nil
}

func (w *walker) VisitCompoundAssignOperator(n *parser.CompoundAssignOperator) interface{} {
	if name, ok := nameOf(n.Target); ok {
		w.recordReadAll(name)
		w.recordWriteAll(name)
		if op, ok := compoundReductionOp[n.Operator]; ok {
			w.recordReductionAll(name, op)
		}
		if idx, ok := n.Target.(*parser.IndexExpr); ok {
			idx.Index.Accept(w)
		}
	} else {
		n.Target.Accept(w)
	}
	if n.Right != nil {
		n.Right.Accept(w)
	}
	return nil
}

func (w *walker) VisitUnaryOperator(n *parser.UnaryOperator) interface{} {
	if n.Operand != nil {
		n.Operand.Accept(w)
	}
	return nil
}

func (w *walker) VisitCallExpr(n *parser.CallExpr) interface{} {
	if !n.IsMethod {
		w.recordCall(n.Callee)
	}
	for _, arg := range n.Args {
		arg.Accept(w)
	}
	return nil
}

func (w *walker) VisitDeclRefExpr(n *parser.DeclRefExpr) interface{} {
	w.recordReadAll(n.Name)
	return nil
}

func (w *walker) VisitIndexExpr(n *parser.IndexExpr) interface{} {
	n.Object.Accept(w)
	n.Index.Accept(w)
	return nil
}

func (w *walker) VisitLiteral(n *parser.Literal) interface{} { return nil }

func (w *walker) VisitBreakStmt(n *parser.BreakStmt) interface{} {
	w.recordBreakContinue()
	return nil
}

func (w *walker) VisitContinueStmt(n *parser.ContinueStmt) interface{} {
	w.recordBreakContinue()
	return nil
}

func (w *walker) VisitDeclStmt(n *parser.DeclStmt) interface{} {
	for _, d := range n.Decls {
		d.Accept(w)
	}
	return nil
}

func (w *walker) VisitExprStmt(n *parser.ExprStmt) interface{} {
	if n.Expr != nil {
		n.Expr.Accept(w)
	}
	return nil
}

func (w *walker) VisitStreamExpr(n *parser.StreamExpr) interface{} {
	for _, ctx := range w.stack {
		ctx.rec.HasIO = true
	}
	n.Object.Accept(w)
	for _, op := range n.Operands {
		op.Accept(w)
	}
	return nil
}

func nameOf(n parser.Node) (string, bool) {
	switch t := n.(type) {
	case *parser.DeclRefExpr:
		return t.Name, true
	case *parser.IndexExpr:
		return nameOf(t.Object)
	}
	return "", false
}

// carriedDepPattern matches NAME[ v ± K ] where K is a literal integer,
// per the §4.4.4 conservative syntactic test.
var identPattern = `[A-Za-z_][A-Za-z0-9_]*`

func carriedDepPattern(v string) *regexp.Regexp {
	return regexp.MustCompile(`(` + identPattern + `)\s*\[\s*` + regexp.QuoteMeta(v) + `\s*[\+\-]\s*\d+\s*\]`)
}

func assignTargetPattern(name, v string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(name) + `\s*\[\s*` + regexp.QuoteMeta(v) + `\s*\]\s*=[^=]`)
}

// textReductionPattern is the §4.4.2 secondary textual scan fallback:
// "<identifier> += ..." where identifier is not an array access.
var textReductionPattern = regexp.MustCompile(`(?:^|[^\w\]])(` + identPattern + `)\s*\+=`)

func loopCarriedDependence(rec *model.LoopRecord) bool {
	v := rec.IterationVariable
	if v == "" {
		v = "i"
	}
	re := carriedDepPattern(v)
	matches := re.FindAllStringSubmatch(rec.SourceText, -1)
	for _, m := range matches {
		name := m[1]
		if assignTargetPattern(name, v).MatchString(rec.SourceText) {
			return true
		}
	}
	return false
}

func textualPlusReductions(rec *model.LoopRecord, declaredInside map[string]bool) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range textReductionPattern.FindAllStringSubmatch(rec.SourceText, -1) {
		name := m[1]
		if declaredInside[name] {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// finalize runs the cross-cutting passes that need the loop's full
// record already populated: the loop-carried dependence test (§4.4.4),
// the parallelizability verdict (§4.4.5), the schedule choice (§4.4.6)
// and pragma synthesis (§4.4.7). The textual reduction fallback runs
// earlier, in exitLoop, while declaredInside is still in scope.
func finalize(rec *model.LoopRecord) {
	rec.HasLoopCarriedDep = loopCarriedDependence(rec)

	rec.Parallelizable = verdict(rec)
	if !rec.Parallelizable && rec.NotParallelizableReason == "" {
		rec.NotParallelizableReason = reasonFor(rec)
	}
	rec.Sched, rec.ScheduleChunk = schedule(rec)
	rec.PragmaText = pragma(rec)
}

func verdict(rec *model.LoopRecord) bool {
	if rec.Kind != model.For || rec.Depth != 1 {
		return false
	}
	if rec.HasIO || rec.HasBreakContinue {
		return false
	}
	hasReductions := len(rec.Reductions) > 0
	if rec.HasComplexCondition && !hasReductions {
		return false
	}
	if rec.HasLoopCarriedDep && !hasReductions {
		return false
	}
	if rec.HasUnsafeCall {
		for call := range rec.UnsafeCalls {
			if call != "rand" {
				return false // no automatic substitution exists, §4.7.4 step 1
			}
		}
	}
	return true
}

func reasonFor(rec *model.LoopRecord) string {
	switch {
	case rec.Kind != model.For:
		return "only For loops are parallelized automatically"
	case rec.Depth != 1:
		return "Inner loop in nested structure"
	case rec.HasIO:
		return "loop performs I/O"
	case rec.HasBreakContinue:
		return "loop contains break or continue"
	case rec.HasComplexCondition && len(rec.Reductions) == 0:
		return "complex loop condition without a reduction to excuse it"
	case rec.HasLoopCarriedDep && len(rec.Reductions) == 0:
		return "Has loop-carried dependencies without a reduction to excuse it"
	case rec.HasUnsafeCall:
		return "unsafe call has no automatic thread-safe rewrite"
	default:
		return ""
	}
}

func schedule(rec *model.LoopRecord) (model.Schedule, int) {
	if !rec.Parallelizable {
		return model.NoSchedule, 0
	}
	if rec.IsNestedInner {
		return model.Static, 0
	}
	if rec.HasFunctionCall {
		return model.DynamicChunked, 100
	}
	return model.Static, 0
}

func pragma(rec *model.LoopRecord) string {
	if !rec.Parallelizable {
		return ""
	}
	var b strings.Builder
	b.WriteString("#pragma omp parallel for")

	if len(rec.Reductions) > 0 {
		byOp := make(map[string][]string)
		var ops []string
		for _, r := range rec.Reductions {
			if _, ok := byOp[r.Op]; !ok {
				ops = append(ops, r.Op)
			}
			byOp[r.Op] = append(byOp[r.Op], r.Symbol)
		}
		sort.Strings(ops)
		for _, op := range ops {
			names := byOp[op]
			sort.Strings(names)
			names = dedup(names)
			b.WriteString(" reduction(" + op + ":" + strings.Join(names, ",") + ")")
		}
	}

	if len(rec.ThreadLocalNeeds) > 0 {
		var names []string
		for n := range rec.ThreadLocalNeeds {
			names = append(names, n)
		}
		sort.Strings(names)
		b.WriteString(" firstprivate(" + strings.Join(names, ",") + ")")
	}

	if rec.Sched == model.DynamicChunked {
		b.WriteString(" schedule(dynamic," + strconv.Itoa(rec.ScheduleChunk) + ")")
	} else {
		b.WriteString(" schedule(static)")
	}
	return b.String()
}

func dedup(names []string) []string {
	out := names[:0]
	var last string
	first := true
	for _, n := range names {
		if !first && n == last {
			continue
		}
		out = append(out, n)
		last = n
		first = false
	}
	return out
}
