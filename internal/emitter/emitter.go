// Package emitter implements the C7 Code Emitter (§4.7): it assembles
// the OutputProgram from every upstream artifact — the preamble, the
// global block, rewritten function bodies, and a synthesized `main`
// that dispatches CallSites group by group over MPI ranks. Templated
// string assembly here follows the teacher lineage's code-generation
// idiom (internal/compiler's bytecode emission: build up a buffer,
// never mutate in place once written), adapted from bytecode words to
// C/MPI/OpenMP source text.
package emitter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"hybridize/internal/model"
	"hybridize/internal/typemap"
)

var reservedNames = map[string]bool{
	"rank": true, "size": true, "provided": true, "argc": true, "argv": true,
	"status": true, "request": true, "comm": true, "tag": true, "source": true,
	"dest": true, "count": true, "datatype": true,
}

// Emit assembles the OutputProgram from the full set of analysis
// artifacts. globalDecls maps a global name to its original declared
// type and default-literal initializer text, as discovered by C2; when
// a global is absent from it the §4.7.2 heuristic is applied.
func Emit(
	includes []string,
	typedefDecls []string,
	globalOrder []string,
	globalDecls map[string]GlobalInfo,
	summaries []*model.FunctionSummary,
	extraction *model.MainExtraction,
	plan *model.ExecutionPlan,
) *model.OutputProgram {
	out := &model.OutputProgram{OriginalIncludes: includes, TypedefDecls: typedefDecls}

	used := usedGlobals(summaries)
	out.GlobalDeclarations = emitGlobalBlock(globalOrder, globalDecls, used)

	for _, fn := range summaries {
		out.EmittedFunctions = append(out.EmittedFunctions, emitFunction(fn))
	}

	out.EmittedMain = emitMain(extraction, plan, summaries)
	return out
}

// Render implements §6.2's fixed file layout: the two MPI/OpenMP
// includes, the captured original includes, globals, emitted functions,
// then emitted main. The OutputProgram's strings are consumed here and
// not retained by any other component (§3's linear-ownership rule).
func Render(out *model.OutputProgram) string {
	var b strings.Builder
	b.WriteString("#include <mpi.h>\n#include <omp.h>\n")
	for _, inc := range out.OriginalIncludes {
		b.WriteString(inc + "\n")
	}
	b.WriteString("\n")
	for _, decl := range out.TypedefDecls {
		b.WriteString(decl + "\n")
	}
	for _, decl := range out.GlobalDeclarations {
		b.WriteString(decl + "\n")
	}
	b.WriteString("\n")
	for _, fn := range out.EmittedFunctions {
		b.WriteString(fn + "\n\n")
	}
	b.WriteString(out.EmittedMain)
	return b.String()
}

// GlobalInfo carries what C2/the host parser knows about a global's
// declared type and initializer, used to avoid the §4.7.2 heuristic.
type GlobalInfo struct {
	Type       string
	InitLiteral string
}

func usedGlobals(summaries []*model.FunctionSummary) map[string]bool {
	used := make(map[string]bool)
	for _, fn := range summaries {
		for name := range fn.GlobalReads {
			used[name] = true
		}
		for name := range fn.GlobalWrites {
			used[name] = true
		}
	}
	return used
}

// emitGlobalBlock implements §4.7.2, including the heuristic fallback
// for when type information is unavailable.
func emitGlobalBlock(order []string, decls map[string]GlobalInfo, used map[string]bool) []string {
	var lines []string
	for _, name := range order {
		if !used[name] {
			continue
		}
		if info, ok := decls[name]; ok {
			lines = append(lines, fmt.Sprintf("%s %s = %s;", info.Type, name, info.InitLiteral))
			continue
		}
		lines = append(lines, heuristicDecl(name))
	}
	return lines
}

func heuristicDecl(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "sum") || strings.Contains(lower, "result"):
		return fmt.Sprintf("double %s = 0.0;", name)
	case strings.Contains(lower, "flag"):
		return fmt.Sprintf("bool %s = false;", name)
	case strings.Contains(lower, "array"):
		return fmt.Sprintf("int %s [1000];", name)
	default:
		return fmt.Sprintf("int %s = 0;", name)
	}
}

// emitFunction implements §4.7.3: reproduce the signature, then either
// the rewritten body (if any loop is parallelizable) or the verbatim
// body text.
func emitFunction(fn *model.FunctionSummary) string {
	sig := signatureOf(fn)
	body := fn.BodyText
	if anyParallelizable(fn.Loops) {
		body = rewriteBody(fn)
	}
	return sig + " " + body
}

func signatureOf(fn *model.FunctionSummary) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type + " " + p.Name
	}
	return fmt.Sprintf("%s %s(%s)", fn.ReturnType, fn.Name, strings.Join(params, ", "))
}

func anyParallelizable(loops []*model.LoopRecord) bool {
	for _, l := range loops {
		if l.Parallelizable {
			return true
		}
	}
	return false
}

var randCallPattern = regexp.MustCompile(`\brand\(\)`)

// rewriteBody implements §4.7.4.
func rewriteBody(fn *model.FunctionSummary) string {
	body := randCallPattern.ReplaceAllString(fn.BodyText, "rand_r(&__thread_seed)")

	needsThreadSeed := false
	for _, l := range fn.Loops {
		if l.ThreadLocalNeeds["__thread_seed"] {
			needsThreadSeed = true
			break
		}
	}
	if needsThreadSeed {
		if idx := strings.Index(body, "{"); idx >= 0 {
			prologue := "\n  unsigned int __thread_seed = (unsigned int)time(NULL) ^ omp_get_thread_num();"
			body = body[:idx+1] + prologue + body[idx+1:]
		}
	}

	loops := make([]*model.LoopRecord, 0, len(fn.Loops))
	for _, l := range fn.Loops {
		if l.Parallelizable {
			loops = append(loops, l)
		}
	}
	sort.Slice(loops, func(i, j int) bool {
		if loops[i].Span.StartLine != loops[j].Span.StartLine {
			return loops[i].Span.StartLine > loops[j].Span.StartLine
		}
		return loops[i].Span.StartColumn > loops[j].Span.StartColumn
	})

	for _, l := range loops {
		body = insertPragma(body, l)
	}
	return body
}

func insertPragma(body string, l *model.LoopRecord) string {
	needle := randCallPattern.ReplaceAllString(l.SourceText, "rand_r(&__thread_seed)")
	idx := strings.Index(body, needle)
	if idx < 0 {
		iterVar := l.IterationVariable
		if iterVar == "" {
			iterVar = "i"
		}
		idx = strings.Index(body, "for ("+iterVar)
		if idx < 0 {
			idx = strings.Index(body, "for("+iterVar)
		}
		if idx < 0 {
			return body // nothing to anchor on; leave body unchanged
		}
	}

	lookbackStart := idx - 200
	if lookbackStart < 0 {
		lookbackStart = 0
	}
	if strings.Contains(body[lookbackStart:idx], "#pragma omp") {
		return body // already present; idempotent per §8's round-trip law
	}

	lineStart := strings.LastIndex(body[:idx], "\n") + 1
	indent := body[lineStart:idx]
	indent = leadingWhitespace(indent)

	insertion := indent + l.PragmaText + "\n"
	return body[:lineStart] + insertion + body[lineStart:]
}

func leadingWhitespace(s string) string {
	for i, r := range s {
		if r != ' ' && r != '\t' {
			return s[:i]
		}
	}
	return s
}

// emitMain assembles the §4.7.5 skeleton.
func emitMain(extraction *model.MainExtraction, plan *model.ExecutionPlan, summaries []*model.FunctionSummary) string {
	renameMap := buildRenameMap(extraction.Locals)

	var b strings.Builder
	b.WriteString("int main(int argc, char* argv[]) {\n")
	b.WriteString("  int rank, size, provided;\n")
	b.WriteString("  MPI_Init_thread(&argc, &argv, MPI_THREAD_FUNNELED, &provided);\n")
	b.WriteString("  MPI_Comm_rank(MPI_COMM_WORLD, &rank);\n")
	b.WriteString("  MPI_Comm_size(MPI_COMM_WORLD, &size);\n\n")

	for _, local := range extraction.Locals {
		b.WriteString("  " + renderLocalDecl(local, renameMap) + "\n")
	}
	b.WriteString("\n")

	for _, call := range extraction.Calls {
		if call.HasReturnValue {
			b.WriteString(fmt.Sprintf("  %s result_%d = %s;\n", call.ReturnType, call.OrderIndex, typemap.DefaultLiteralOf(call.ReturnType)))
		}
	}
	b.WriteString("\n")

	groups := groupsOf(plan)
	if len(groups) == 0 {
		// §8 round-trip law: no calls means one barrier-terminated empty region.
		b.WriteString("  MPI_Barrier(MPI_COMM_WORLD);\n\n")
	}
	for _, group := range groups {
		emitGroup(&b, group, extraction, renameMap)
	}

	b.WriteString(reportSection(extraction, renameMap, summaries))
	b.WriteString("  MPI_Finalize();\n")
	b.WriteString("  return 0;\n")
	b.WriteString("}\n")
	return b.String()
}

// groupsOf defensively handles a nil plan.
func groupsOf(plan *model.ExecutionPlan) [][]int {
	if plan == nil {
		return nil
	}
	return plan.Groups
}

func emitGroup(b *strings.Builder, group []int, extraction *model.MainExtraction, renameMap map[string]string) {
	callByIndex := make(map[int]*model.CallSite, len(extraction.Calls))
	for _, c := range extraction.Calls {
		callByIndex[c.OrderIndex] = c
	}

	if len(group) == 1 {
		call := callByIndex[group[0]]
		b.WriteString("  if (rank == 0) {\n")
		b.WriteString("    " + renderCallStatement(call, renameMap) + "\n")
		b.WriteString("  }\n")
	} else {
		n := len(group)
		b.WriteString(fmt.Sprintf("  int effective_processes = size < %d ? size : %d;\n", n, n))
		for i, idx := range group {
			b.WriteString(fmt.Sprintf("  int assigned_rank_%d = %d %% effective_processes;\n", idx, i))
		}
		for _, idx := range group {
			call := callByIndex[idx]
			b.WriteString(fmt.Sprintf("  if (rank == assigned_rank_%d) {\n", idx))
			b.WriteString("    " + renderCallStatement(call, renameMap) + "\n")
			if call.HasReturnValue && typemap.IsSupported(call.ReturnType) {
				b.WriteString(fmt.Sprintf("    if (assigned_rank_%d != 0) MPI_Send(&result_%d, 1, %s, 0, %d, MPI_COMM_WORLD);\n",
					idx, idx, typemap.MPITypeOf(call.ReturnType), idx))
			}
			b.WriteString("  }\n")
		}
		b.WriteString("  if (rank == 0) {\n")
		for _, idx := range group {
			call := callByIndex[idx]
			if !call.HasReturnValue {
				continue
			}
			if !typemap.IsSupported(call.ReturnType) {
				b.WriteString(fmt.Sprintf("    // Skipping MPI_Send/Recv for unsupported type: %s\n", call.ReturnType))
				continue
			}
			b.WriteString(fmt.Sprintf("    if (assigned_rank_%d != 0) MPI_Recv(&result_%d, 1, %s, assigned_rank_%d, %d, MPI_COMM_WORLD, MPI_STATUS_IGNORE);\n",
				idx, idx, typemap.MPITypeOf(call.ReturnType), idx, idx))
			if call.ReturnBinding != nil {
				b.WriteString(fmt.Sprintf("    %s = result_%d;\n", renamedRef(call.ReturnBinding.Name, renameMap), idx))
			}
		}
		b.WriteString("  }\n")
	}

	for _, idx := range group {
		call := callByIndex[idx]
		if call.ReturnBinding == nil {
			continue
		}
		if !typemap.IsSupported(call.ReturnBinding.Type) {
			b.WriteString(fmt.Sprintf("  // Skipping MPI_Bcast for unsupported type: %s\n", call.ReturnBinding.Type))
			continue
		}
		b.WriteString(fmt.Sprintf("  MPI_Bcast(&%s, 1, %s, 0, MPI_COMM_WORLD);\n",
			renamedRef(call.ReturnBinding.Name, renameMap), typemap.MPITypeOf(call.ReturnBinding.Type)))
	}
	b.WriteString("  MPI_Barrier(MPI_COMM_WORLD);\n\n")
}

func renderCallStatement(call *model.CallSite, renameMap map[string]string) string {
	text := applyRename(call.RawText, renameMap)
	if call.ReturnBinding != nil {
		return fmt.Sprintf("result_%d = %s;", call.OrderIndex, text)
	}
	return text + ";"
}

// buildRenameMap implements §4.7.6's collision handling.
func buildRenameMap(locals []*model.LocalBinding) map[string]string {
	renamed := make(map[string]string)
	for _, l := range locals {
		if reservedNames[l.Name] {
			renamed[l.Name] = "user_" + l.Name
		}
	}
	return renamed
}

func renamedRef(name string, renameMap map[string]string) string {
	if n, ok := renameMap[name]; ok {
		return n
	}
	return name
}

func applyRename(text string, renameMap map[string]string) string {
	for old, renamed := range renameMap {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
		text = re.ReplaceAllString(text, renamed)
	}
	return text
}

func renderLocalDecl(local *model.LocalBinding, renameMap map[string]string) string {
	name := renamedRef(local.Name, renameMap)
	init := applyRename(local.InitializerText, renameMap)

	switch {
	case init == "":
		return fmt.Sprintf("%s %s;", local.Type, name)
	case looksLikeConstructorCall(init, local.Name):
		rewritten := renameConstructorCall(init, local.Name, name)
		return fmt.Sprintf("%s %s;", local.Type, rewritten)
	default:
		return fmt.Sprintf("%s %s = %s;", local.Type, name, init)
	}
}

// looksLikeConstructorCall detects the §4.5.1 "NAME(args)" initializer
// shape: the initializer text begins with the local's own (pre-rename)
// name immediately followed by '('.
func looksLikeConstructorCall(init, originalName string) bool {
	return strings.HasPrefix(init, originalName+"(")
}

func renameConstructorCall(init, oldName, newName string) string {
	return newName + strings.TrimPrefix(init, oldName)
}

// reportSection implements §4.7.9: inside the rank-0 block, a
// per-function loop-parallelization summary followed by the value dump.
func reportSection(extraction *model.MainExtraction, renameMap map[string]string, summaries []*model.FunctionSummary) string {
	var b strings.Builder
	b.WriteString("  if (rank == 0) {\n")
	b.WriteString(loopSummaryLines(summaries))
	for _, local := range extraction.Locals {
		if isPrintable(local.Type) {
			b.WriteString(fmt.Sprintf("    std::cout << \"%s = \" << %s << std::endl;\n", local.Name, renamedRef(local.Name, renameMap)))
		}
	}
	for _, call := range extraction.Calls {
		if call.HasReturnValue && isPrintable(call.ReturnType) {
			b.WriteString(fmt.Sprintf("    std::cout << \"result_%d = \" << result_%d << std::endl;\n", call.OrderIndex, call.OrderIndex))
		}
	}
	b.WriteString("  }\n")
	return b.String()
}

// loopSummaryLines renders the §4.7.9 in-program loop-parallelization
// summary: per function, its loop count and each loop's verdict, in the
// same "N/M loops parallelized" phrasing the original C++ tool's
// printEnhancedAnalysisResults prints to its own stdout, but here as
// std::cout text emitted inside the generated main.
func loopSummaryLines(summaries []*model.FunctionSummary) string {
	var b strings.Builder
	b.WriteString("    std::cout << \"=== Loop Parallelization Summary ===\" << std::endl;\n")
	for _, fn := range summaries {
		if len(fn.Loops) == 0 {
			continue
		}
		parallelized := 0
		for _, l := range fn.Loops {
			if l.Parallelizable {
				parallelized++
			}
		}
		fmt.Fprintf(&b, "    std::cout << \"%s: %d/%d loops parallelized\" << std::endl;\n",
			fn.Name, parallelized, len(fn.Loops))
		for i, l := range fn.Loops {
			verdict := "not parallelizable"
			if l.Parallelizable {
				verdict = "parallelizable"
			}
			fmt.Fprintf(&b, "    std::cout << \"  loop %d: %s\" << std::endl;\n", i, verdict)
		}
	}
	return b.String()
}

func isPrintable(typ string) bool {
	switch strings.TrimSpace(typ) {
	case "int", "long", "long long", "unsigned int", "float", "double", "bool", "char", "std::string":
		return true
	default:
		return false
	}
}
