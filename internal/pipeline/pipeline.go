// Package pipeline orchestrates C1 through C7 over one translation
// unit. Per §9's design note, state that the original tooling carried
// as process-wide singletons is modeled here as one Program value
// passed by reference through an ordered sequence of passes, each
// consuming its predecessor's output; nothing is mutated after the pass
// that owns it returns, except FunctionSummary.Loops, which by §3's
// lifecycle is written by both C3 and C4 before C6 freezes it.
package pipeline

import (
	"fmt"

	"hybridize/internal/emitter"
	"hybridize/internal/errors"
	"hybridize/internal/funcanalysis"
	"hybridize/internal/lexer"
	"hybridize/internal/loopanalysis"
	"hybridize/internal/mainextract"
	"hybridize/internal/model"
	"hybridize/internal/parser"
	"hybridize/internal/reporting"
	"hybridize/internal/scheduler"
	"hybridize/internal/symbols"
	"hybridize/internal/typemap"
)

// Program is the top-level value threading every pass's artifacts
// through the pipeline (§9 "Globals as singletons").
type Program struct {
	TU         *parser.TranslationUnit
	Globals    *symbols.Set
	Summaries  []*model.FunctionSummary
	Extraction *model.MainExtraction
	Edges      []model.DependencyEdge
	Plan       *model.ExecutionPlan
	Output     *model.OutputProgram
	Report     *reporting.Report
}

// IsSystemHeaderFunc reports whether a source range is in a system
// header; see symbols.IsSystemHeaderFunc.
type IsSystemHeaderFunc = symbols.IsSystemHeaderFunc

// Run lexes and parses source, then drives C2 through C7 to completion,
// returning the rendered output file text and the diagnostic report.
func Run(source, file string, isSystemHeader IsSystemHeaderFunc) (string, *Program, error) {
	scanner := lexer.NewScanner(source, file)
	tokens := scanner.ScanTokens()
	if len(scanner.Skipped) > 0 {
		bad := scanner.Skipped[0]
		return "", nil, errors.New(errors.ParseFailure, fmt.Sprintf("unrecognized character %q", bad.Lexeme), file, bad.Line, bad.Column)
	}
	p := parser.NewParserWithSource(tokens, source, file)
	tu, err := p.Parse()
	if err != nil {
		return "", nil, errors.New(errors.ParseFailure, err.Error(), file, 0, 0)
	}
	if len(p.Errors) > 0 {
		return "", nil, errors.New(errors.ParseFailure, fmt.Sprintf("%d parse error(s), first: %v", len(p.Errors), p.Errors[0]), file, 0, 0)
	}

	prog := &Program{TU: tu}

	// C2
	prog.Globals = symbols.CollectGlobals(tu, isSystemHeader)

	// C3
	prog.Summaries = funcanalysis.Analyze(tu, prog.Globals, funcanalysis.IsSystemHeaderFunc(isSystemHeader))

	// C4 (mutates prog.Summaries' Loops in place)
	loopanalysis.Analyze(tu, prog.Summaries)

	// C5
	returnTypes := make(map[string]string, len(prog.Summaries))
	for _, fn := range prog.Summaries {
		returnTypes[fn.Name] = fn.ReturnType
	}
	prog.Extraction = mainextract.Extract(tu, returnTypes, mainextract.DefaultIsUserFunction)

	// C6
	summariesByName := make(map[string]*model.FunctionSummary, len(prog.Summaries))
	for _, fn := range prog.Summaries {
		summariesByName[fn.Name] = fn
	}
	prog.Edges = scheduler.BuildEdges(prog.Extraction.Calls, summariesByName)
	prog.Plan = scheduler.Schedule(len(prog.Extraction.Calls), prog.Edges)

	// C7
	globalDecls := make(map[string]emitter.GlobalInfo, prog.Globals.Len())
	for _, sym := range prog.Globals.Symbols() {
		globalDecls[sym.Name] = emitter.GlobalInfo{
			Type:        sym.DeclaredType,
			InitLiteral: globalInitLiteral(tu, sym.Name, sym.DeclaredType),
		}
	}
	prog.Output = emitter.Emit(tu.Includes, tu.TypedefDecls, prog.Globals.Names(), globalDecls, prog.Summaries, prog.Extraction, prog.Plan)

	prog.Report = buildReport(prog)

	return emitter.Render(prog.Output), prog, nil
}

func globalInitLiteral(tu *parser.TranslationUnit, name, declaredType string) string {
	for _, g := range tu.Globals {
		if g.Name == name {
			if g.InitText != "" {
				return g.InitText
			}
			break
		}
	}
	return typemap.DefaultLiteralOf(declaredType)
}

func buildReport(prog *Program) *reporting.Report {
	var globals []reporting.GlobalInfo
	for _, sym := range prog.Globals.Symbols() {
		globals = append(globals, reporting.GlobalInfo{Name: sym.Name, Type: sym.DeclaredType})
	}

	var locals []reporting.LocalInfo
	for _, l := range prog.Extraction.Locals {
		locals = append(locals, reporting.LocalInfo{Name: l.Name, Type: l.Type})
	}

	calleeByIndex := make(map[int]string, len(prog.Extraction.Calls))
	for _, c := range prog.Extraction.Calls {
		calleeByIndex[c.OrderIndex] = c.CalleeName
	}

	return reporting.Build(globals, locals, prog.Summaries, prog.Plan, calleeByIndex)
}
