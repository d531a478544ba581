// Package reporting renders the §6.3 diagnostic report: the fixed
// textual grammar printed after emission describing every global,
// every local in main, each function's read/write sets, each loop's
// verdict, and the final group schedule. The report structs also carry
// JSON tags that document their shape, following the teacher lineage's
// pattern of structs that are simultaneously a stdout report and a
// storable record; internal/cache stores the Render() text, not the
// structs.
package reporting

import (
	"fmt"
	"sort"
	"strings"

	"hybridize/internal/model"
)

// GlobalInfo is one reported global declaration.
type GlobalInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LocalInfo is one reported local in main.
type LocalInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FunctionReport summarizes one FunctionSummary and its loops.
type FunctionReport struct {
	Name         string       `json:"name"`
	ReturnType   string       `json:"return_type"`
	GlobalReads  []string     `json:"global_reads"`
	GlobalWrites []string     `json:"global_writes"`
	Loops        []LoopReport `json:"loops"`
}

// LoopReport summarizes one LoopRecord.
type LoopReport struct {
	Span           model.SourceSpan `json:"span"`
	Kind           string           `json:"kind"`
	Parallelizable bool             `json:"parallelizable"`
	Schedule       string           `json:"schedule"`
	Pragma         string           `json:"pragma"`
	Reductions     []string         `json:"reductions"`
	Reads          []string         `json:"reads"`
	Writes         []string         `json:"writes"`
	Notes          string           `json:"notes"`
}

// GroupReport summarizes one ExecutionPlan group.
type GroupReport struct {
	Index   int      `json:"index"`
	Callees []string `json:"callees"`
}

// Totals holds the §6.3 parallelization totals.
type Totals struct {
	LoopsFound        int     `json:"loops_found"`
	LoopsParallelized int     `json:"loops_parallelized"`
	RatePercent       float64 `json:"rate_percent"`
}

// Report is the full diagnostic report (§6.3).
type Report struct {
	Globals   []GlobalInfo     `json:"globals"`
	Locals    []LocalInfo      `json:"locals"`
	Functions []FunctionReport `json:"functions"`
	Groups    []GroupReport    `json:"groups"`
	Totals    Totals           `json:"totals"`
}

// Build assembles a Report from the pipeline's intermediate artifacts.
func Build(globals []GlobalInfo, locals []LocalInfo, summaries []*model.FunctionSummary, plan *model.ExecutionPlan, calleeByIndex map[int]string) *Report {
	r := &Report{Globals: globals, Locals: locals}

	loopsFound, loopsParallelized := 0, 0
	for _, fn := range summaries {
		fr := FunctionReport{
			Name:         fn.Name,
			ReturnType:   fn.ReturnType,
			GlobalReads:  sortedKeys(fn.GlobalReads),
			GlobalWrites: sortedKeys(fn.GlobalWrites),
		}
		for _, l := range fn.Loops {
			loopsFound++
			if l.Parallelizable {
				loopsParallelized++
			}
			fr.Loops = append(fr.Loops, LoopReport{
				Span:           l.Span,
				Kind:           l.Kind.String(),
				Parallelizable: l.Parallelizable,
				Schedule:       scheduleString(l),
				Pragma:         l.PragmaText,
				Reductions:     reductionStrings(l.Reductions),
				Reads:          sortedKeys(l.Reads),
				Writes:         sortedKeys(l.Writes),
				Notes:          l.NotParallelizableReason,
			})
		}
		r.Functions = append(r.Functions, fr)
	}

	if plan != nil {
		for i, group := range plan.Groups {
			var callees []string
			for _, idx := range group {
				callees = append(callees, calleeByIndex[idx])
			}
			r.Groups = append(r.Groups, GroupReport{Index: i, Callees: callees})
		}
	}

	r.Totals = Totals{LoopsFound: loopsFound, LoopsParallelized: loopsParallelized}
	if loopsFound > 0 {
		r.Totals.RatePercent = roundTo1Decimal(100 * float64(loopsParallelized) / float64(loopsFound))
	}
	return r
}

func scheduleString(l *model.LoopRecord) string {
	switch l.Sched {
	case model.Static:
		return "static"
	case model.DynamicChunked:
		return fmt.Sprintf("dynamic,%d", l.ScheduleChunk)
	default:
		return "none"
	}
}

func reductionStrings(reds []model.Reduction) []string {
	out := make([]string, len(reds))
	for i, r := range reds {
		out[i] = fmt.Sprintf("%s:%s", r.Symbol, r.Op)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func roundTo1Decimal(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

// Render produces the §6.3 grammar as plain text.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString("=== Globals ===\n")
	for _, g := range r.Globals {
		fmt.Fprintf(&b, "  %s %s\n", g.Type, g.Name)
	}

	b.WriteString("=== Locals (main) ===\n")
	for _, l := range r.Locals {
		fmt.Fprintf(&b, "  %s %s\n", l.Type, l.Name)
	}

	b.WriteString("=== Functions ===\n")
	for _, fn := range r.Functions {
		fmt.Fprintf(&b, "  %s %s\n", fn.ReturnType, fn.Name)
		fmt.Fprintf(&b, "    global_reads: %s\n", strings.Join(fn.GlobalReads, ", "))
		fmt.Fprintf(&b, "    global_writes: %s\n", strings.Join(fn.GlobalWrites, ", "))
		for _, l := range fn.Loops {
			fmt.Fprintf(&b, "    loop @%d:%d kind=%s parallelizable=%t schedule=%s\n",
				l.Span.StartLine, l.Span.StartColumn, l.Kind, l.Parallelizable, l.Schedule)
			if l.Pragma != "" {
				fmt.Fprintf(&b, "      pragma: %s\n", l.Pragma)
			}
			if len(l.Reductions) > 0 {
				fmt.Fprintf(&b, "      reductions: %s\n", strings.Join(l.Reductions, ", "))
			}
			fmt.Fprintf(&b, "      reads: %s\n", strings.Join(l.Reads, ", "))
			fmt.Fprintf(&b, "      writes: %s\n", strings.Join(l.Writes, ", "))
			if l.Notes != "" {
				fmt.Fprintf(&b, "      notes: %s\n", l.Notes)
			}
		}
	}

	fmt.Fprintf(&b, "=== Totals ===\n  loops_found: %d\n  loops_parallelized: %d\n  parallelization_rate: %.1f%%\n",
		r.Totals.LoopsFound, r.Totals.LoopsParallelized, r.Totals.RatePercent)

	b.WriteString("=== Groups ===\n")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "  group %d: %s\n", g.Index, strings.Join(g.Callees, ", "))
	}

	b.WriteString("=== hybridize: emission complete ===\n")
	return b.String()
}
