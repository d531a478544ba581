// Package model holds the data model (§3) shared by every analysis and
// emission stage: FunctionSummary is built by C3, mutated by C4, and
// frozen before C6; LoopRecord, CallSite, LocalBinding, DependencyEdge,
// ExecutionPlan and OutputProgram follow the same one-struct-many-owners
// shape. Keeping them in one package (rather than one per component)
// avoids the import cycle a spec section written as a single "DATA
// MODEL" naturally implies once every component needs to read and write
// the same records.
package model

import "hybridize/internal/symbols"

// FunctionSummary is one per user-defined function (§3, §4.3).
type FunctionSummary struct {
	Name         string
	ReturnType   string
	Params       []Param
	BodyText     string
	GlobalReads  map[string]bool
	GlobalWrites map[string]bool
	LocalSymbols []*symbols.Symbol
	Loops        []*LoopRecord
}

// Param is one function parameter (name, type).
type Param struct {
	Name string
	Type string
}

func NewFunctionSummary(name, returnType string, params []Param, bodyText string) *FunctionSummary {
	return &FunctionSummary{
		Name:         name,
		ReturnType:   returnType,
		Params:       params,
		BodyText:     bodyText,
		GlobalReads:  make(map[string]bool),
		GlobalWrites: make(map[string]bool),
	}
}

// LoopKind classifies a LoopRecord (§3).
type LoopKind int

const (
	For LoopKind = iota
	While
	DoWhile
)

func (k LoopKind) String() string {
	switch k {
	case For:
		return "For"
	case While:
		return "While"
	case DoWhile:
		return "DoWhile"
	default:
		return "Unknown"
	}
}

// Schedule is the OpenMP schedule clause chosen for a parallel loop (§4.4.6).
type Schedule int

const (
	NoSchedule Schedule = iota
	Static
	DynamicChunked
)

// Reduction pairs a reduced symbol with its compound operator (§4.4.2).
type Reduction struct {
	Symbol string
	Op     string
}

// SourceSpan is a start/end line+column pair (§3).
type SourceSpan struct {
	StartLine, StartColumn int
	EndLine, EndColumn     int
}

// LoopRecord is one per lexical loop (§3, §4.4).
type LoopRecord struct {
	Kind                LoopKind
	SourceText          string
	CondText            string
	Span                SourceSpan
	ContainingFunction  string
	IterationVariable   string
	Depth               int
	Reads               map[string]bool
	Writes              map[string]bool
	Reductions          []Reduction
	HasIO               bool
	HasFunctionCall     bool
	HasUnsafeCall       bool
	HasBreakContinue    bool
	HasComplexCondition bool
	IsNestedInner       bool
	HasLoopCarriedDep   bool
	UnsafeCalls         map[string]bool
	ThreadLocalNeeds    map[string]bool
	Parallelizable      bool
	NotParallelizableReason string
	ScheduleChunk       int
	Sched               Schedule
	PragmaText          string
}

func NewLoopRecord(kind LoopKind, fn string) *LoopRecord {
	return &LoopRecord{
		Kind:               kind,
		ContainingFunction:  fn,
		Reads:               make(map[string]bool),
		Writes:              make(map[string]bool),
		UnsafeCalls:         make(map[string]bool),
		ThreadLocalNeeds:    make(map[string]bool),
	}
}

// CallSite is one per user-function invocation inside main (§3, §4.5).
type CallSite struct {
	CalleeName        string
	OrderIndex        int
	Line              int
	HasReturnValue    bool
	ReturnBinding     *LocalBinding
	ReturnType        string
	ArgumentVariables []string
	UsedLocals        map[string]bool
	RawText           string
}

// LocalBinding is one per local variable declared in main (§3, §4.5.1).
type LocalBinding struct {
	Name             string
	Type             string
	DeclarationOrder int
	InitializerText  string
	DefinedAtCall    int // -1 means none
	UsedAtCalls      map[int]bool
	IsParameterAlias bool
}

func NewLocalBinding(name, typ string, order int) *LocalBinding {
	return &LocalBinding{
		Name:             name,
		Type:             typ,
		DeclarationOrder: order,
		DefinedAtCall:    -1,
		UsedAtCalls:       make(map[int]bool),
	}
}

// EdgeReasonKind names a DependencyEdge justification (§3, §4.6.1).
type EdgeReasonKind int

const (
	LocalDataFlow EdgeReasonKind = iota
	GlobalRAW
	GlobalWAW
	GlobalWAR
)

func (k EdgeReasonKind) String() string {
	switch k {
	case LocalDataFlow:
		return "LocalDataFlow"
	case GlobalRAW:
		return "GlobalRAW"
	case GlobalWAW:
		return "GlobalWAW"
	case GlobalWAR:
		return "GlobalWAR"
	default:
		return "Unknown"
	}
}

// EdgeReason is one labeled justification on a DependencyEdge.
type EdgeReason struct {
	Kind   EdgeReasonKind
	Symbol string
}

// DependencyEdge is directed, between CallSite order indices (§3, §4.6.1).
type DependencyEdge struct {
	From, To int
	Reasons  []EdgeReason
}

// ExecutionPlan is an ordered sequence of independent-call groups (§3, §4.6.3).
type ExecutionPlan struct {
	Groups [][]int
}

// MainExtraction is the C5 Main Extractor's output: every local declared
// in main plus every user-function call site, both in source order.
type MainExtraction struct {
	Locals []*LocalBinding
	Calls  []*CallSite
}

// OutputProgram is the emitter's final bundle (§3, §4.7).
type OutputProgram struct {
	OriginalIncludes   []string
	TypedefDecls       []string
	GlobalDeclarations []string
	EmittedFunctions   []string
	EmittedMain        string
}
