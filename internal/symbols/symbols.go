// Package symbols implements the Symbol data model (§3) and the C2
// Global Collector: a single, idempotent walk over file-scope variable
// declarations. It is grounded on the teacher lineage's global-naming
// scheme (internal/compiler's OpGetGlobal/OpDefineGlobal, which also
// resolve names against one flat global table) generalized from a
// bytecode-constant index to a plain symbol record.
package symbols

import (
	"sort"

	"hybridize/internal/parser"
)

// Scope classifies where a Symbol was declared, per §3.
type Scope int

const (
	Global Scope = iota
	Local
	Parameter
)

func (s Scope) String() string {
	switch s {
	case Global:
		return "Global"
	case Local:
		return "Local"
	case Parameter:
		return "Parameter"
	default:
		return "Unknown"
	}
}

// Symbol is an identifier referenced inside user code (§3).
type Symbol struct {
	Name             string
	Scope            Scope
	DeclaredType     string
	DeclarationOrder int // dense, strictly increasing within a function; locals only
}

// Set is the ordered, name-indexed collection of globals visible to
// user code. Iteration order is always lexicographic by name per the
// §4.7.10 determinism requirement for symbol-name sets.
type Set struct {
	byName map[string]*Symbol
	order  []string
}

func NewSet() *Set {
	return &Set{byName: make(map[string]*Symbol)}
}

func (s *Set) add(sym *Symbol) {
	if _, exists := s.byName[sym.Name]; exists {
		return
	}
	s.byName[sym.Name] = sym
	s.order = append(s.order, sym.Name)
}

func (s *Set) sortedNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	sort.Strings(out)
	return out
}

// Contains reports whether name is a known global.
func (s *Set) Contains(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Get returns the Symbol for name, if present.
func (s *Set) Get(name string) (*Symbol, bool) {
	sym, ok := s.byName[name]
	return sym, ok
}

// Names returns all global names in lexicographic order.
func (s *Set) Names() []string {
	return s.sortedNames()
}

// Symbols returns all globals in lexicographic-by-name order.
func (s *Set) Symbols() []*Symbol {
	names := s.sortedNames()
	out := make([]*Symbol, 0, len(names))
	for _, name := range names {
		out = append(out, s.byName[name])
	}
	return out
}

// Len reports the number of globals collected.
func (s *Set) Len() int { return len(s.order) }

// IsSystemHeaderFunc reports whether a declaration's source range
// originates in a system header, per §6.1's per-location predicate.
// The bundled reference front end (§B.1) never reports system-header
// locations since it parses exactly one translation unit with no
// header expansion; a real AST host wires a non-trivial predicate in.
type IsSystemHeaderFunc func(parser.SourceRange) bool

// CollectGlobals walks top-level VarDecls in the translation unit and
// returns the Set of file-scope variables visible to user code (C2).
// It ignores declarations whose source range is in a system header and
// is idempotent: calling it twice on the same TranslationUnit yields
// sets with identical contents.
func CollectGlobals(tu *parser.TranslationUnit, isSystemHeader IsSystemHeaderFunc) *Set {
	if isSystemHeader == nil {
		isSystemHeader = func(parser.SourceRange) bool { return false }
	}
	set := NewSet()
	for _, decl := range tu.Globals {
		if isSystemHeader(decl.Range()) {
			continue
		}
		set.add(&Symbol{Name: decl.Name, Scope: Global, DeclaredType: decl.Type})
	}
	return set
}
