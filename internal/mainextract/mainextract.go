// Package mainextract implements the C5 Main Extractor (§4.5): it walks
// only the body of `main`, collecting every local declaration into a
// LocalBinding and every user-function call into a CallSite, then
// annotates each local with where it is defined and where it is read.
// Unlike C3/C4's uniform per-node dispatch, extraction here is
// context-sensitive (a call's order_index and return_binding depend on
// whether it sits in a decl initializer, an assignment RHS, or neither),
// so this package walks with a plain type switch rather than the
// parser.Visitor double dispatch — the same tradeoff the teacher
// lineage's command dispatcher (internal/commands) made for handlers
// that need caller-supplied context a fixed interface method can't carry.
package mainextract

import "hybridize/internal/parser"
import "hybridize/internal/model"

// IsUserFunctionFunc reports whether a callee name is a user function per
// §4.5.1's deny-list predicate.
type IsUserFunctionFunc func(name string) bool

// defaultDenyList is the closed catalog of C stdlib and C++ idiom names
// named in §4.5.1's minimum requirement.
var defaultDenyList = map[string]bool{
	"printf": true, "scanf": true, "malloc": true, "free": true, "memcpy": true,
	"memset": true, "strlen": true, "strcpy": true, "strcmp": true, "strcat": true,
	"sin": true, "cos": true, "tan": true, "exp": true, "sqrt": true, "pow": true,
	"log": true, "fabs": true, "abs": true, "floor": true, "ceil": true,
	"time": true, "rand": true, "srand": true,
	"sort": true, "push_back": true, "pop_back": true, "begin": true, "end": true,
	"size": true, "empty": true, "insert": true, "erase": true, "find": true,
	"operator<<": true, "operator>>": true,
}

// DefaultIsUserFunction implements §4.5.1: not in the deny list, does not
// begin with "__", contains neither "::" nor angle brackets, and is not
// a known stream sentinel.
func DefaultIsUserFunction(name string) bool {
	if name == "" || defaultDenyList[name] {
		return false
	}
	if len(name) >= 2 && name[0] == '_' && name[1] == '_' {
		return false
	}
	for _, r := range name {
		if r == ':' || r == '<' || r == '>' {
			return false
		}
	}
	switch name {
	case "cout", "cin", "cerr", "endl":
		return false
	}
	return true
}

// Extract walks main's body and returns its locals and call sites.
// calleeReturnTypes maps user-function name to return type, used to
// decide has_return_value and the synthesized result type.
func Extract(tu *parser.TranslationUnit, calleeReturnTypes map[string]string, isUserFunction IsUserFunctionFunc) *model.MainExtraction {
	if isUserFunction == nil {
		isUserFunction = DefaultIsUserFunction
	}
	var mainFn *parser.FunctionDecl
	for _, fn := range tu.Functions {
		if fn.Name == "main" && fn.Body != nil {
			mainFn = fn
			break
		}
	}
	result := &model.MainExtraction{}
	if mainFn == nil {
		return result
	}

	e := &extractor{
		calleeReturnTypes: calleeReturnTypes,
		isUserFunction:    isUserFunction,
		localsByName:      make(map[string]*model.LocalBinding),
	}
	e.walkStmt(mainFn.Body, nil)

	// §4.5's step 4: for every local appearing in any used_locals(k), set
	// used_at_calls. Already accumulated incrementally in recordCall.
	result.Locals = e.locals
	result.Calls = e.calls
	return result
}

type extractor struct {
	calleeReturnTypes map[string]string
	isUserFunction    IsUserFunctionFunc
	localsByName      map[string]*model.LocalBinding
	locals            []*model.LocalBinding
	calls             []*model.CallSite
	nextDeclOrder     int
}

// walkStmt recurses through statements. bindingCtx, when non-nil, names
// the LocalBinding a directly-nested call expression should bind to
// (decl initializer or assignment RHS context); it is not propagated
// into nested statements.
func (e *extractor) walkStmt(n parser.Node, bindingCtx *model.LocalBinding) {
	if n == nil {
		return
	}
	switch s := n.(type) {
	case *parser.CompoundStmt:
		for _, stmt := range s.Stmts {
			e.walkStmt(stmt, nil)
		}
	case *parser.DeclStmt:
		for _, d := range s.Decls {
			e.declareLocal(d)
		}
	case *parser.ForStmt:
		e.walkStmt(s.Init, nil)
		e.walkExpr(s.Cond, nil)
		e.walkExpr(s.Update, nil)
		e.walkStmt(s.Body, nil)
	case *parser.WhileStmt:
		e.walkExpr(s.Cond, nil)
		e.walkStmt(s.Body, nil)
	case *parser.DoStmt:
		e.walkStmt(s.Body, nil)
		e.walkExpr(s.Cond, nil)
	case *parser.IfStmt:
		e.walkExpr(s.Cond, nil)
		e.walkStmt(s.Then, nil)
		e.walkStmt(s.Else, nil)
	case *parser.ReturnStmt:
		e.walkExpr(s.Value, nil)
	case *parser.ExprStmt:
		e.walkExpr(s.Expr, nil)
	case *parser.BreakStmt, *parser.ContinueStmt:
		// no-op
	}
}

// declareLocal adds a LocalBinding for d, determines its initializer
// shape (§4.5.1 step 1), and — if the initializer is itself a qualifying
// user-function call — records that CallSite with this binding attached.
func (e *extractor) declareLocal(d *parser.VarDecl) {
	binding := model.NewLocalBinding(d.Name, d.Type, e.nextDeclOrder)
	e.nextDeclOrder++
	binding.InitializerText = initializerText(d)
	e.locals = append(e.locals, binding)
	e.localsByName[d.Name] = binding

	if d.Initializer != nil {
		e.walkExpr(d.Initializer, binding)
	}
}

// initializerText renders the verbatim RHS per the three §4.5.1 shapes.
func initializerText(d *parser.VarDecl) string {
	if d.Initializer != nil {
		return d.InitText
	}
	if d.InitText != "" {
		return d.InitText // constructor shape: "NAME(args)"
	}
	return ""
}

// walkExpr recurses through expressions, recording qualifying call sites
// and collecting used-local references. bindingCtx names the local a
// directly-encountered call should bind to, if any.
func (e *extractor) walkExpr(n parser.Node, bindingCtx *model.LocalBinding) {
	if n == nil {
		return
	}
	switch expr := n.(type) {
	case *parser.CallExpr:
		if e.isUserFunction(expr.Callee) {
			e.recordCall(expr, bindingCtx)
		} else {
			for _, arg := range expr.Args {
				e.walkExpr(arg, nil)
			}
		}
	case *parser.BinaryOperator:
		if expr.Operator == "=" {
			if ref, ok := expr.Left.(*parser.DeclRefExpr); ok {
				if target, known := e.localsByName[ref.Name]; known {
					e.walkExpr(expr.Right, target)
					return
				}
			}
		}
		e.walkExpr(expr.Left, nil)
		e.walkExpr(expr.Right, nil)
	case *parser.CompoundAssignOperator:
		e.walkExpr(expr.Target, nil)
		e.walkExpr(expr.Right, nil)
	case *parser.UnaryOperator:
		e.walkExpr(expr.Operand, nil)
	case *parser.IndexExpr:
		e.walkExpr(expr.Object, nil)
		e.walkExpr(expr.Index, nil)
	case *parser.StreamExpr:
		e.walkExpr(expr.Object, nil)
		for _, op := range expr.Operands {
			e.walkExpr(op, nil)
		}
	case *parser.DeclRefExpr, *parser.Literal:
		// handled by collectVarNames when inside a call's arguments
	}
}

func (e *extractor) recordCall(call *parser.CallExpr, bindingCtx *model.LocalBinding) {
	site := &model.CallSite{
		CalleeName: call.Callee,
		OrderIndex: len(e.calls),
		Line:       call.Range().StartLine,
		RawText:    call.RawText,
		ReturnType: e.calleeReturnTypes[call.Callee],
		UsedLocals: make(map[string]bool),
	}
	site.HasReturnValue = site.ReturnType != "" && site.ReturnType != "void"

	if bindingCtx != nil {
		site.ReturnBinding = bindingCtx
		bindingCtx.DefinedAtCall = site.OrderIndex
	}

	seen := make(map[string]bool)
	for _, arg := range call.Args {
		e.collectVarNames(arg, &site.ArgumentVariables, seen)
		e.walkExpr(arg, nil)
	}
	for name := range seen {
		site.UsedLocals[name] = true
		if local, ok := e.localsByName[name]; ok {
			local.UsedAtCalls[site.OrderIndex] = true
		}
	}

	e.calls = append(e.calls, site)
}

// collectVarNames gathers known-local identifier references inside an
// argument expression, appending first occurrences to out in order and
// marking them in seen (§4.5's "ordered, with duplicates removed").
func (e *extractor) collectVarNames(n parser.Node, out *[]string, seen map[string]bool) {
	if n == nil {
		return
	}
	switch expr := n.(type) {
	case *parser.DeclRefExpr:
		if _, known := e.localsByName[expr.Name]; known && !seen[expr.Name] {
			seen[expr.Name] = true
			*out = append(*out, expr.Name)
		}
	case *parser.IndexExpr:
		e.collectVarNames(expr.Object, out, seen)
		e.collectVarNames(expr.Index, out, seen)
	case *parser.BinaryOperator:
		e.collectVarNames(expr.Left, out, seen)
		e.collectVarNames(expr.Right, out, seen)
	case *parser.UnaryOperator:
		e.collectVarNames(expr.Operand, out, seen)
	case *parser.CallExpr:
		for _, arg := range expr.Args {
			e.collectVarNames(arg, out, seen)
		}
	}
}
