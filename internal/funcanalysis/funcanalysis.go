// Package funcanalysis implements the C3 Function Analyzer: for every
// user-defined function with a body it records the signature, captures
// the verbatim body text, and classifies every name referenced inside
// as a global read, a global write, or a local symbol (§4.3). The
// traversal is grounded on the now-retired internal/compiler's
// statement-by-statement AST walk, rebuilt here as a parser.Visitor
// implementation so double dispatch (Accept/Visit) does the same job
// the teacher's compiler used it for: one method per node kind, no type
// switch.
package funcanalysis

import (
	"fmt"
	"strings"

	"hybridize/internal/model"
	"hybridize/internal/parser"
	"hybridize/internal/symbols"
	"hybridize/internal/typemap"
)

// IsSystemHeaderFunc reports whether a source range originates in a
// system header; bodies there are skipped per §4.3 rule 4.
type IsSystemHeaderFunc func(parser.SourceRange) bool

// Analyze walks every function definition in tu (excluding main, which
// C5 and the emitter handle separately) and returns one FunctionSummary
// per function whose body is not in a system header, in source order.
// A prototype with no definition anywhere in the translation unit is
// not skipped: per §7's MissingFunctionDefinition policy a stub
// summary is synthesized for it instead, so the emitter never produces
// a call to an identifier that was never emitted.
func Analyze(tu *parser.TranslationUnit, globals *symbols.Set, isSystemHeader IsSystemHeaderFunc) []*model.FunctionSummary {
	if isSystemHeader == nil {
		isSystemHeader = func(parser.SourceRange) bool { return false }
	}

	defined := make(map[string]bool)
	for _, fn := range tu.Functions {
		if fn.Body != nil {
			defined[fn.Name] = true
		}
	}

	var out []*model.FunctionSummary
	stubbed := make(map[string]bool)
	for _, fn := range tu.Functions {
		if isSystemHeader(fn.Range()) {
			continue
		}
		if fn.Name == "main" {
			// main is handled exclusively by the C5 Main Extractor; it is
			// synthesized fresh by the emitter, never reproduced verbatim.
			continue
		}
		if fn.Body == nil {
			if defined[fn.Name] || stubbed[fn.Name] {
				continue // ordinary forward declaration; the real body follows
			}
			out = append(out, stubSummary(fn))
			stubbed[fn.Name] = true
			continue
		}
		params := make([]model.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = model.Param{Name: p.Name, Type: p.Type}
		}
		summary := model.NewFunctionSummary(fn.Name, fn.ReturnType, params, fn.BodyText)
		a := &analyzer{globals: globals, summary: summary, localSeen: make(map[string]bool)}
		for _, p := range fn.Params {
			a.localSeen[p.Name] = true // parameters are not local_symbols, but shadow globals
		}
		fn.Body.Accept(a)
		out = append(out, summary)
	}
	return out
}

// stubSummary implements §7's MissingFunctionDefinition recovery: a
// printf placeholder plus the default return value for the declared
// return type, reproducing the prototype's signature verbatim.
func stubSummary(fn *parser.FunctionDecl) *model.FunctionSummary {
	params := make([]model.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = model.Param{Name: p.Name, Type: p.Type}
	}
	return model.NewFunctionSummary(fn.Name, fn.ReturnType, params, stubBody(fn.Name, fn.ReturnType))
}

func stubBody(name, returnType string) string {
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  printf(\"STUB: %s not implemented\\n\");\n", name)
	if strings.TrimSpace(returnType) != "void" {
		fmt.Fprintf(&b, "  return %s;\n", typemap.DefaultLiteralOf(returnType))
	}
	b.WriteString("}")
	return b.String()
}

// analyzer implements parser.Visitor. Per §4.3's classification policy,
// VisitBinaryOperator records the LHS of a plain "=" as a write only,
// never a read, while VisitCompoundAssignOperator records a compound
// assignment or ++/-- target as both a read and a write.
type analyzer struct {
	globals   *symbols.Set
	summary   *model.FunctionSummary
	localSeen map[string]bool
	nextOrder int
}

func (a *analyzer) recordLocal(name, typ string) {
	if a.localSeen[name] {
		return
	}
	a.localSeen[name] = true
	a.summary.LocalSymbols = append(a.summary.LocalSymbols, &symbols.Symbol{
		Name: name, Scope: symbols.Local, DeclaredType: typ, DeclarationOrder: a.nextOrder,
	})
	a.nextOrder++
}

func (a *analyzer) recordRead(name string) {
	if a.globals != nil && a.globals.Contains(name) {
		a.summary.GlobalReads[name] = true
	}
}

func (a *analyzer) recordWrite(name string) {
	if a.globals != nil && a.globals.Contains(name) {
		a.summary.GlobalWrites[name] = true
	}
}

// nameOf extracts the base identifier written to by an assignment
// target: DeclRefExpr directly, or IndexExpr's underlying object.
func nameOf(n parser.Node) (string, bool) {
	switch t := n.(type) {
	case *parser.DeclRefExpr:
		return t.Name, true
	case *parser.IndexExpr:
		return nameOf(t.Object)
	}
	return "", false
}

func (a *analyzer) VisitFunctionDecl(n *parser.FunctionDecl) interface{} {
	if n.Body != nil {
		n.Body.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitVarDecl(n *parser.VarDecl) interface{} {
	a.recordLocal(n.Name, n.Type)
	if n.Initializer != nil {
		n.Initializer.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitCompoundStmt(n *parser.CompoundStmt) interface{} {
	for _, s := range n.Stmts {
		s.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitForStmt(n *parser.ForStmt) interface{} {
	if n.Init != nil {
		n.Init.Accept(a)
	}
	if n.Cond != nil {
		n.Cond.Accept(a)
	}
	if n.Update != nil {
		n.Update.Accept(a)
	}
	if n.Body != nil {
		n.Body.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitWhileStmt(n *parser.WhileStmt) interface{} {
	if n.Cond != nil {
		n.Cond.Accept(a)
	}
	if n.Body != nil {
		n.Body.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitDoStmt(n *parser.DoStmt) interface{} {
	if n.Body != nil {
		n.Body.Accept(a)
	}
	if n.Cond != nil {
		n.Cond.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitIfStmt(n *parser.IfStmt) interface{} {
	if n.Cond != nil {
		n.Cond.Accept(a)
	}
	if n.Then != nil {
		n.Then.Accept(a)
	}
	if n.Else != nil {
		n.Else.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitReturnStmt(n *parser.ReturnStmt) interface{} {
	if n.Value != nil {
		n.Value.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitBinaryOperator(n *parser.BinaryOperator) interface{} {
	if n.Operator == "=" {
		if name, ok := nameOf(n.Left); ok {
			a.recordWrite(name)
			if idx, ok := n.Left.(*parser.IndexExpr); ok {
				idx.Index.Accept(a)
			}
		} else {
			n.Left.Accept(a)
		}
		n.Right.Accept(a)
		return nil
	}
	n.Left.Accept(a)
	n.Right.Accept(a)
	return nil
}

func (a *analyzer) VisitCompoundAssignOperator(n *parser.CompoundAssignOperator) interface{} {
	// Per §4.3: LHS of a compound operator is a write AND a read.
	if name, ok := nameOf(n.Target); ok {
		a.recordRead(name)
		a.recordWrite(name)
		if idx, ok := n.Target.(*parser.IndexExpr); ok {
			idx.Index.Accept(a)
		}
	} else {
		n.Target.Accept(a)
	}
	if n.Right != nil {
		n.Right.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitUnaryOperator(n *parser.UnaryOperator) interface{} {
	if n.Operand != nil {
		n.Operand.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitCallExpr(n *parser.CallExpr) interface{} {
	for _, arg := range n.Args {
		arg.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitDeclRefExpr(n *parser.DeclRefExpr) interface{} {
	a.recordRead(n.Name)
	return nil
}

func (a *analyzer) VisitIndexExpr(n *parser.IndexExpr) interface{} {
	n.Object.Accept(a)
	n.Index.Accept(a)
	return nil
}

func (a *analyzer) VisitLiteral(n *parser.Literal) interface{} { return nil }

func (a *analyzer) VisitBreakStmt(n *parser.BreakStmt) interface{}       { return nil }
func (a *analyzer) VisitContinueStmt(n *parser.ContinueStmt) interface{} { return nil }

func (a *analyzer) VisitDeclStmt(n *parser.DeclStmt) interface{} {
	for _, d := range n.Decls {
		d.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitExprStmt(n *parser.ExprStmt) interface{} {
	if n.Expr != nil {
		n.Expr.Accept(a)
	}
	return nil
}

func (a *analyzer) VisitStreamExpr(n *parser.StreamExpr) interface{} {
	n.Object.Accept(a)
	for _, op := range n.Operands {
		op.Accept(a)
	}
	return nil
}
