package parser

import (
	"strings"
	"testing"

	"hybridize/internal/lexer"
)

// parse is the shared helper used throughout this package's tests and
// mirrored by internal/funcanalysis and internal/loopanalysis: scan then
// parse, returning both the tree and any accumulated parse errors.
func parse(t *testing.T, src string) *TranslationUnit {
	t.Helper()
	tokens := lexer.NewScanner(src, "test.cpp").ScanTokens()
	p := NewParserWithSource(tokens, src, "test.cpp")
	tu, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(p.Errors) > 0 {
		t.Fatalf("Parse() accumulated errors: %v", p.Errors)
	}
	return tu
}

func assertParseError(t *testing.T, src string) {
	t.Helper()
	tokens := lexer.NewScanner(src, "bad.cpp").ScanTokens()
	p := NewParserWithSource(tokens, src, "bad.cpp")
	_, err := p.Parse()
	if err == nil && len(p.Errors) == 0 {
		t.Fatalf("expected a parse error for %q, got none", src)
	}
}

func TestIncludesAreCollectedVerbatim(t *testing.T) {
	tu := parse(t, `
#include <cstdio>
#include <vector>
int main() { return 0; }
`)
	if len(tu.Includes) != 2 {
		t.Fatalf("expected 2 includes, got %d: %v", len(tu.Includes), tu.Includes)
	}
}

func TestGlobalVarDeclWithInitializer(t *testing.T) {
	tu := parse(t, `double total = 0.0;`)
	if len(tu.Globals) != 1 {
		t.Fatalf("expected 1 global, got %d", len(tu.Globals))
	}
	g := tu.Globals[0]
	if g.Name != "total" || g.Type != "double" || !g.IsGlobal {
		t.Fatalf("unexpected global: %+v", g)
	}
	if g.InitText != "0.0" {
		t.Fatalf("InitText = %q, want %q", g.InitText, "0.0")
	}
}

func TestGlobalArrayDeclFoldsBoundIntoType(t *testing.T) {
	tu := parse(t, `int counts[100];`)
	if len(tu.Globals) != 1 {
		t.Fatalf("expected 1 global, got %d", len(tu.Globals))
	}
	if tu.Globals[0].Type != "int [100]" {
		t.Fatalf("Type = %q, want %q", tu.Globals[0].Type, "int [100]")
	}
}

func TestFunctionDeclWithParamsAndBody(t *testing.T) {
	tu := parse(t, `
double scale(double x, int n) {
  return x * n;
}
`)
	if len(tu.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(tu.Functions))
	}
	fn := tu.Functions[0]
	if fn.Name != "scale" || fn.ReturnType != "double" {
		t.Fatalf("unexpected function: %+v", fn)
	}
	if len(fn.Params) != 2 || fn.Params[0].Name != "x" || fn.Params[1].Type != "int" {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
	if fn.Body == nil {
		t.Fatal("expected a non-nil body")
	}
}

func TestPointerAndArrayParameterDeclarators(t *testing.T) {
	tu := parse(t, `
void fill(int* out, const double& scale, int a[], int b[10]) {
  return;
}
`)
	fn := tu.Functions[0]
	wantTypes := []string{"int*", "const double&", "int []", "int [10]"}
	for i, want := range wantTypes {
		if fn.Params[i].Type != want {
			t.Errorf("param %d type = %q, want %q", i, fn.Params[i].Type, want)
		}
	}
}

func TestForWhileDoLoopsParse(t *testing.T) {
	tu := parse(t, `
void work(int n) {
  for (int i = 0; i < n; i++) {
    int x = i;
  }
  while (n > 0) {
    n--;
  }
  do {
    n++;
  } while (n < 10);
}
`)
	fn := tu.Functions[0]
	body := fn.Body
	if body == nil {
		t.Fatal("expected a non-nil body")
	}
	if len(body.Stmts) != 3 {
		t.Fatalf("expected 3 top-level statements, got %d", len(body.Stmts))
	}
	if _, ok := body.Stmts[0].(*ForStmt); !ok {
		t.Errorf("stmt 0 = %T, want *ForStmt", body.Stmts[0])
	}
	if _, ok := body.Stmts[1].(*WhileStmt); !ok {
		t.Errorf("stmt 1 = %T, want *WhileStmt", body.Stmts[1])
	}
	if _, ok := body.Stmts[2].(*DoStmt); !ok {
		t.Errorf("stmt 2 = %T, want *DoStmt", body.Stmts[2])
	}
}

func TestCompoundAssignAndIndexExpr(t *testing.T) {
	tu := parse(t, `
void accumulate(int n) {
  int sums[10];
  sums[0] += n;
}
`)
	fn := tu.Functions[0]
	body := fn.Body
	exprStmt, ok := body.Stmts[1].(*ExprStmt)
	if !ok {
		t.Fatalf("stmt 1 = %T, want *ExprStmt", body.Stmts[1])
	}
	assign, ok := exprStmt.Expr.(*CompoundAssignOperator)
	if !ok {
		t.Fatalf("expr = %T, want *CompoundAssignOperator", exprStmt.Expr)
	}
	if assign.Operator != "+=" {
		t.Errorf("Operator = %q, want %q", assign.Operator, "+=")
	}
	if _, ok := assign.Target.(*IndexExpr); !ok {
		t.Errorf("Target = %T, want *IndexExpr", assign.Target)
	}
}

func TestCallExprArgumentsInOrder(t *testing.T) {
	tu := parse(t, `
int main() {
  int x;
  x = add(1, 2, x);
  return 0;
}
`)
	fn := tu.Functions[0]
	body := fn.Body
	assignStmt := body.Stmts[1].(*ExprStmt)
	bin := assignStmt.Expr.(*BinaryOperator)
	call, ok := bin.Right.(*CallExpr)
	if !ok {
		t.Fatalf("RHS = %T, want *CallExpr", bin.Right)
	}
	if call.Callee != "add" || len(call.Args) != 3 {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestStreamExprParses(t *testing.T) {
	tu := parse(t, `
int main() {
  std::cout << "hello" << 42;
  return 0;
}
`)
	fn := tu.Functions[0]
	body := fn.Body
	exprStmt := body.Stmts[0].(*ExprStmt)
	if _, ok := exprStmt.Expr.(*StreamExpr); !ok {
		t.Fatalf("expr = %T, want *StreamExpr", exprStmt.Expr)
	}
}

func TestUnterminatedFunctionIsAParseError(t *testing.T) {
	assertParseError(t, `int main( { `)
}

func TestFunctionPointerTypedefCapturedVerbatim(t *testing.T) {
	tu := parse(t, `
typedef int (*SimpleFunction)(int);

int square(int x) {
  return x * x;
}
`)
	if len(tu.TypedefDecls) != 1 {
		t.Fatalf("expected 1 typedef decl, got %d: %v", len(tu.TypedefDecls), tu.TypedefDecls)
	}
	if !strings.Contains(tu.TypedefDecls[0], "typedef int (*SimpleFunction)(int)") {
		t.Fatalf("TypedefDecls[0] = %q", tu.TypedefDecls[0])
	}
	if len(tu.Functions) != 1 || tu.Functions[0].Name != "square" {
		t.Fatalf("expected the function following the typedef to still parse: %+v", tu.Functions)
	}
}

func TestStructTypedefWithEmbeddedSemicolons(t *testing.T) {
	tu := parse(t, `
typedef struct {
  int x, y;
} Point;

int main() { return 0; }
`)
	if len(tu.TypedefDecls) != 1 {
		t.Fatalf("expected 1 typedef decl, got %d: %v", len(tu.TypedefDecls), tu.TypedefDecls)
	}
	if !strings.Contains(tu.TypedefDecls[0], "Point") {
		t.Fatalf("TypedefDecls[0] = %q, want it to mention Point", tu.TypedefDecls[0])
	}
}

func TestUsingAliasCapturedVerbatim(t *testing.T) {
	tu := parse(t, `
using IntProcessor = int;

int main() { return 0; }
`)
	if len(tu.TypedefDecls) != 1 {
		t.Fatalf("expected 1 typedef decl, got %d: %v", len(tu.TypedefDecls), tu.TypedefDecls)
	}
	if !strings.Contains(tu.TypedefDecls[0], "using IntProcessor") {
		t.Fatalf("TypedefDecls[0] = %q", tu.TypedefDecls[0])
	}
}
