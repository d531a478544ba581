// internal/parser/parser.go
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"hybridize/internal/errors"
	"hybridize/internal/lexer"
)

// precedence gives the binding power of each binary operator, lowest
// (logical or) to highest (multiplicative), following the teacher
// lineage's single precedence-climbing parseBinary.
var precedence = map[lexer.TokenType]int{
	lexer.TokenOr:          1,
	lexer.TokenAnd:         2,
	lexer.TokenPipe:        3,
	lexer.TokenCaret:       4,
	lexer.TokenAmp:         5,
	lexer.TokenDoubleEqual: 6,
	lexer.TokenNotEqual:    6,
	lexer.TokenLT:          7,
	lexer.TokenGT:          7,
	lexer.TokenLE:          7,
	lexer.TokenGE:          7,
	lexer.TokenLShift:      8,
	lexer.TokenRShift:      8,
	lexer.TokenPlus:        9,
	lexer.TokenMinus:       9,
	lexer.TokenStar:        10,
	lexer.TokenSlash:       10,
	lexer.TokenPercent:     10,
}

var compoundAssignOps = map[lexer.TokenType]string{
	lexer.TokenPlusEq:  "+=",
	lexer.TokenMinusEq: "-=",
	lexer.TokenStarEq:  "*=",
	lexer.TokenSlashEq: "/=",
	lexer.TokenAmpEq:   "&=",
	lexer.TokenPipeEq:  "|=",
	lexer.TokenCaretEq: "^=",
}

// typeKeywords are tokens that may begin or continue a type name.
var typeKeywords = map[lexer.TokenType]bool{
	lexer.TokenConst:    true,
	lexer.TokenUnsigned: true,
}

// Parser is a recursive-descent parser over the restricted C/C++ subset
// described by SPEC_FULL.md §B.1, producing internal/parser AST nodes.
// It follows the teacher lineage's shape: a flat token slice, a cursor,
// panic/recover error propagation collected into Errors, and a small
// set of match/check/consume/advance utility methods.
type Parser struct {
	tokens      []lexer.Token
	current     int
	Errors      []error
	file        string
	sourceLines []string
	source      string
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

func NewParserWithSource(tokens []lexer.Token, source string, file string) *Parser {
	return &Parser{
		tokens:      tokens,
		file:        file,
		source:      source,
		sourceLines: strings.Split(source, "\n"),
	}
}

// Parse consumes the whole token stream into a TranslationUnit. Parse
// errors are recovered from a panic (teacher idiom) and appended to
// Errors; the caller should treat a non-empty Errors slice as a
// ParseFailure per §7.
func (p *Parser) Parse() (tu *TranslationUnit, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("parser panic: %v", r)
			}
			p.Errors = append(p.Errors, err)
		}
	}()

	tu = &TranslationUnit{}
	for !p.isAtEnd() {
		if p.check(lexer.TokenHash) {
			tok := p.advance()
			tu.Includes = append(tu.Includes, strings.TrimSpace(tok.Lexeme))
			continue
		}
		if p.check(lexer.TokenTypedef) || p.check(lexer.TokenUsing) {
			tu.TypedefDecls = append(tu.TypedefDecls, p.typedefOrUsingDecl())
			continue
		}
		p.topLevelDecl(tu)
	}
	return tu, nil
}

// typedefOrUsingDecl captures a top-level "typedef ...;" or "using
// NAME = ...;" declaration verbatim, tracking brace/paren depth so the
// terminating ';' of a struct or function-pointer typedef (which may
// itself contain semicolons or parens at a deeper level) is found
// correctly rather than the first ';' encountered.
func (p *Parser) typedefOrUsingDecl() string {
	start := p.peek()
	depth := 0
	for {
		tok := p.advance()
		switch tok.Type {
		case lexer.TokenLBrace, lexer.TokenLParen:
			depth++
		case lexer.TokenRBrace, lexer.TokenRParen:
			depth--
		case lexer.TokenSemicolon:
			if depth == 0 {
				return p.textBetween(start, tok)
			}
		}
		if p.isAtEnd() {
			p.fail(tok, "unterminated typedef/using declaration")
		}
	}
}

func (p *Parser) topLevelDecl(tu *TranslationUnit) {
	start := p.peek()
	typ := p.parseType()
	name := p.consume(lexer.TokenIdent, "expect declarator name").Lexeme

	if p.check(lexer.TokenLParen) {
		fn := p.functionDecl(start, typ, name)
		tu.Functions = append(tu.Functions, fn)
		return
	}

	decl := p.varDeclRest(start, typ, name, true)
	p.consume(lexer.TokenSemicolon, "expect ';' after global declaration")
	tu.Globals = append(tu.Globals, decl)
}

// parseType consumes a (possibly multi-token) type name: qualifiers,
// a base type (builtin keyword or identifier, with an optional
// "::"-joined namespace such as std::string), and "long long"-style
// repeated base keywords.
func (p *Parser) parseType() string {
	var parts []string
	for typeKeywords[p.peek().Type] {
		parts = append(parts, p.advance().Lexeme)
	}
	parts = append(parts, p.consumeTypeWord())
	for p.peek().Type == lexer.TokenIdent && isRepeatableTypeWord(parts[len(parts)-1]) && isRepeatableTypeWord(p.peek().Lexeme) {
		parts = append(parts, p.advance().Lexeme)
	}
	for p.peek().Type == lexer.TokenStar || p.peek().Type == lexer.TokenAmp {
		parts[len(parts)-1] += p.advance().Lexeme
	}
	return strings.Join(parts, " ")
}

func isRepeatableTypeWord(w string) bool {
	return w == "long" || w == "unsigned" || w == "short"
}

func (p *Parser) consumeTypeWord() string {
	tok := p.advance()
	if tok.Type != lexer.TokenIdent && tok.Type != lexer.TokenUnsigned && tok.Type != lexer.TokenConst {
		p.fail(tok, "expect type name")
	}
	name := tok.Lexeme
	if p.match(lexer.TokenDoubleColon) {
		rest := p.consume(lexer.TokenIdent, "expect name after '::'")
		name = name + "::" + rest.Lexeme
	}
	return name
}

func (p *Parser) functionDecl(start lexer.Token, returnType, name string) *FunctionDecl {
	p.consume(lexer.TokenLParen, "expect '(' after function name")
	var params []Param
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.param())
		for p.match(lexer.TokenComma) {
			params = append(params, p.param())
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after parameters")

	if p.match(lexer.TokenSemicolon) {
		return &FunctionDecl{Rng: p.rangeFrom(start), Name: name, ReturnType: returnType, Params: params}
	}

	bodyStartTok := p.peek()
	body := p.compoundStmt()
	bodyText := p.textBetween(bodyStartTok, p.previous())

	return &FunctionDecl{
		Rng:        p.rangeFrom(start),
		Name:       name,
		ReturnType: returnType,
		Params:     params,
		Body:       body,
		BodyText:   bodyText,
	}
}

func (p *Parser) param() Param {
	typ := p.parseType()
	for p.match(lexer.TokenAmp) || p.match(lexer.TokenStar) {
		// Reference/pointer declarators fold into the type spelling,
		// same as array declarators below.
		typ = typ + string(p.previous().Lexeme)
	}
	name := ""
	if p.check(lexer.TokenIdent) {
		name = p.advance().Lexeme
	}
	if p.match(lexer.TokenLBracket) {
		// Array parameter: `T name[]` decays to a pointer; the bound
		// (if present) is folded into the type spelling as with
		// varDeclRest, but an empty `[]` is common and must parse too.
		if !p.check(lexer.TokenRBracket) {
			boundTok := p.peek()
			p.expression()
			typ = typ + " [" + boundTok.Lexeme + "]"
		} else {
			typ = typ + " []"
		}
		p.consume(lexer.TokenRBracket, "expect ']' after array parameter")
	}
	return Param{Name: name, Type: typ}
}

func (p *Parser) varDeclRest(start lexer.Token, typ, name string, isGlobal bool) *VarDecl {
	decl := &VarDecl{Rng: p.rangeFrom(start), Name: name, Type: typ, IsGlobal: isGlobal}

	if p.match(lexer.TokenLBracket) {
		// Array declarator: fold the bound into the type spelling so
		// the type mapper and emitter heuristics (§4.7.2) see it.
		sizeTok := p.peek()
		size := p.expression()
		_ = size
		p.consume(lexer.TokenRBracket, "expect ']' after array size")
		decl.Type = typ + " [" + sizeTok.Lexeme + "]"
	}

	if p.match(lexer.TokenEqual) {
		valStart := p.peek()
		decl.Initializer = p.expression()
		decl.InitText = p.textBetween(valStart, p.previous())
		return decl
	}

	if p.check(lexer.TokenLParen) {
		// Constructor initializer: NAME(args) — store verbatim per §4.5.1.
		openTok := p.advance()
		depth := 1
		for depth > 0 && !p.isAtEnd() {
			t := p.advance()
			if t.Type == lexer.TokenLParen {
				depth++
			} else if t.Type == lexer.TokenRParen {
				depth--
			}
		}
		decl.InitText = name + p.textBetween(openTok, p.previous())
	}

	return decl
}

func (p *Parser) compoundStmt() *CompoundStmt {
	start := p.consume(lexer.TokenLBrace, "expect '{'")
	var stmts []Node
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.statement())
	}
	end := p.consume(lexer.TokenRBrace, "expect '}'")
	return &CompoundStmt{Rng: p.rangeBetween(start, end), Stmts: stmts}
}

func (p *Parser) statement() Node {
	switch {
	case p.check(lexer.TokenLBrace):
		return p.compoundStmt()
	case p.match(lexer.TokenIf):
		return p.ifStmt()
	case p.match(lexer.TokenWhile):
		return p.whileStmt()
	case p.match(lexer.TokenDo):
		return p.doStmt()
	case p.match(lexer.TokenFor):
		return p.forStmt()
	case p.match(lexer.TokenReturn):
		return p.returnStmt()
	case p.match(lexer.TokenBreak):
		tok := p.previous()
		p.consume(lexer.TokenSemicolon, "expect ';' after break")
		return &BreakStmt{Rng: p.rangeFrom(tok)}
	case p.match(lexer.TokenContinue):
		tok := p.previous()
		p.consume(lexer.TokenSemicolon, "expect ';' after continue")
		return &ContinueStmt{Rng: p.rangeFrom(tok)}
	case p.looksLikeDecl():
		return p.declStmt()
	default:
		start := p.peek()
		expr := p.expression()
		p.consume(lexer.TokenSemicolon, "expect ';' after expression")
		return &ExprStmt{Rng: p.rangeFrom(start), Expr: expr}
	}
}

// looksLikeDecl distinguishes "int x = 1;" from "x = 1;" by checking
// whether the current identifier is a known type keyword or is
// followed directly by another identifier (declarator name).
func (p *Parser) looksLikeDecl() bool {
	if typeKeywords[p.peek().Type] {
		return true
	}
	if !p.check(lexer.TokenIdent) {
		return false
	}
	if isBuiltinType(p.peek().Lexeme) {
		return true
	}
	return p.checkNext(lexer.TokenIdent)
}

var builtinTypes = map[string]bool{
	"int": true, "long": true, "short": true, "float": true, "double": true,
	"bool": true, "char": true, "void": true, "auto": true,
}

func isBuiltinType(name string) bool {
	return builtinTypes[name]
}

func (p *Parser) declStmt() Node {
	start := p.peek()
	typ := p.parseType()
	var decls []*VarDecl
	for {
		name := p.consume(lexer.TokenIdent, "expect declarator name").Lexeme
		decls = append(decls, p.varDeclRest(start, typ, name, false))
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	end := p.consume(lexer.TokenSemicolon, "expect ';' after declaration")
	return &DeclStmt{Rng: p.rangeBetween(start, end), Decls: decls}
}

func (p *Parser) ifStmt() Node {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after if")
	cond := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after condition")
	then := p.bodyAsCompound()
	var elseBlk *CompoundStmt
	if p.match(lexer.TokenElse) {
		if p.check(lexer.TokenIf) {
			p.advance()
			nested := p.ifStmt()
			elseBlk = &CompoundStmt{Rng: nested.Range(), Stmts: []Node{nested}}
		} else {
			elseBlk = p.bodyAsCompound()
		}
	}
	return &IfStmt{Rng: p.rangeFrom(start), Cond: cond, Then: then, Else: elseBlk}
}

func (p *Parser) whileStmt() Node {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after while")
	cond := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after condition")
	body := p.bodyAsCompound()
	return &WhileStmt{
		Rng:        p.rangeFrom(start),
		Cond:       cond,
		Body:       body,
		SourceText: p.textBetween(start, p.previous()),
	}
}

func (p *Parser) doStmt() Node {
	start := p.previous()
	body := p.bodyAsCompound()
	p.consume(lexer.TokenWhile, "expect 'while' after do body")
	p.consume(lexer.TokenLParen, "expect '(' after while")
	cond := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after condition")
	p.consume(lexer.TokenSemicolon, "expect ';' after do-while")
	return &DoStmt{Rng: p.rangeFrom(start), Cond: cond, Body: body, SourceText: p.textBetween(start, p.previous())}
}

func (p *Parser) forStmt() Node {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after for")

	var init Node
	if !p.check(lexer.TokenSemicolon) {
		if p.looksLikeDecl() {
			init = p.declStmtNoSemi()
		} else {
			es := p.peek()
			e := p.expression()
			init = &ExprStmt{Rng: p.rangeFrom(es), Expr: e}
		}
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after for-init")

	var cond Node
	condStart := p.peek()
	if !p.check(lexer.TokenSemicolon) {
		cond = p.expression()
	}
	condText := p.textBetween(condStart, p.previous())
	p.consume(lexer.TokenSemicolon, "expect ';' after for-condition")

	var update Node
	if !p.check(lexer.TokenRParen) {
		us := p.peek()
		update = &ExprStmt{Rng: p.rangeFrom(us), Expr: p.expression()}
	}
	p.consume(lexer.TokenRParen, "expect ')' after for-clauses")

	body := p.bodyAsCompound()
	return &ForStmt{
		Rng:        p.rangeFrom(start),
		Init:       init,
		Cond:       cond,
		Update:     update,
		Body:       body,
		SourceText: p.textBetween(start, p.previous()),
		CondText:   condText,
	}
}

func (p *Parser) declStmtNoSemi() Node {
	start := p.peek()
	typ := p.parseType()
	var decls []*VarDecl
	for {
		name := p.consume(lexer.TokenIdent, "expect declarator name").Lexeme
		decls = append(decls, p.varDeclRest(start, typ, name, false))
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	return &DeclStmt{Rng: p.rangeFrom(start), Decls: decls}
}

// bodyAsCompound accepts either a brace-delimited block or a single
// unbraced statement, wrapping the latter in a synthetic CompoundStmt.
func (p *Parser) bodyAsCompound() *CompoundStmt {
	if p.check(lexer.TokenLBrace) {
		return p.compoundStmt()
	}
	start := p.peek()
	stmt := p.statement()
	return &CompoundStmt{Rng: p.rangeFrom(start), Stmts: []Node{stmt}}
}

func (p *Parser) returnStmt() Node {
	start := p.previous()
	var val Node
	if !p.check(lexer.TokenSemicolon) {
		val = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after return")
	return &ReturnStmt{Rng: p.rangeFrom(start), Value: val}
}

// --- Expressions ---

func (p *Parser) expression() Node {
	return p.assignment()
}

func (p *Parser) assignment() Node {
	left := p.binary(0)

	if op, ok := compoundAssignOps[p.peek().Type]; ok {
		p.advance()
		right := p.assignment()
		return &CompoundAssignOperator{Rng: left.Range(), Operator: op, Target: left, Right: right}
	}
	if p.match(lexer.TokenEqual) {
		right := p.assignment()
		return &BinaryOperator{Rng: left.Range(), Operator: "=", Left: left, Right: right}
	}
	return left
}

func (p *Parser) binary(minPrec int) Node {
	left := p.unary()
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		if tok.Type == lexer.TokenLShift || tok.Type == lexer.TokenRShift {
			left = p.streamExpr(left, tok)
			continue
		}
		p.advance()
		right := p.binary(prec + 1)
		left = &BinaryOperator{Rng: left.Range(), Operator: string(tok.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) streamExpr(object Node, opTok lexer.Token) Node {
	op := string(opTok.Type)
	p.advance()
	var operands []Node
	operands = append(operands, p.unary())
	for p.peek().Type == opTok.Type {
		p.advance()
		operands = append(operands, p.unary())
	}
	return &StreamExpr{Rng: object.Range(), Object: object, Operator: op, Operands: operands}
}

func (p *Parser) unary() Node {
	if p.match(lexer.TokenNot) || p.match(lexer.TokenMinus) || p.match(lexer.TokenAmp) || p.match(lexer.TokenStar) {
		op := p.previous()
		operand := p.unary()
		return &UnaryOperator{Rng: p.rangeFrom(op), Operator: op.Lexeme, Operand: operand}
	}
	if p.match(lexer.TokenPlusPlus) || p.match(lexer.TokenMinusMinus) {
		op := p.previous()
		operand := p.unary()
		return &CompoundAssignOperator{Rng: p.rangeFrom(op), Operator: string(op.Type), Target: operand}
	}
	return p.postfix()
}

func (p *Parser) postfix() Node {
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.TokenLParen):
			expr = p.finishCall(expr)
		case p.match(lexer.TokenLBracket):
			idx := p.expression()
			p.consume(lexer.TokenRBracket, "expect ']' after index")
			expr = &IndexExpr{Rng: expr.Range(), Object: expr, Index: idx}
		case p.match(lexer.TokenDot):
			name := p.consume(lexer.TokenIdent, "expect member name").Lexeme
			if p.check(lexer.TokenLParen) {
				p.advance()
				ref, ok := expr.(*DeclRefExpr)
				callee := name
				if ok {
					callee = ref.Name + "." + name
				}
				call := p.finishCall(&DeclRefExpr{Rng: expr.Range(), Name: callee})
				call.(*CallExpr).IsMethod = true
				expr = call
			} else {
				expr = &DeclRefExpr{Rng: expr.Range(), Name: name}
			}
		case p.match(lexer.TokenPlusPlus):
			expr = &CompoundAssignOperator{Rng: expr.Range(), Operator: "++", Target: expr}
		case p.match(lexer.TokenMinusMinus):
			expr = &CompoundAssignOperator{Rng: expr.Range(), Operator: "--", Target: expr}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee Node) Node {
	start := callee.Range()
	var args []Node
	if !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		for p.match(lexer.TokenComma) {
			args = append(args, p.expression())
		}
	}
	end := p.consume(lexer.TokenRParen, "expect ')' after arguments")
	name := ""
	if ref, ok := callee.(*DeclRefExpr); ok {
		name = ref.Name
	}
	return &CallExpr{Rng: p.rangeBetween(tokenAt(start), end), Callee: name, Args: args, RawText: p.textBetween(tokenAt(start), end)}
}

func (p *Parser) primary() Node {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenNumber:
		if strings.ContainsAny(tok.Lexeme, ".") {
			v, _ := strconv.ParseFloat(strings.TrimRight(tok.Lexeme, "fFlLuU"), 64)
			return &Literal{Rng: p.rangeFrom(tok), Value: v}
		}
		v, _ := strconv.ParseInt(strings.TrimRight(tok.Lexeme, "lLuU"), 10, 64)
		return &Literal{Rng: p.rangeFrom(tok), Value: v}
	case lexer.TokenString:
		return &Literal{Rng: p.rangeFrom(tok), Value: tok.Lexeme}
	case lexer.TokenChar:
		return &Literal{Rng: p.rangeFrom(tok), Value: tok.Lexeme}
	case lexer.TokenTrue:
		return &Literal{Rng: p.rangeFrom(tok), Value: true}
	case lexer.TokenFalse:
		return &Literal{Rng: p.rangeFrom(tok), Value: false}
	case lexer.TokenIdent:
		name := tok.Lexeme
		for p.match(lexer.TokenDoubleColon) {
			name += "::" + p.consume(lexer.TokenIdent, "expect name after '::'").Lexeme
		}
		return &DeclRefExpr{Rng: p.rangeFrom(tok), Name: name}
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after expression")
		return expr
	default:
		p.fail(tok, fmt.Sprintf("unexpected token in expression: %q", tok.Lexeme))
		return nil
	}
}

// --- Utility methods (teacher idiom: match/check/consume/advance/peek) ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return lexer.Token{}
}

func (p *Parser) fail(tok lexer.Token, msg string) {
	err := errors.NewSyntaxError(fmt.Sprintf("%s (got %q)", msg, tok.Lexeme), tok.File, tok.Line, tok.Column)
	if p.sourceLines != nil && tok.Line > 0 && tok.Line <= len(p.sourceLines) {
		err = err.WithSource(p.sourceLines[tok.Line-1])
	}
	panic(err)
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

func (p *Parser) rangeFrom(start lexer.Token) SourceRange {
	end := p.previous()
	return p.rangeBetween(start, end)
}

func (p *Parser) rangeBetween(start, end lexer.Token) SourceRange {
	return SourceRange{File: start.File, StartLine: start.Line, StartColumn: start.Column, EndLine: end.Line, EndColumn: end.Column}
}

// textBetween recovers verbatim source text by joining the matched
// tokens' lexemes; it approximates true byte-range slicing when only
// a token list (not the original buffer) is at hand, which keeps the
// parser decoupled from the scanner's internal offsets.
func (p *Parser) textBetween(start, end lexer.Token) string {
	if p.source == "" {
		var b strings.Builder
		for i := p.indexOf(start); i <= p.indexOf(end) && i >= 0 && i < len(p.tokens); i++ {
			if i > p.indexOf(start) {
				b.WriteByte(' ')
			}
			b.WriteString(p.tokens[i].Lexeme)
		}
		return b.String()
	}
	lines := p.sourceLines
	if start.Line == end.Line && start.Line-1 < len(lines) {
		line := lines[start.Line-1]
		from := start.Column - 1
		to := end.Column - 1 + len(end.Lexeme)
		if from >= 0 && to <= len(line) && from <= to {
			return line[from:to]
		}
	}
	var b strings.Builder
	for l := start.Line; l <= end.Line && l-1 < len(lines); l++ {
		line := lines[l-1]
		if to := end.Column - 1 + len(end.Lexeme); l == end.Line && to >= 0 && to <= len(line) {
			line = line[:to]
		}
		if from := start.Column - 1; l == start.Line && from >= 0 && from <= len(line) {
			line = line[from:]
		}
		b.WriteString(line)
		if l != end.Line {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (p *Parser) indexOf(tok lexer.Token) int {
	for i, t := range p.tokens {
		if t.Line == tok.Line && t.Column == tok.Column && t.Lexeme == tok.Lexeme {
			return i
		}
	}
	return -1
}

// tokenAt reconstructs a minimal lexer.Token from a SourceRange's start,
// used where only a Node's Range() is available but a Token is needed
// to call textBetween/rangeBetween.
func tokenAt(r SourceRange) lexer.Token {
	return lexer.Token{File: r.File, Line: r.StartLine, Column: r.StartColumn}
}
