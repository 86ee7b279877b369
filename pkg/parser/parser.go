// Package parser implements the jsfn parser.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/lexer"
)

const unexpectedEOF = "unexpected end of file"

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// IsIncomplete reports whether parsing failed only because the input ended
// early, as for an unfinished function body typed into the REPL.
func IsIncomplete(diags []diagnostics.Diagnostic) bool {
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		if !strings.Contains(d.Message, unexpectedEOF) && !strings.Contains(d.Message, "unterminated block comment") {
			return false
		}
	}
	return true
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		if tok.Type == lexer.TokEOF {
			p.addError(fmt.Sprintf("expected %s, %s", tokenName(typ), unexpectedEOF), &tok.Span)
		} else {
			p.addError(fmt.Sprintf("expected %s, got '%s'", tokenName(typ), tok.Value), &tok.Span)
		}
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) unexpected(tok lexer.Token) {
	if tok.Type == lexer.TokEOF {
		p.addError(unexpectedEOF, &tok.Span)
		return
	}
	p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// prevSpan is the span of the most recently consumed token.
func (p *parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokColon:
		return "':'"
	case lexer.TokSemicolon:
		return "';'"
	case lexer.TokComma:
		return "','"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokCatch:
		return "'catch'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokNumberLit:
		return "number"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

// isKeyword returns true if the token type is a keyword.
func isKeyword(t lexer.TokenType) bool {
	return t >= lexer.TokVar && t <= lexer.TokCatch
}

// isPropertyName returns true if the token can name a property after '.' or as an object key.
func isPropertyName(t lexer.TokenType) bool {
	return t == lexer.TokIdent || isKeyword(t)
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span:       p.spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokVar:
		if s := p.parseVarDecl(); s != nil {
			return s
		}
	case lexer.TokFunction:
		if s := p.parseFunctionDecl(); s != nil {
			return s
		}
	case lexer.TokReturn:
		if s := p.parseReturnStmt(); s != nil {
			return s
		}
	case lexer.TokIf:
		if s := p.parseIfStmt(); s != nil {
			return s
		}
	case lexer.TokLBrace:
		if s := p.parseBlock(); s != nil {
			return s
		}
	case lexer.TokThrow:
		if s := p.parseThrowStmt(); s != nil {
			return s
		}
	case lexer.TokTry:
		if s := p.parseTryStmt(); s != nil {
			return s
		}
	case lexer.TokSemicolon:
		tok := p.advance()
		return &ast.EmptyStmt{Span: tok.Span}
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

// endStatement consumes an optional ';'. Without one, the statement must be
// followed by '}', end of file, or a line break.
func (p *parser) endStatement() bool {
	tok := p.current()
	switch {
	case tok.Type == lexer.TokSemicolon:
		p.advance()
		return true
	case tok.Type == lexer.TokRBrace, tok.Type == lexer.TokEOF, tok.NewlineBefore:
		return true
	}
	p.addError(fmt.Sprintf("expected ';', got '%s'", tok.Value), &tok.Span)
	return false
}

func (p *parser) parseVarDecl() *ast.VarDecl {
	start := p.advance() // consume 'var'
	var decls []*ast.VarDeclarator
	for {
		nameTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		d := &ast.VarDeclarator{Span: nameTok.Span, Name: nameTok.Value}
		if p.peek() == lexer.TokAssign {
			p.advance()
			init := p.parseExpr()
			if init == nil {
				return nil
			}
			d.Init = init
			d.Span = p.spanFromTo(nameTok.Span, init.NodeSpan())
		}
		decls = append(decls, d)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	span := p.spanFromTo(start.Span, p.prevSpan())
	if !p.endStatement() {
		return nil
	}
	return &ast.VarDecl{Span: span, Declarations: decls}
}

func (p *parser) parseFunctionDecl() *ast.FunctionDecl {
	if p.peekAt(1) != lexer.TokIdent {
		tok := p.current()
		p.addError("function statements require a function name", &tok.Span)
		return nil
	}
	fn := p.parseFunctionLit()
	if fn == nil {
		return nil
	}
	return &ast.FunctionDecl{Span: fn.Span, Func: fn}
}

// parseFunctionLit parses `function [name] (params) { body }`.
func (p *parser) parseFunctionLit() *ast.FunctionLit {
	start := p.advance() // consume 'function'

	name := ""
	if p.peek() == lexer.TokIdent {
		name = p.advance().Value
	}

	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []string
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		paramTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, paramTok.Value)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}

	return &ast.FunctionLit{
		Span:   p.spanFromTo(start.Span, body.Span),
		Name:   name,
		Params: params,
		Body:   body.Body,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	next := p.current()
	if next.Type == lexer.TokSemicolon || next.Type == lexer.TokRBrace || next.Type == lexer.TokEOF || next.NewlineBefore {
		p.endStatement()
		return &ast.ReturnStmt{Span: start.Span}
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	span := p.spanFromTo(start.Span, value.NodeSpan())
	if !p.endStatement() {
		return nil
	}
	return &ast.ReturnStmt{Span: span, Value: value}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	then := p.parseStmt()
	if then == nil {
		return nil
	}
	endSpan := then.NodeSpan()

	var elseStmt ast.Stmt
	if p.peek() == lexer.TokElse {
		p.advance() // consume 'else'
		elseStmt = p.parseStmt()
		if elseStmt == nil {
			return nil
		}
		endSpan = elseStmt.NodeSpan()
	}

	return &ast.IfStmt{
		Span: p.spanFromTo(start.Span, endSpan),
		Cond: cond,
		Then: then,
		Else: elseStmt,
	}
}

func (p *parser) parseThrowStmt() *ast.ThrowStmt {
	start := p.advance() // consume 'throw'
	if p.current().NewlineBefore {
		tok := p.current()
		p.addError("illegal newline after throw", &tok.Span)
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	span := p.spanFromTo(start.Span, value.NodeSpan())
	if !p.endStatement() {
		return nil
	}
	return &ast.ThrowStmt{Span: span, Value: value}
}

func (p *parser) parseTryStmt() *ast.TryStmt {
	start := p.advance() // consume 'try'
	block := p.parseBlock()
	if block == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokCatch); !ok {
		return nil
	}
	binding := ""
	if p.peek() == lexer.TokLParen {
		p.advance()
		tok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		binding = tok.Value
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
	}
	handler := p.parseBlock()
	if handler == nil {
		return nil
	}
	return &ast.TryStmt{
		Span:         p.spanFromTo(start.Span, handler.Span),
		Block:        block,
		CatchBinding: binding,
		Handler:      handler,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if !p.endStatement() {
		return nil
	}
	return &ast.ExprStmt{
		Span: expr.NodeSpan(),
		Expr: expr,
	}
}

// --- Block ---

func (p *parser) parseBlock() *ast.BlockStmt {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	stmts := []ast.Stmt{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.BlockStmt{Span: p.spanFromTo(start.Span, end.Span), Body: stmts}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() ast.Expr {
	left := p.parseConditional()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokAssign {
		return left
	}
	switch left.(type) {
	case *ast.Ident, *ast.MemberExpr, *ast.IndexExpr:
	default:
		span := left.NodeSpan()
		p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EInvalidAssignTgt, "invalid assignment target", &span, ""))
		return nil
	}
	p.advance() // consume '='
	value := p.parseAssignment()
	if value == nil {
		return nil
	}
	return &ast.AssignExpr{
		Span:   p.spanFromTo(left.NodeSpan(), value.NodeSpan()),
		Target: left,
		Value:  value,
	}
}

func (p *parser) parseConditional() ast.Expr {
	cond := p.parseLogical(lexer.TokPipePipe)
	if cond == nil {
		return nil
	}
	if p.peek() != lexer.TokQuestion {
		return cond
	}
	p.advance()
	then := p.parseAssignment()
	if then == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokColon); !ok {
		return nil
	}
	elseExpr := p.parseAssignment()
	if elseExpr == nil {
		return nil
	}
	return &ast.CondExpr{
		Span: p.spanFromTo(cond.NodeSpan(), elseExpr.NodeSpan()),
		Cond: cond,
		Then: then,
		Else: elseExpr,
	}
}

// --- Precedence climbing ---

// parseLogical handles || (which binds looser) and && in one routine.
func (p *parser) parseLogical(op lexer.TokenType) ast.Expr {
	next := func() ast.Expr {
		if op == lexer.TokPipePipe {
			return p.parseLogical(lexer.TokAmpAmp)
		}
		return p.parseEquality()
	}

	left := next()
	if left == nil {
		return nil
	}
	for p.peek() == op {
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		logical := ast.OpAnd
		if op == lexer.TokPipePipe {
			logical = ast.OpOr
		}
		left = &ast.LogicalExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    logical,
			Left:  left,
			Right: right,
		}
	}
	return left
}

func (p *parser) parseBinaryLevel(next func() ast.Expr, ops map[lexer.TokenType]ast.BinaryOp) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

var (
	equalityOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokEqEq:     ast.OpEq,
		lexer.TokBangEq:   ast.OpNeq,
		lexer.TokEqEqEq:   ast.OpStrictEq,
		lexer.TokBangEqEq: ast.OpStrictNeq,
	}
	relationalOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokGt:   ast.OpGt,
		lexer.TokLt:   ast.OpLt,
		lexer.TokGtEq: ast.OpGtEq,
		lexer.TokLtEq: ast.OpLtEq,
	}
	additiveOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokPlus:  ast.OpAdd,
		lexer.TokMinus: ast.OpSub,
	}
	multiplicativeOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokStar:    ast.OpMul,
		lexer.TokSlash:   ast.OpDiv,
		lexer.TokPercent: ast.OpMod,
	}
)

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinaryLevel(p.parseRelational, equalityOps)
}

func (p *parser) parseRelational() ast.Expr {
	return p.parseBinaryLevel(p.parseAdditive, relationalOps)
}

func (p *parser) parseAdditive() ast.Expr {
	return p.parseBinaryLevel(p.parseMultiplicative, additiveOps)
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.parseBinaryLevel(p.parseUnary, multiplicativeOps)
}

func (p *parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokPlus:
		op = ast.OpPlus
	case lexer.TokBang:
		op = ast.OpNot
	case lexer.TokTypeof:
		op = ast.OpTypeof
	default:
		return p.parsePostfix()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}
}

// parsePostfix parses calls, member access and index access chained onto a primary.
func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch p.peek() {
		case lexer.TokLParen:
			p.advance()
			var args []ast.Expr
			for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
				arg := p.parseExpr()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if p.peek() != lexer.TokComma {
					break
				}
				p.advance()
			}
			end, ok := p.expect(lexer.TokRParen)
			if !ok {
				return nil
			}
			expr = &ast.CallExpr{
				Span:   p.spanFromTo(expr.NodeSpan(), end.Span),
				Callee: expr,
				Args:   args,
			}
		case lexer.TokDot:
			p.advance()
			name := p.current()
			if !isPropertyName(name.Type) {
				if name.Type == lexer.TokEOF {
					p.addError(unexpectedEOF, &name.Span)
				} else {
					p.addError(fmt.Sprintf("expected property name after '.', got '%s'", name.Value), &name.Span)
				}
				return nil
			}
			p.advance()
			expr = &ast.MemberExpr{
				Span:     p.spanFromTo(expr.NodeSpan(), name.Span),
				Object:   expr,
				Property: name.Value,
			}
		case lexer.TokLBracket:
			p.advance()
			index := p.parseExpr()
			if index == nil {
				return nil
			}
			end, ok := p.expect(lexer.TokRBracket)
			if !ok {
				return nil
			}
			expr = &ast.IndexExpr{
				Span:   p.spanFromTo(expr.NodeSpan(), end.Span),
				Object: expr,
				Index:  index,
			}
		default:
			return expr
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouping only; the enclosed expression carries no extra meaning.
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokFunction:
		fn := p.parseFunctionLit()
		if fn == nil {
			return nil
		}
		return fn

	case lexer.TokLBrace:
		if obj := p.parseObjectLit(); obj != nil {
			return obj
		}
		return nil

	case lexer.TokLBracket:
		if arr := p.parseArrayLit(); arr != nil {
			return arr
		}
		return nil

	case lexer.TokNumberLit:
		tok := p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Value: parseNumber(tok.Value), Raw: tok.Value}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokNull:
		tok := p.advance()
		return &ast.NullLiteral{Span: tok.Span}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}

	default:
		p.unexpected(p.current())
		return nil
	}
}

func parseNumber(raw string) float64 {
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		val, _ := strconv.ParseUint(raw[2:], 16, 64)
		return float64(val)
	}
	val, _ := strconv.ParseFloat(raw, 64)
	return val
}

func (p *parser) parseObjectLit() *ast.ObjectLit {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}

	var props []*ast.Property
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		keyTok := p.current()
		var key string
		switch {
		case isPropertyName(keyTok.Type), keyTok.Type == lexer.TokStringLit:
			key = keyTok.Value
		case keyTok.Type == lexer.TokNumberLit:
			key = formatKey(parseNumber(keyTok.Value))
		default:
			p.unexpected(keyTok)
			return nil
		}
		p.advance()

		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		props = append(props, &ast.Property{
			Span:  p.spanFromTo(keyTok.Span, value.NodeSpan()),
			Key:   key,
			Value: value,
		})

		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}

	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.ObjectLit{
		Span:  p.spanFromTo(start.Span, end.Span),
		Props: props,
	}
}

func formatKey(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (p *parser) parseArrayLit() *ast.ArrayLit {
	start, ok := p.expect(lexer.TokLBracket)
	if !ok {
		return nil
	}

	var elements []ast.Expr
	for p.peek() != lexer.TokRBracket && p.peek() != lexer.TokEOF {
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}

	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.ArrayLit{
		Span:     p.spanFromTo(start.Span, end.Span),
		Elements: elements,
	}
}
