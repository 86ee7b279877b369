// Package lexer implements the jsfn tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokVar TokenType = iota
	TokFunction
	TokReturn
	TokIf
	TokElse
	TokTrue
	TokFalse
	TokNull
	TokTypeof
	TokThrow
	TokTry
	TokCatch

	// Literals
	TokNumberLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokLParen    // (
	TokRParen    // )
	TokColon     // :
	TokSemicolon // ;
	TokComma     // ,
	TokDot       // .
	TokQuestion  // ?
	TokAssign    // =

	// Comparison operators
	TokGtEq     // >=
	TokLtEq     // <=
	TokEqEq     // ==
	TokEqEqEq   // ===
	TokBangEq   // !=
	TokBangEqEq // !==
	TokGt       // >
	TokLt       // <
	TokAmpAmp   // &&
	TokPipePipe // ||
	TokBang     // !

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Special
	TokEOF
)

// Token represents a single lexer token.
// NewlineBefore is set when a line break separates the token from the previous one.
type Token struct {
	Type          TokenType
	Value         string
	Span          ast.Span
	NewlineBefore bool
}

var keywords = map[string]TokenType{
	"var":      TokVar,
	"function": TokFunction,
	"return":   TokReturn,
	"if":       TokIf,
	"else":     TokElse,
	"true":     TokTrue,
	"false":    TokFalse,
	"null":     TokNull,
	"typeof":   TokTypeof,
	"throw":    TokThrow,
	"try":      TokTry,
	"catch":    TokCatch,
}

// IsKeyword reports whether name is reserved and cannot be used as a binding.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	sawLine  bool
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
		s.sawLine = true
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			startLine, startCol := s.line, s.col
			s.advance()
			s.advance()
			for {
				if s.atEnd() {
					return s.lexError(startLine, startCol, "unterminated block comment")
				}
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	quote := s.advance() // consume opening quote

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == quote {
			s.advance() // consume closing quote
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(startLine, startCol, "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case '"', '\'', '\\', '/':
				buf.WriteByte(esc)
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case 'v':
				buf.WriteByte('\v')
			case '0':
				buf.WriteByte(0)
			case 'u':
				// \uXXXX
				if s.pos+4 > len(s.source) {
					return Token{}, s.lexError(startLine, startCol, "incomplete unicode escape")
				}
				hexStr := s.source[s.pos : s.pos+4]
				codepoint, err := strconv.ParseUint(hexStr, 16, 32)
				if err != nil {
					return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid unicode escape: \\u%s", hexStr))
				}
				buf.WriteRune(rune(codepoint))
				for i := 0; i < 4; i++ {
					s.advance()
				}
			default:
				buf.WriteByte(esc)
			}
		} else if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		} else {
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	if s.peek() == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X') {
		s.advance()
		s.advance()
		if !isHexDigit(s.peek()) {
			return Token{}, s.lexError(startLine, startCol, "invalid hexadecimal literal")
		}
		for !s.atEnd() && isHexDigit(s.peek()) {
			s.advance()
		}
		return Token{Type: TokNumberLit, Value: s.source[startPos:s.pos], Span: s.span(startLine, startCol)}, nil
	}

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Optional fractional part, also for a leading '.' as in .5
	if !s.atEnd() && s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Optional exponent
	if !s.atEnd() && (s.peek() == 'e' || s.peek() == 'E') {
		next := s.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(s.peekAt(2))) {
			s.advance() // consume e/E
			if s.peek() == '+' || s.peek() == '-' {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	if !s.atEnd() && isAlpha(s.peek()) {
		return Token{}, s.lexError(startLine, startCol, "identifier starts immediately after numeric literal")
	}

	return Token{
		Type:  TokNumberLit,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}, nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]

	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

type opCand struct {
	text string
	typ  TokenType
}

// op tries to consume one of the candidate operators, longest first.
func (s *scanner) op(startLine, startCol int, candidates ...opCand) (Token, bool) {
	for _, c := range candidates {
		if strings.HasPrefix(s.source[s.pos:], c.text) {
			for range c.text {
				s.advance()
			}
			return Token{Type: c.typ, Value: c.text, Span: s.span(startLine, startCol)}, true
		}
	}
	return Token{}, false
}

func (s *scanner) nextToken() (Token, error) {
	s.sawLine = false
	if err := s.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}
	tok, err := s.scanToken()
	tok.NewlineBefore = s.sawLine
	return tok, err
}

func (s *scanner) scanToken() (Token, error) {
	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	// Single-char tokens
	var single TokenType = -1
	switch ch {
	case '{':
		single = TokLBrace
	case '}':
		single = TokRBrace
	case '[':
		single = TokLBracket
	case ']':
		single = TokRBracket
	case '(':
		single = TokLParen
	case ')':
		single = TokRParen
	case ':':
		single = TokColon
	case ';':
		single = TokSemicolon
	case ',':
		single = TokComma
	case '?':
		single = TokQuestion
	case '+':
		single = TokPlus
	case '-':
		single = TokMinus
	case '*':
		single = TokStar
	case '%':
		single = TokPercent
	case '/':
		single = TokSlash
	}
	if single >= 0 {
		s.advance()
		return Token{Type: single, Value: string(ch), Span: s.span(startLine, startCol)}, nil
	}

	// Multi-char tokens
	switch ch {
	case '.':
		if isDigit(s.peekAt(1)) {
			return s.scanNumber()
		}
		s.advance()
		return Token{Type: TokDot, Value: ".", Span: s.span(startLine, startCol)}, nil
	case '=':
		tok, _ := s.op(startLine, startCol, opCand{"===", TokEqEqEq}, opCand{"==", TokEqEq}, opCand{"=", TokAssign})
		return tok, nil
	case '!':
		tok, _ := s.op(startLine, startCol, opCand{"!==", TokBangEqEq}, opCand{"!=", TokBangEq}, opCand{"!", TokBang})
		return tok, nil
	case '>':
		tok, _ := s.op(startLine, startCol, opCand{">=", TokGtEq}, opCand{">", TokGt})
		return tok, nil
	case '<':
		tok, _ := s.op(startLine, startCol, opCand{"<=", TokLtEq}, opCand{"<", TokLt})
		return tok, nil
	case '&':
		if tok, ok := s.op(startLine, startCol, opCand{"&&", TokAmpAmp}); ok {
			return tok, nil
		}
	case '|':
		if tok, ok := s.op(startLine, startCol, opCand{"||", TokPipePipe}); ok {
			return tok, nil
		}
	}

	// Numbers
	if isDigit(ch) {
		return s.scanNumber()
	}

	// Strings
	if ch == '"' || ch == '\'' {
		return s.scanString()
	}

	// Identifiers and keywords
	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", ch))
}

// Tokenize breaks source code into a slice of tokens.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
