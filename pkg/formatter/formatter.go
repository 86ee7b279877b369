// Package formatter implements the jsfn source code formatter.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/ast"
)

const indent = "  "

// maxInline is the widest array or object literal kept on one line.
const maxInline = 72

// Binding strength of each expression form (higher = tighter binding).
const (
	precAssign = iota + 1
	precCond
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[ast.BinaryOp]int{
	ast.OpEq: precEquality, ast.OpNeq: precEquality, ast.OpStrictEq: precEquality, ast.OpStrictNeq: precEquality,
	ast.OpGt: precRelational, ast.OpLt: precRelational, ast.OpGtEq: precRelational, ast.OpLtEq: precRelational,
	ast.OpAdd: precAdditive, ast.OpSub: precAdditive,
	ast.OpMul: precMultiplicative, ast.OpDiv: precMultiplicative, ast.OpMod: precMultiplicative,
}

func exprPrec(e ast.Expr) int {
	switch expr := e.(type) {
	case *ast.AssignExpr:
		return precAssign
	case *ast.CondExpr:
		return precCond
	case *ast.LogicalExpr:
		if expr.Op == ast.OpOr {
			return precOr
		}
		return precAnd
	case *ast.BinaryExpr:
		return binaryPrec[expr.Op]
	case *ast.UnaryExpr:
		return precUnary
	case *ast.CallExpr, *ast.MemberExpr, *ast.IndexExpr:
		return precPostfix
	}
	return precPrimary
}

// Format pretty-prints a program back to source code. Comments are not
// preserved; a blank line between statements is.
func Format(program *ast.Program) string {
	return formatStmts(program.Statements, 0) + "\n"
}

// HasComments reports whether source contains // or /* */ comments, which
// Format would drop.
func HasComments(source string) bool {
	var quote byte
	for i := 0; i < len(source); i++ {
		ch := source[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote, '\n':
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '/':
			if i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*') {
				return true
			}
		}
	}
	return false
}

func formatStmts(stmts []ast.Stmt, depth int) string {
	var lines []string
	var prev ast.Stmt
	for _, s := range stmts {
		if _, ok := s.(*ast.EmptyStmt); ok {
			continue
		}
		if prev != nil && s.NodeSpan().StartLine > prev.NodeSpan().EndLine+1 {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, depth))
		prev = s
	}
	return strings.Join(lines, "\n")
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.VarDecl:
		parts := make([]string, len(stmt.Declarations))
		for i, d := range stmt.Declarations {
			parts[i] = d.Name
			if d.Init != nil {
				parts[i] += " = " + formatExpr(d.Init, depth)
			}
		}
		return prefix + "var " + strings.Join(parts, ", ") + ";"
	case *ast.FunctionDecl:
		return prefix + formatFunction(stmt.Func, depth)
	case *ast.ExprStmt:
		out := formatExpr(stmt.Expr, depth)
		// A statement may not start with { or function.
		if strings.HasPrefix(out, "{") || strings.HasPrefix(out, "function ") || strings.HasPrefix(out, "function(") {
			out = "(" + out + ")"
		}
		return prefix + out + ";"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return;"
		}
		return prefix + "return " + formatExpr(stmt.Value, depth) + ";"
	case *ast.ThrowStmt:
		return prefix + "throw " + formatExpr(stmt.Value, depth) + ";"
	case *ast.BlockStmt:
		return prefix + formatBlock(stmt.Body, depth)
	case *ast.IfStmt:
		return prefix + formatIf(stmt, depth)
	case *ast.TryStmt:
		out := prefix + "try " + formatBlock(stmt.Block.Body, depth) + " catch "
		if stmt.CatchBinding != "" {
			out += "(" + stmt.CatchBinding + ") "
		}
		return out + formatBlock(stmt.Handler.Body, depth)
	case *ast.EmptyStmt:
		return prefix + ";"
	}
	return ""
}

// formatIf prints an if statement without its leading indent. Branches are
// always printed as blocks; else-if chains stay flat.
func formatIf(stmt *ast.IfStmt, depth int) string {
	out := "if (" + formatExpr(stmt.Cond, depth) + ") " + formatBranch(stmt.Then, depth)
	switch els := stmt.Else.(type) {
	case nil:
	case *ast.IfStmt:
		out += " else " + formatIf(els, depth)
	default:
		out += " else " + formatBranch(els, depth)
	}
	return out
}

func formatBranch(s ast.Stmt, depth int) string {
	switch stmt := s.(type) {
	case *ast.BlockStmt:
		return formatBlock(stmt.Body, depth)
	case *ast.EmptyStmt:
		return "{}"
	}
	return formatBlock([]ast.Stmt{s}, depth)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	body := formatStmts(stmts, depth+1)
	if body == "" {
		return "{}"
	}
	return "{\n" + body + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatFunction(fn *ast.FunctionLit, depth int) string {
	head := "function "
	if fn.Name != "" {
		head += fn.Name
	}
	return head + "(" + strings.Join(fn.Params, ", ") + ") " + formatBlock(fn.Body, depth)
}

// wrap formats e, adding parentheses when it binds looser than minPrec.
func wrap(e ast.Expr, minPrec, depth int) string {
	out := formatExpr(e, depth)
	if exprPrec(e) < minPrec {
		return "(" + out + ")"
	}
	return out
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		if expr.Raw != "" {
			return expr.Raw
		}
		return strconv.FormatFloat(expr.Value, 'g', -1, 64)
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.StrLiteral:
		return quote(expr.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.Ident:
		return expr.Name
	case *ast.ArrayLit:
		return formatArray(expr, depth)
	case *ast.ObjectLit:
		return formatObject(expr, depth)
	case *ast.FunctionLit:
		return formatFunction(expr, depth)
	case *ast.UnaryExpr:
		operand := wrap(expr.Operand, precUnary, depth)
		if expr.Op == ast.OpTypeof {
			return "typeof " + operand
		}
		// Keep "- -x" from lexing as a single token.
		if strings.HasPrefix(operand, string(expr.Op)) && expr.Op != ast.OpNot {
			return string(expr.Op) + " " + operand
		}
		return string(expr.Op) + operand
	case *ast.BinaryExpr:
		prec := binaryPrec[expr.Op]
		return wrap(expr.Left, prec, depth) + " " + string(expr.Op) + " " + wrap(expr.Right, prec+1, depth)
	case *ast.LogicalExpr:
		prec := exprPrec(expr)
		return wrap(expr.Left, prec, depth) + " " + string(expr.Op) + " " + wrap(expr.Right, prec+1, depth)
	case *ast.CondExpr:
		return fmt.Sprintf("%s ? %s : %s",
			wrap(expr.Cond, precOr, depth),
			wrap(expr.Then, precAssign, depth),
			wrap(expr.Else, precAssign, depth))
	case *ast.AssignExpr:
		return wrap(expr.Target, precPostfix, depth) + " = " + wrap(expr.Value, precAssign, depth)
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, arg := range expr.Args {
			args[i] = wrap(arg, precAssign, depth)
		}
		return formatCallee(expr.Callee, depth) + "(" + strings.Join(args, ", ") + ")"
	case *ast.MemberExpr:
		return formatCallee(expr.Object, depth) + "." + expr.Property
	case *ast.IndexExpr:
		return formatCallee(expr.Object, depth) + "[" + formatExpr(expr.Index, depth) + "]"
	}
	return ""
}

// formatCallee formats the object of a call, member or index expression.
// Function literals are parenthesized so an immediately invoked expression
// keeps its shape; number literals so the dot is not read as a decimal point.
func formatCallee(e ast.Expr, depth int) string {
	switch e.(type) {
	case *ast.FunctionLit, *ast.NumberLiteral:
		return "(" + formatExpr(e, depth) + ")"
	}
	return wrap(e, precPostfix, depth)
}

func formatArray(arr *ast.ArrayLit, depth int) string {
	if len(arr.Elements) == 0 {
		return "[]"
	}
	parts := make([]string, len(arr.Elements))
	for i, e := range arr.Elements {
		parts[i] = wrap(e, precAssign, depth+1)
	}
	return layout("[", "]", parts, depth)
}

func formatObject(obj *ast.ObjectLit, depth int) string {
	if len(obj.Props) == 0 {
		return "{}"
	}
	parts := make([]string, len(obj.Props))
	for i, p := range obj.Props {
		parts[i] = formatKey(p.Key) + ": " + wrap(p.Value, precAssign, depth+1)
	}
	return layout("{ ", " }", parts, depth)
}

// layout joins parts inline when they fit and nothing is multi-line,
// otherwise one part per line.
func layout(open, close string, parts []string, depth int) string {
	inline := open + strings.Join(parts, ", ") + close
	if len(inline) <= maxInline && !strings.Contains(inline, "\n") {
		return inline
	}
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	return strings.TrimSpace(open) + "\n" + inner + strings.Join(parts, ",\n"+inner) + "\n" + outer + strings.TrimSpace(close)
}

func formatKey(key string) string {
	if isIdentifier(key) {
		return key
	}
	return quote(key)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// quote renders s as a double-quoted string literal.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
