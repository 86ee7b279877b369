// Package validator implements static checks on jsfn programs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

// builtinGlobals are bound in every session regardless of the host registry.
var builtinGlobals = []string{"undefined", "NaN", "Infinity", "require"}

// Options describes the environment a program will run in.
type Options struct {
	// Globals are names bound before the program starts.
	Globals []string
	// Modules are the names require can load. When nil, require calls are
	// not checked.
	Modules []string
}

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

// definesLocally reports whether name is bound below the global scope.
func (s *scope) definesLocally(name string) bool {
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		if cur.bindings[name] {
			return true
		}
	}
	return false
}

type validator struct {
	diags   []diagnostics.Diagnostic
	modules map[string]bool
}

// Validate performs semantic analysis on a program and returns diagnostics.
func Validate(program *ast.Program, opts Options) []diagnostics.Diagnostic {
	v := &validator{}
	if opts.Modules != nil {
		v.modules = make(map[string]bool, len(opts.Modules))
		for _, m := range opts.Modules {
			v.modules[m] = true
		}
	}

	global := newScope(nil)
	for _, name := range builtinGlobals {
		global.add(name)
	}
	for _, name := range opts.Globals {
		global.add(name)
	}
	// Assigning an undeclared name creates a global, wherever it happens.
	for _, name := range implicitGlobals(program.Statements, nil) {
		global.add(name)
	}
	for _, name := range evaluator.VarNames(program.Statements) {
		global.add(name)
	}

	v.validateStatements(program.Statements, global, false)
	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, ""))
}

func (v *validator) validateStatements(stmts []ast.Stmt, sc *scope, inFunction bool) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, sc, inFunction)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt, sc *scope, inFunction bool) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		for _, d := range s.Declarations {
			v.validateExpr(d.Init, sc)
		}

	case *ast.FunctionDecl:
		// Declarations nested in blocks are bound when the block runs, but
		// the name is still hoisted into the enclosing function.
		sc.add(s.Func.Name)
		v.validateFunction(s.Func, sc, true)

	case *ast.ExprStmt:
		v.validateExpr(s.Expr, sc)

	case *ast.ReturnStmt:
		if !inFunction {
			span := s.Span
			v.addDiag(diagnostics.EReturnOutsideFn, "return outside of a function", &span)
		}
		v.validateExpr(s.Value, sc)

	case *ast.IfStmt:
		v.validateExpr(s.Cond, sc)
		v.validateStmt(s.Then, sc, inFunction)
		if s.Else != nil {
			v.validateStmt(s.Else, sc, inFunction)
		}

	case *ast.BlockStmt:
		v.validateStatements(s.Body, sc, inFunction)

	case *ast.ThrowStmt:
		v.validateExpr(s.Value, sc)

	case *ast.TryStmt:
		v.validateStatements(s.Block.Body, sc, inFunction)
		catchScope := newScope(sc)
		if s.CatchBinding != "" {
			catchScope.add(s.CatchBinding)
		}
		v.validateStatements(s.Handler.Body, catchScope, inFunction)
	}
}

// validateFunction checks a function body in a scope holding its
// parameters, arguments, hoisted names and, for named expressions, its own
// name.
func (v *validator) validateFunction(fn *ast.FunctionLit, sc *scope, declared bool) {
	fnScope := newScope(sc)
	if fn.Name != "" && !declared {
		fnScope.add(fn.Name)
	}
	fnScope.add("arguments")
	for _, param := range fn.Params {
		fnScope.add(param)
	}
	for _, name := range evaluator.VarNames(fn.Body) {
		fnScope.add(name)
	}
	v.validateStatements(fn.Body, fnScope, true)
}

func (v *validator) validateExpr(expr ast.Expr, sc *scope) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ast.NumberLiteral, *ast.StrLiteral, *ast.BoolLiteral, *ast.NullLiteral:
		// literals are always valid

	case *ast.Ident:
		if !sc.has(e.Name) {
			span := e.Span
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("unbound variable '%s'", e.Name), &span)
		}

	case *ast.ArrayLit:
		for _, elem := range e.Elements {
			v.validateExpr(elem, sc)
		}

	case *ast.ObjectLit:
		for _, prop := range e.Props {
			v.validateExpr(prop.Value, sc)
		}

	case *ast.FunctionLit:
		v.validateFunction(e, sc, false)

	case *ast.UnaryExpr:
		// typeof on an undeclared name is allowed
		if _, ok := e.Operand.(*ast.Ident); ok && e.Op == ast.OpTypeof {
			return
		}
		v.validateExpr(e.Operand, sc)

	case *ast.BinaryExpr:
		v.validateExpr(e.Left, sc)
		v.validateExpr(e.Right, sc)

	case *ast.LogicalExpr:
		v.validateExpr(e.Left, sc)
		v.validateExpr(e.Right, sc)

	case *ast.CondExpr:
		v.validateExpr(e.Cond, sc)
		v.validateExpr(e.Then, sc)
		v.validateExpr(e.Else, sc)

	case *ast.AssignExpr:
		v.validateExpr(e.Target, sc)
		v.validateExpr(e.Value, sc)

	case *ast.CallExpr:
		v.validateRequire(e, sc)
		v.validateExpr(e.Callee, sc)
		for _, arg := range e.Args {
			v.validateExpr(arg, sc)
		}

	case *ast.MemberExpr:
		v.validateExpr(e.Object, sc)

	case *ast.IndexExpr:
		v.validateExpr(e.Object, sc)
		v.validateExpr(e.Index, sc)
	}
}

// validateRequire flags require("name") calls naming a module the host does
// not provide. Only literal names of the global require are checked.
func (v *validator) validateRequire(call *ast.CallExpr, sc *scope) {
	if v.modules == nil || len(call.Args) == 0 {
		return
	}
	callee, ok := call.Callee.(*ast.Ident)
	if !ok || callee.Name != "require" || sc.definesLocally("require") {
		return
	}
	lit, ok := call.Args[0].(*ast.StrLiteral)
	if !ok || v.modules[lit.Value] {
		return
	}
	span := lit.Span
	v.addDiag(diagnostics.EUnknownModule, fmt.Sprintf("unknown module '%s'", lit.Value), &span)
}

// implicitGlobals collects every identifier assigned to anywhere in stmts,
// including inside nested functions.
func implicitGlobals(stmts []ast.Stmt, names []string) []string {
	for _, stmt := range stmts {
		names = implicitInStmt(stmt, names)
	}
	return names
}

func implicitInStmt(stmt ast.Stmt, names []string) []string {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		for _, d := range s.Declarations {
			names = implicitInExpr(d.Init, names)
		}
	case *ast.FunctionDecl:
		names = implicitGlobals(s.Func.Body, names)
	case *ast.ExprStmt:
		names = implicitInExpr(s.Expr, names)
	case *ast.ReturnStmt:
		names = implicitInExpr(s.Value, names)
	case *ast.ThrowStmt:
		names = implicitInExpr(s.Value, names)
	case *ast.IfStmt:
		names = implicitInExpr(s.Cond, names)
		names = implicitInStmt(s.Then, names)
		if s.Else != nil {
			names = implicitInStmt(s.Else, names)
		}
	case *ast.BlockStmt:
		names = implicitGlobals(s.Body, names)
	case *ast.TryStmt:
		names = implicitGlobals(s.Block.Body, names)
		names = implicitGlobals(s.Handler.Body, names)
	}
	return names
}

func implicitInExpr(expr ast.Expr, names []string) []string {
	switch e := expr.(type) {
	case *ast.AssignExpr:
		if id, ok := e.Target.(*ast.Ident); ok {
			names = append(names, id.Name)
		} else {
			names = implicitInExpr(e.Target, names)
		}
		names = implicitInExpr(e.Value, names)
	case *ast.FunctionLit:
		names = implicitGlobals(e.Body, names)
	case *ast.ArrayLit:
		for _, elem := range e.Elements {
			names = implicitInExpr(elem, names)
		}
	case *ast.ObjectLit:
		for _, prop := range e.Props {
			names = implicitInExpr(prop.Value, names)
		}
	case *ast.UnaryExpr:
		names = implicitInExpr(e.Operand, names)
	case *ast.BinaryExpr:
		names = implicitInExpr(e.Left, names)
		names = implicitInExpr(e.Right, names)
	case *ast.LogicalExpr:
		names = implicitInExpr(e.Left, names)
		names = implicitInExpr(e.Right, names)
	case *ast.CondExpr:
		names = implicitInExpr(e.Cond, names)
		names = implicitInExpr(e.Then, names)
		names = implicitInExpr(e.Else, names)
	case *ast.CallExpr:
		names = implicitInExpr(e.Callee, names)
		for _, arg := range e.Args {
			names = implicitInExpr(arg, names)
		}
	case *ast.MemberExpr:
		names = implicitInExpr(e.Object, names)
	case *ast.IndexExpr:
		names = implicitInExpr(e.Object, names)
		names = implicitInExpr(e.Index, names)
	}
	return names
}
