package evaluator

import "github.com/thomasrohde/jsfn/pkg/ast"

// hoist prepares scope before any statement of stmts runs. Every var name
// reachable without entering a nested function is declared as undefined
// unless scope already binds it. Function declarations directly in stmts
// are created and bound, so they can be called from earlier statements.
// Declarations nested in blocks are bound when their block runs.
func (ev *evaluator) hoist(stmts []ast.Stmt, scope *Env) {
	for _, name := range varNames(stmts, nil) {
		if !scope.HasOwn(name) {
			scope.Declare(name, Undefined{})
		}
	}
	for _, stmt := range stmts {
		if decl, ok := stmt.(*ast.FunctionDecl); ok {
			scope.Declare(decl.Func.Name, ev.makeFunction(decl.Func, scope, true))
			ev.hoisted[decl] = struct{}{}
		}
	}
}

// varNames collects the names introduced by var and nested function
// declarations in stmts, in source order.
func varNames(stmts []ast.Stmt, names []string) []string {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			for _, d := range s.Declarations {
				names = append(names, d.Name)
			}
		case *ast.FunctionDecl:
			names = append(names, s.Func.Name)
		case *ast.BlockStmt:
			names = varNames(s.Body, names)
		case *ast.IfStmt:
			names = varNames([]ast.Stmt{s.Then}, names)
			if s.Else != nil {
				names = varNames([]ast.Stmt{s.Else}, names)
			}
		case *ast.TryStmt:
			names = varNames(s.Block.Body, names)
			names = varNames(s.Handler.Body, names)
		}
	}
	return names
}

// VarNames returns the names a function body or program hoists into its
// scope: var declarations and function declarations, excluding those inside
// nested functions.
func VarNames(stmts []ast.Stmt) []string {
	return varNames(stmts, nil)
}
