package ast_test

import (
	"testing"

	"github.com/thomasrohde/jsfn/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.NumberLiteral{Value: 42},
		&ast.BoolLiteral{Value: true},
		&ast.StrLiteral{Value: "hello"},
		&ast.NullLiteral{},
		&ast.Ident{Name: "x"},
		&ast.ObjectLit{},
		&ast.ArrayLit{},
		&ast.FunctionLit{},
		&ast.CallExpr{},
		&ast.FunctionDecl{},
		&ast.VarDecl{},
	}

	expected := []string{
		"NumberLiteral", "BoolLiteral", "StrLiteral", "NullLiteral",
		"Ident", "ObjectLit", "ArrayLit", "FunctionLit", "CallExpr",
		"FunctionDecl", "VarDecl",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}
