// Package ast defines the jsfn AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd       BinaryOp = "+"
	OpSub       BinaryOp = "-"
	OpMul       BinaryOp = "*"
	OpDiv       BinaryOp = "/"
	OpMod       BinaryOp = "%"
	OpGt        BinaryOp = ">"
	OpLt        BinaryOp = "<"
	OpGtEq      BinaryOp = ">="
	OpLtEq      BinaryOp = "<="
	OpEq        BinaryOp = "=="
	OpNeq       BinaryOp = "!="
	OpStrictEq  BinaryOp = "==="
	OpStrictNeq BinaryOp = "!=="
)

// LogicalOp represents a short-circuiting operator.
type LogicalOp string

const (
	OpAnd LogicalOp = "&&"
	OpOr  LogicalOp = "||"
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg    UnaryOp = "-"
	OpPlus   UnaryOp = "+"
	OpNot    UnaryOp = "!"
	OpTypeof UnaryOp = "typeof"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type NumberLiteral struct {
	Span  Span
	Value float64
	Raw   string
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

type NullLiteral struct {
	Span Span
}

func (n *NullLiteral) Kind() string   { return "NullLiteral" }
func (n *NullLiteral) NodeSpan() Span { return n.Span }
func (n *NullLiteral) exprNode()      {}

// --- Identifiers ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// --- Collections ---

type ArrayLit struct {
	Span     Span
	Elements []Expr
}

func (n *ArrayLit) Kind() string   { return "ArrayLit" }
func (n *ArrayLit) NodeSpan() Span { return n.Span }
func (n *ArrayLit) exprNode()      {}

// Property is a single key: value entry of an object literal.
type Property struct {
	Span  Span
	Key   string
	Value Expr
}

type ObjectLit struct {
	Span  Span
	Props []*Property
}

func (n *ObjectLit) Kind() string   { return "ObjectLit" }
func (n *ObjectLit) NodeSpan() Span { return n.Span }
func (n *ObjectLit) exprNode()      {}

// --- Functions ---

// FunctionLit is the shared shape of function declarations and function
// expressions. Name is empty for anonymous expressions.
type FunctionLit struct {
	Span   Span
	Name   string
	Params []string
	Body   []Stmt
}

func (n *FunctionLit) Kind() string   { return "FunctionLit" }
func (n *FunctionLit) NodeSpan() Span { return n.Span }
func (n *FunctionLit) exprNode()      {}

// --- Operators ---

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type LogicalExpr struct {
	Span  Span
	Op    LogicalOp
	Left  Expr
	Right Expr
}

func (n *LogicalExpr) Kind() string   { return "LogicalExpr" }
func (n *LogicalExpr) NodeSpan() Span { return n.Span }
func (n *LogicalExpr) exprNode()      {}

type CondExpr struct {
	Span Span
	Cond Expr
	Then Expr
	Else Expr
}

func (n *CondExpr) Kind() string   { return "CondExpr" }
func (n *CondExpr) NodeSpan() Span { return n.Span }
func (n *CondExpr) exprNode()      {}

// AssignExpr assigns to an Ident, MemberExpr or IndexExpr target.
type AssignExpr struct {
	Span   Span
	Target Expr
	Value  Expr
}

func (n *AssignExpr) Kind() string   { return "AssignExpr" }
func (n *AssignExpr) NodeSpan() Span { return n.Span }
func (n *AssignExpr) exprNode()      {}

// --- Access and calls ---

type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

type MemberExpr struct {
	Span     Span
	Object   Expr
	Property string
}

func (n *MemberExpr) Kind() string   { return "MemberExpr" }
func (n *MemberExpr) NodeSpan() Span { return n.Span }
func (n *MemberExpr) exprNode()      {}

type IndexExpr struct {
	Span   Span
	Object Expr
	Index  Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

// --- Statements ---

// VarDeclarator is one name = init pair of a var statement. Init may be nil.
type VarDeclarator struct {
	Span Span
	Name string
	Init Expr
}

type VarDecl struct {
	Span         Span
	Declarations []*VarDeclarator
}

func (n *VarDecl) Kind() string   { return "VarDecl" }
func (n *VarDecl) NodeSpan() Span { return n.Span }
func (n *VarDecl) stmtNode()      {}

type FunctionDecl struct {
	Span Span
	Func *FunctionLit
}

func (n *FunctionDecl) Kind() string   { return "FunctionDecl" }
func (n *FunctionDecl) NodeSpan() Span { return n.Span }
func (n *FunctionDecl) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// ReturnStmt returns Value from the enclosing function. Value may be nil.
type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type BlockStmt struct {
	Span Span
	Body []Stmt
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}

type ThrowStmt struct {
	Span  Span
	Value Expr
}

func (n *ThrowStmt) Kind() string   { return "ThrowStmt" }
func (n *ThrowStmt) NodeSpan() Span { return n.Span }
func (n *ThrowStmt) stmtNode()      {}

type TryStmt struct {
	Span         Span
	Block        *BlockStmt
	CatchBinding string
	Handler      *BlockStmt
}

func (n *TryStmt) Kind() string   { return "TryStmt" }
func (n *TryStmt) NodeSpan() Span { return n.Span }
func (n *TryStmt) stmtNode()      {}

type EmptyStmt struct {
	Span Span
}

func (n *EmptyStmt) Kind() string   { return "EmptyStmt" }
func (n *EmptyStmt) NodeSpan() Span { return n.Span }
func (n *EmptyStmt) stmtNode()      {}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
