package evaluator

import (
	"context"
	"io"
	"os"

	"github.com/thomasrohde/jsfn/pkg/ast"
)

// Callable is implemented by every value that can be invoked with an
// argument list.
type Callable interface {
	Value
	Name() string
	Arity() int
	Call(ctx context.Context, args []Value) (Value, error)
}

// Function is a script-defined function value. It is immutable once
// constructed: invoking it never changes its parameters or body, and its
// closure is shared with every other function created in the same scope.
type Function struct {
	name     string
	params   []string
	body     []ast.Stmt
	closure  *Env
	declared bool
	span     ast.Span
	ev       *evaluator
}

func (*Function) jsvalue() {}

// Name returns the declared name, or "" for anonymous expressions.
func (f *Function) Name() string { return f.name }

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.params) }

// Params returns a copy of the declared parameter names.
func (f *Function) Params() []string {
	out := make([]string, len(f.params))
	copy(out, f.params)
	return out
}

// Body returns the function's statements.
func (f *Function) Body() []ast.Stmt { return f.body }

// Closure returns the environment the function was created in.
func (f *Function) Closure() *Env { return f.closure }

// Declared reports whether the function came from a declaration rather than
// an expression.
func (f *Function) Declared() bool { return f.declared }

// Span returns the source location of the function literal.
func (f *Function) Span() ast.Span { return f.span }

// Call invokes the function through the evaluator that created it.
func (f *Function) Call(ctx context.Context, args []Value) (Value, error) {
	return f.ev.invoke(ctx, f, args, nil)
}

// Host is the part of the evaluator that native functions may use.
type Host interface {
	RecordEvidence(e Evidence)
	Stdout() io.Writer
	Invoke(ctx context.Context, c Callable, args []Value) (Value, error)
}

// NativeCall carries the arguments of one host function invocation.
type NativeCall struct {
	Args *Arguments
	Span *ast.Span
	Host Host
}

// NativeFunc is the Go implementation behind a NativeFunction.
type NativeFunc func(ctx context.Context, call *NativeCall) (Value, error)

// NativeFunction is a function implemented in Go. Props holds the
// properties reachable with member access, e.g. assert.equal.
type NativeFunction struct {
	FnName  string
	FnArity int
	Fn      NativeFunc
	Props   *Object
}

func (*NativeFunction) jsvalue() {}

// NewNativeFunction creates a host function value.
func NewNativeFunction(name string, arity int, fn NativeFunc) *NativeFunction {
	return &NativeFunction{FnName: name, FnArity: arity, Fn: fn}
}

// Name returns the host function's name.
func (n *NativeFunction) Name() string { return n.FnName }

// Arity returns the host function's declared parameter count.
func (n *NativeFunction) Arity() int { return n.FnArity }

// Call invokes the host function outside of any evaluator.
func (n *NativeFunction) Call(ctx context.Context, args []Value) (Value, error) {
	return n.Fn(ctx, &NativeCall{Args: NewArguments(args), Host: detachedHost{}})
}

// WithProp attaches a property to the function and returns it.
func (n *NativeFunction) WithProp(key string, val Value) *NativeFunction {
	if n.Props == nil {
		n.Props = NewObject(nil)
	}
	n.Props.Set(key, val)
	return n
}

// detachedHost serves native functions called directly from Go.
type detachedHost struct{}

func (detachedHost) RecordEvidence(Evidence) {}

func (detachedHost) Stdout() io.Writer { return os.Stdout }

func (detachedHost) Invoke(ctx context.Context, c Callable, args []Value) (Value, error) {
	return c.Call(ctx, args)
}

// Invoke calls c with args. Script functions run in a fresh activation whose
// parameters are bound positionally and whose arguments view holds exactly
// the supplied values.
func Invoke(ctx context.Context, c Callable, args []Value) (Value, error) {
	return c.Call(ctx, args)
}
