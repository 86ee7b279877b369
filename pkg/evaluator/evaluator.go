package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
)

// Evidence represents the outcome of one assertion.
type Evidence struct {
	Kind string    `json:"kind"` // "assert"
	OK   bool      `json:"ok"`
	Msg  string    `json:"msg"`
	Span *ast.Span `json:"span,omitempty"`
}

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceFnCallStart    TraceEventType = "fn_call_start"
	TraceFnCallEnd      TraceEventType = "fn_call_end"
	TraceEvidence       TraceEventType = "evidence"
	TraceTryStart       TraceEventType = "try_start"
	TraceTryEnd         TraceEventType = "try_end"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      *Object        `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Modules are the host modules reachable through require.
	Modules map[string]Value
	// Globals are bound in the global scope before the program runs.
	Globals map[string]Value
	// AllowedModules limits require; nil allows every registered module.
	AllowedModules map[string]bool
	Trace          func(event TraceEvent)
	RunID          string
	Logger         *zap.Logger
	Stdout         io.Writer
	Budget         Budget
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Value    Value
	Evidence []Evidence
}

// RuntimeError represents a runtime error during execution. Thrown holds
// the script value of a throw statement.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Thrown  Value
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// caughtValue is what a catch clause binds for this error.
func (e *RuntimeError) caughtValue() Value {
	if e.Thrown != nil {
		return e.Thrown
	}
	return NewObject([]KeyValue{
		{Key: "code", Value: NewString(e.Code)},
		{Key: "message", Value: NewString(e.Message)},
	})
}

func typeError(span *ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EType, Message: fmt.Sprintf(format, args...), Span: span}
}

type evaluator struct {
	ctx      context.Context
	opts     ExecOptions
	global   *Env
	log      *zap.Logger
	stdout   io.Writer
	evidence []Evidence
	budget   Budget
	tracker  BudgetTracker
	hoisted  map[*ast.FunctionDecl]struct{}
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data ...KeyValue) {
	if ev.opts.Trace == nil {
		return
	}
	var dataObj *Object
	if len(data) > 0 {
		dataObj = NewObject(data)
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Span:      span,
		Data:      dataObj,
	})
}

func (ev *evaluator) budgetError(ctx context.Context) error {
	if ev.budget.TimeMs != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("time budget exceeded (%dms)", *ev.budget.TimeMs),
		}
	}
	return &RuntimeError{
		Code:    diagnostics.EBudget,
		Message: fmt.Sprintf("execution cancelled: %v", ctx.Err()),
	}
}

func (ev *evaluator) checkBudget() error {
	if ev.ctx.Err() != nil {
		return ev.budgetError(ev.ctx)
	}
	return nil
}

// RecordEvidence stores an assertion outcome.
func (ev *evaluator) RecordEvidence(e Evidence) {
	ev.evidence = append(ev.evidence, e)
	ev.emitWithData(TraceEvidence, e.Span,
		KeyValue{Key: "ok", Value: NewBool(e.OK)},
		KeyValue{Key: "msg", Value: NewString(e.Msg)},
	)
}

// Stdout is where console output goes.
func (ev *evaluator) Stdout() io.Writer {
	return ev.stdout
}

// Invoke calls c on behalf of a host function.
func (ev *evaluator) Invoke(ctx context.Context, c Callable, args []Value) (Value, error) {
	return ev.invoke(ctx, c, args, nil)
}

// Session is an evaluator whose global scope persists across programs, as
// used by the REPL. A Session is not safe for concurrent use.
type Session struct {
	ev *evaluator
}

// NewSession creates a session with the globals and modules of opts.
func NewSession(opts ExecOptions) *Session {
	ev := &evaluator{
		ctx:     context.Background(),
		opts:    opts,
		global:  NewEnv(nil),
		log:     opts.Logger,
		stdout:  opts.Stdout,
		budget:  opts.Budget,
		hoisted: make(map[*ast.FunctionDecl]struct{}),
	}
	if ev.log == nil {
		ev.log = zap.NewNop()
	}
	if ev.stdout == nil {
		ev.stdout = os.Stdout
	}

	ev.global.Declare("undefined", Undefined{})
	ev.global.Declare("NaN", NewNumber(math.NaN()))
	ev.global.Declare("Infinity", NewNumber(math.Inf(1)))
	ev.global.Declare("require", ev.requireFn())
	for name, val := range opts.Globals {
		ev.global.Declare(name, val)
	}
	return &Session{ev: ev}
}

// Global returns the session's global scope.
func (s *Session) Global() *Env {
	return s.ev.global
}

// Eval runs program in the session's global scope.
func (s *Session) Eval(ctx context.Context, program *ast.Program) (*ExecResult, error) {
	ev := s.ev
	ev.evidence = nil
	ev.tracker = BudgetTracker{StartMs: time.Now().UnixMilli()}

	// Set up context timeout for time budget
	if ev.budget.TimeMs != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*ev.budget.TimeMs)*time.Millisecond)
		defer cancel()
	}
	ev.ctx = ctx

	span := program.Span
	ev.emit(TraceRunStart, &span)

	ev.hoist(program.Statements, ev.global)
	val, _, err := ev.execStmts(program.Statements, ev.global)

	var rtErr *RuntimeError
	if errors.As(err, &rtErr) && rtErr.Code == diagnostics.EBudget {
		ev.emit(TraceBudgetExceeded, &span)
	}
	ev.emitWithData(TraceRunEnd, &span,
		KeyValue{Key: "calls", Value: NewNumber(float64(ev.tracker.Calls))},
		KeyValue{Key: "maxDepth", Value: NewNumber(float64(ev.tracker.MaxDepth))},
	)

	if err != nil {
		return &ExecResult{Evidence: ev.evidence}, err
	}
	return &ExecResult{
		Value:    val,
		Evidence: ev.evidence,
	}, nil
}

// Execute runs a program in a fresh session and returns the result.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return NewSession(opts).Eval(ctx, program)
}

func (ev *evaluator) requireFn() *NativeFunction {
	return NewNativeFunction("require", 1, func(ctx context.Context, call *NativeCall) (Value, error) {
		name := ToString(call.Args.Get(0))
		mod, ok := ev.opts.Modules[name]
		if !ok {
			return nil, &RuntimeError{
				Code:    diagnostics.EUnknownModule,
				Message: fmt.Sprintf("Cannot find module '%s'", name),
				Span:    call.Span,
			}
		}
		if ev.opts.AllowedModules != nil && !ev.opts.AllowedModules[name] {
			return nil, &RuntimeError{
				Code:    diagnostics.EModuleDenied,
				Message: fmt.Sprintf("module '%s' denied by policy", name),
				Span:    call.Span,
			}
		}
		return mod, nil
	})
}

func (ev *evaluator) makeFunction(lit *ast.FunctionLit, scope *Env, declared bool) *Function {
	params := make([]string, len(lit.Params))
	copy(params, lit.Params)
	return &Function{
		name:     lit.Name,
		params:   params,
		body:     lit.Body,
		closure:  scope,
		declared: declared,
		span:     lit.Span,
		ev:       ev,
	}
}

// --- Statements ---

// execStmts runs stmts in order. It returns the completion value of the
// last statement that produced one, or the returned value when a return
// statement ran.
func (ev *evaluator) execStmts(stmts []ast.Stmt, env *Env) (Value, bool, error) {
	var last Value = Undefined{}
	for _, stmt := range stmts {
		if err := ev.checkBudget(); err != nil {
			return nil, false, err
		}
		val, returned, err := ev.execStmt(stmt, env)
		if err != nil {
			return nil, false, err
		}
		if returned {
			return val, true, nil
		}
		if val != nil {
			last = val
		}
	}
	return last, false, nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt, env *Env) (Value, bool, error) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		for _, d := range s.Declarations {
			if d.Init == nil {
				if !env.Has(d.Name) {
					env.Declare(d.Name, Undefined{})
				}
				continue
			}
			val, err := ev.evalExpr(d.Init, env)
			if err != nil {
				return nil, false, err
			}
			if !env.Assign(d.Name, val) {
				env.Declare(d.Name, val)
			}
		}
		return nil, false, nil

	case *ast.FunctionDecl:
		if _, ok := ev.hoisted[s]; ok {
			return nil, false, nil
		}
		fn := ev.makeFunction(s.Func, env, true)
		if !env.Assign(s.Func.Name, fn) {
			env.Declare(s.Func.Name, fn)
		}
		return nil, false, nil

	case *ast.ExprStmt:
		val, err := ev.evalExpr(s.Expr, env)
		if err != nil {
			return nil, false, err
		}
		return val, false, nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			return Undefined{}, true, nil
		}
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return nil, false, err
		}
		return val, true, nil

	case *ast.IfStmt:
		cond, err := ev.evalExpr(s.Cond, env)
		if err != nil {
			return nil, false, err
		}
		if Truthy(cond) {
			return ev.execStmt(s.Then, env)
		}
		if s.Else != nil {
			return ev.execStmt(s.Else, env)
		}
		return nil, false, nil

	case *ast.BlockStmt:
		return ev.execStmts(s.Body, env)

	case *ast.ThrowStmt:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return nil, false, err
		}
		span := s.Span
		return nil, false, &RuntimeError{
			Code:    diagnostics.EThrow,
			Message: "Uncaught " + Inspect(val),
			Span:    &span,
			Thrown:  val,
		}

	case *ast.TryStmt:
		return ev.execTry(s, env)

	case *ast.EmptyStmt:
		return nil, false, nil
	}

	span := stmt.NodeSpan()
	return nil, false, typeError(&span, "unsupported statement type: %T", stmt)
}

func (ev *evaluator) execTry(s *ast.TryStmt, env *Env) (Value, bool, error) {
	span := s.Span
	ev.emit(TraceTryStart, &span)
	defer ev.emit(TraceTryEnd, &span)

	val, returned, err := ev.execStmts(s.Block.Body, env)
	if err == nil {
		return val, returned, nil
	}

	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code == diagnostics.EBudget {
		return nil, false, err
	}
	catchEnv := env.Child()
	if s.CatchBinding != "" {
		catchEnv.Declare(s.CatchBinding, rtErr.caughtValue())
	}
	return ev.execStmts(s.Handler.Body, catchEnv)
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return NewNumber(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.StrLiteral:
		return NewString(e.Value), nil

	case *ast.NullLiteral:
		return NewNull(), nil

	case *ast.Ident:
		val, ok := env.Get(e.Name)
		if !ok {
			span := e.Span
			return nil, &RuntimeError{
				Code:    diagnostics.EReference,
				Message: fmt.Sprintf("%s is not defined", e.Name),
				Span:    &span,
			}
		}
		return val, nil

	case *ast.ArrayLit:
		items := make([]Value, len(e.Elements))
		for i, elem := range e.Elements {
			val, err := ev.evalExpr(elem, env)
			if err != nil {
				return nil, err
			}
			items[i] = val
		}
		return NewArray(items), nil

	case *ast.ObjectLit:
		obj := NewObject(nil)
		for _, p := range e.Props {
			val, err := ev.evalExpr(p.Value, env)
			if err != nil {
				return nil, err
			}
			obj.Set(p.Key, val)
		}
		return obj, nil

	case *ast.FunctionLit:
		return ev.makeFunction(e, env, false), nil

	case *ast.UnaryExpr:
		return ev.evalUnary(e, env)

	case *ast.BinaryExpr:
		return ev.evalBinary(e, env)

	case *ast.LogicalExpr:
		left, err := ev.evalExpr(e.Left, env)
		if err != nil {
			return nil, err
		}
		if Truthy(left) == (e.Op == ast.OpOr) {
			return left, nil
		}
		return ev.evalExpr(e.Right, env)

	case *ast.CondExpr:
		cond, err := ev.evalExpr(e.Cond, env)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.evalExpr(e.Then, env)
		}
		return ev.evalExpr(e.Else, env)

	case *ast.AssignExpr:
		return ev.evalAssign(e, env)

	case *ast.CallExpr:
		return ev.evalCall(e, env)

	case *ast.MemberExpr:
		obj, err := ev.evalExpr(e.Object, env)
		if err != nil {
			return nil, err
		}
		span := e.Span
		return getProperty(obj, e.Property, &span)

	case *ast.IndexExpr:
		obj, err := ev.evalExpr(e.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := ev.evalExpr(e.Index, env)
		if err != nil {
			return nil, err
		}
		if args, ok := obj.(*Arguments); ok {
			return args.At(idx), nil
		}
		span := e.Span
		return getProperty(obj, propertyKey(idx), &span)
	}

	span := expr.NodeSpan()
	return nil, typeError(&span, "unsupported expression type: %T", expr)
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr, env *Env) (Value, error) {
	if e.Op == ast.OpTypeof {
		// typeof tolerates undeclared identifiers.
		if id, ok := e.Operand.(*ast.Ident); ok {
			val, found := env.Get(id.Name)
			if !found {
				return NewString("undefined"), nil
			}
			return NewString(TypeOf(val)), nil
		}
	}

	val, err := ev.evalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		return NewNumber(-ToNumber(val)), nil
	case ast.OpPlus:
		return NewNumber(ToNumber(val)), nil
	case ast.OpNot:
		return NewBool(!Truthy(val)), nil
	case ast.OpTypeof:
		return NewString(TypeOf(val)), nil
	}
	span := e.Span
	return nil, typeError(&span, "unknown unary operator '%s'", e.Op)
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpAdd:
		return Add(left, right), nil
	case ast.OpSub:
		return NewNumber(ToNumber(left) - ToNumber(right)), nil
	case ast.OpMul:
		return NewNumber(ToNumber(left) * ToNumber(right)), nil
	case ast.OpDiv:
		return NewNumber(ToNumber(left) / ToNumber(right)), nil
	case ast.OpMod:
		return NewNumber(math.Mod(ToNumber(left), ToNumber(right))), nil
	case ast.OpEq:
		return NewBool(LooseEquals(left, right)), nil
	case ast.OpNeq:
		return NewBool(!LooseEquals(left, right)), nil
	case ast.OpStrictEq:
		return NewBool(StrictEquals(left, right)), nil
	case ast.OpStrictNeq:
		return NewBool(!StrictEquals(left, right)), nil
	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		cmp, ok := compare(left, right)
		if !ok {
			return NewBool(false), nil
		}
		switch e.Op {
		case ast.OpLt:
			return NewBool(cmp < 0), nil
		case ast.OpGt:
			return NewBool(cmp > 0), nil
		case ast.OpLtEq:
			return NewBool(cmp <= 0), nil
		default:
			return NewBool(cmp >= 0), nil
		}
	}
	span := e.Span
	return nil, typeError(&span, "unknown binary operator '%s'", e.Op)
}

func (ev *evaluator) evalAssign(e *ast.AssignExpr, env *Env) (Value, error) {
	switch target := e.Target.(type) {
	case *ast.Ident:
		val, err := ev.evalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(target.Name, val) {
			// Assigning an undeclared name creates a global.
			env.Global().Declare(target.Name, val)
		}
		return val, nil

	case *ast.MemberExpr:
		obj, err := ev.evalExpr(target.Object, env)
		if err != nil {
			return nil, err
		}
		val, err := ev.evalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		span := target.Span
		if err := setProperty(obj, target.Property, val, &span); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.IndexExpr:
		obj, err := ev.evalExpr(target.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := ev.evalExpr(target.Index, env)
		if err != nil {
			return nil, err
		}
		val, err := ev.evalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		span := target.Span
		if err := setProperty(obj, propertyKey(idx), val, &span); err != nil {
			return nil, err
		}
		return val, nil
	}

	span := e.Span
	return nil, &RuntimeError{
		Code:    diagnostics.EInvalidAssignTgt,
		Message: "invalid assignment target",
		Span:    &span,
	}
}

// --- Calls ---

func (ev *evaluator) evalCall(e *ast.CallExpr, env *Env) (Value, error) {
	callee, err := ev.evalExpr(e.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		val, err := ev.evalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	span := e.Span
	c, ok := callee.(Callable)
	if !ok {
		return nil, typeError(&span, "%s is not a function", describeExpr(e.Callee))
	}
	return ev.invoke(ev.ctx, c, args, &span)
}

// invoke is the single entry point for every call. It enforces the call
// depth limit, traces the call and dispatches on the kind of callable.
func (ev *evaluator) invoke(ctx context.Context, c Callable, args []Value, span *ast.Span) (Value, error) {
	if ctx.Err() != nil {
		return nil, ev.budgetError(ctx)
	}
	if ev.tracker.Depth == 0 {
		// Entered from Go rather than from a running program.
		prev := ev.ctx
		ev.ctx = ctx
		defer func() { ev.ctx = prev }()
	}
	if ev.tracker.Depth >= ev.budget.maxCallDepth() {
		return nil, &RuntimeError{
			Code:    diagnostics.ERange,
			Message: "Maximum call stack size exceeded",
			Span:    span,
		}
	}
	ev.tracker.Depth++
	ev.tracker.Calls++
	if ev.tracker.Depth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = ev.tracker.Depth
	}
	defer func() { ev.tracker.Depth-- }()

	name := c.Name()
	if name == "" {
		name = "(anonymous)"
	}
	ev.log.Debug("invoke",
		zap.String("fn", name),
		zap.Int("argc", len(args)),
		zap.Int("arity", c.Arity()),
		zap.Int64("depth", ev.tracker.Depth),
	)
	ev.emitWithData(TraceFnCallStart, span,
		KeyValue{Key: "fn", Value: NewString(name)},
		KeyValue{Key: "argc", Value: NewNumber(float64(len(args)))},
		KeyValue{Key: "arity", Value: NewNumber(float64(c.Arity()))},
	)

	var (
		result Value
		err    error
	)
	switch fn := c.(type) {
	case *Function:
		result, err = ev.runFunction(fn, args)
	case *NativeFunction:
		result, err = fn.Fn(ctx, &NativeCall{Args: NewArguments(args), Span: span, Host: ev})
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) && rtErr.Span == nil {
			rtErr.Span = span
		}
	default:
		result, err = c.Call(ctx, args)
	}

	ev.emitWithData(TraceFnCallEnd, span,
		KeyValue{Key: "fn", Value: NewString(name)},
		KeyValue{Key: "ok", Value: NewBool(err == nil)},
	)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = Undefined{}
	}
	return result, nil
}

// runFunction executes fn's body in a fresh activation.
func (ev *evaluator) runFunction(fn *Function, args []Value) (Value, error) {
	act := newActivation(fn, args)
	ev.hoist(fn.body, act.Scope)
	val, returned, err := ev.execStmts(fn.body, act.Scope)
	act.complete()
	if err != nil {
		return nil, err
	}
	if !returned {
		return Undefined{}, nil
	}
	return val, nil
}

// describeExpr renders a callee for error messages, e.g. "obj.method".
func describeExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.MemberExpr:
		return describeExpr(e.Object) + "." + e.Property
	case *ast.IndexExpr:
		return describeExpr(e.Object) + "[...]"
	case *ast.CallExpr:
		return describeExpr(e.Callee) + "(...)"
	default:
		return "expression"
	}
}
