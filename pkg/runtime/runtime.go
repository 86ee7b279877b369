// Package runtime provides the top-level jsfn runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/capabilities"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/formatter"
	"github.com/thomasrohde/jsfn/pkg/parser"
	"github.com/thomasrohde/jsfn/pkg/stdlib"
	"github.com/thomasrohde/jsfn/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value    evaluator.Value
	Evidence []evaluator.Evidence
}

// Runtime wires together all jsfn components for program execution.
type Runtime struct {
	stdlib *stdlib.Registry
	policy *capabilities.Policy
	budget evaluator.Budget
	runID  string
	trace  func(event evaluator.TraceEvent)
	log    *zap.Logger
	stdout io.Writer
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the host module registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithPolicy sets the module policy. Its limits apply unless WithBudget
// overrides them.
func WithPolicy(p *capabilities.Policy) Option {
	return func(rt *Runtime) {
		rt.policy = p
	}
}

// WithUnsafeAllowAll sets the policy to allow all modules.
func WithUnsafeAllowAll() Option {
	return func(rt *Runtime) {
		rt.policy = capabilities.AllowAll()
	}
}

// WithBudget sets execution limits. Non-nil fields take precedence over the
// policy's limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithLogger sets the logger used by the runtime and evaluator.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

// WithStdout sets where console output goes.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// New creates a new Runtime with the given options.
// By default, the stdlib defaults are registered and policy is allow-all.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		policy: capabilities.AllowAll(),
		runID:  "cli",
		log:    zap.NewNop(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses, validates, and executes a program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.load(source, filename)
	if err != nil {
		return nil, err
	}

	opts := rt.buildExecOptions()
	rt.log.Debug("run",
		zap.String("file", filename),
		zap.String("runId", rt.runID),
		zap.Int("statements", len(program.Statements)),
	)
	result, err := evaluator.Execute(ctx, program, opts)
	if err != nil {
		rt.log.Debug("run failed", zap.String("file", filename), zap.Error(err))
		if result != nil {
			return &Result{Evidence: result.Evidence}, err
		}
		return nil, err
	}
	return &Result{Value: result.Value, Evidence: result.Evidence}, nil
}

// Check parses and validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program, rt.validatorOptions())
}

// Format parses and formats a program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Session is a runtime whose global scope persists across inputs, as used by
// the REPL. Inputs are parsed but not validated, since names bound by earlier
// inputs are only known at run time.
type Session struct {
	session *evaluator.Session
}

// NewSession starts a session with the runtime's configuration.
func (rt *Runtime) NewSession() *Session {
	return &Session{session: evaluator.NewSession(rt.buildExecOptions())}
}

// Eval runs one input in the session.
func (s *Session) Eval(ctx context.Context, source string) (*Result, error) {
	program, diags := parser.Parse(source, "repl")
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	result, err := s.session.Eval(ctx, program)
	if err != nil {
		return &Result{Evidence: result.Evidence}, err
	}
	return &Result{Value: result.Value, Evidence: result.Evidence}, nil
}

func (rt *Runtime) load(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if vDiags := validator.Validate(program, rt.validatorOptions()); len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}
	return program, nil
}

func (rt *Runtime) validatorOptions() validator.Options {
	return validator.Options{
		Globals: rt.stdlib.GlobalNames(),
		Modules: rt.stdlib.ModuleNames(),
	}
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	budget := rt.budget
	if rt.policy != nil {
		if budget.TimeMs == nil {
			budget.TimeMs = rt.policy.Limits.TimeMs
		}
		if budget.MaxCallDepth == nil {
			budget.MaxCallDepth = rt.policy.Limits.MaxCallDepth
		}
	}

	return evaluator.ExecOptions{
		Modules:        rt.stdlib.Modules(),
		Globals:        rt.stdlib.Globals(),
		AllowedModules: rt.policy.AllowedModules(rt.stdlib.ModuleNames()),
		Trace:          rt.trace,
		RunID:          rt.runID,
		Logger:         rt.log,
		Stdout:         rt.stdout,
		Budget:         budget,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// ErrorDiagnostics converts an error from Run into the diagnostics reported
// to the user.
func ErrorDiagnostics(err error) []diagnostics.Diagnostic {
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return diagErr.Diagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(rtErr.Code, rtErr.Message, rtErr.Span, "")}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}

// ExitCode maps an error from Run to the CLI exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return 2
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return diagnostics.ExitCode(rtErr.Code)
	}
	return 1
}
