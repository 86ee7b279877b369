package evaluator

// ActivationState tracks where a call is in its life.
type ActivationState int

const (
	ActivationActive ActivationState = iota
	ActivationCompleted
)

func (s ActivationState) String() string {
	if s == ActivationCompleted {
		return "completed"
	}
	return "active"
}

// Activation is the frame of one function call. It is created fresh for
// every invocation and never shared; Scope outlives the call only when a
// closure created during the call captured it.
type Activation struct {
	Fn       *Function
	Bindings []Binding
	Args     *Arguments
	Parent   *Env
	Scope    *Env
	State    ActivationState
}

const argumentsName = "arguments"

func newActivation(fn *Function, args []Value) *Activation {
	act := &Activation{
		Fn:       fn,
		Bindings: BindParams(fn.params, args),
		Args:     NewArguments(args),
		Parent:   fn.closure,
		State:    ActivationActive,
	}
	act.Scope = act.Parent.Child()

	for _, b := range act.Bindings {
		act.Scope.Declare(b.Name, b.Value)
	}
	if !act.Scope.HasOwn(argumentsName) {
		act.Scope.Declare(argumentsName, act.Args)
	}
	// A named expression sees itself; declarations are already bound in
	// the enclosing scope.
	if fn.name != "" && !fn.declared && !act.Scope.HasOwn(fn.name) {
		act.Scope.Declare(fn.name, fn)
	}
	return act
}

// lookup returns the value currently bound to a parameter name.
func (a *Activation) lookup(name string) (Value, bool) {
	if !a.Scope.HasOwn(name) {
		return nil, false
	}
	return a.Scope.Get(name)
}

func (a *Activation) complete() {
	a.State = ActivationCompleted
}
