package evaluator

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping. Function
// activations and the program each own one Env; blocks share their
// enclosing function's Env since only var declarations exist.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for the global scope.
func (e *Env) Parent() *Env {
	return e.parent
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if val, ok := scope.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Declare binds a variable in this scope, replacing any existing binding.
func (e *Env) Declare(name string, val Value) {
	e.bindings[name] = val
}

// Assign updates the nearest existing binding for name.
// It reports false when no scope in the chain declares name.
func (e *Env) Assign(name string, val Value) bool {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.bindings[name]; ok {
			scope.bindings[name] = val
			return true
		}
	}
	return false
}

// HasOwn checks whether name is declared directly in this scope.
func (e *Env) HasOwn(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Global returns the outermost scope of the chain.
func (e *Env) Global() *Env {
	scope := e
	for scope.parent != nil {
		scope = scope.parent
	}
	return scope
}
