// Package stdlib provides the jsfn host modules and global functions.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

// Registry holds the host values a program can reach: modules loaded with
// require and globals bound before the program starts.
type Registry struct {
	modules map[string]evaluator.Value
	globals map[string]evaluator.Value
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]evaluator.Value),
		globals: make(map[string]evaluator.Value),
	}
}

// RegisterModule makes v loadable with require(name).
func (r *Registry) RegisterModule(name string, v evaluator.Value) {
	r.modules[name] = v
}

// RegisterGlobal binds v to name in every program's global scope.
func (r *Registry) RegisterGlobal(name string, v evaluator.Value) {
	r.globals[name] = v
}

// Module retrieves a module by name.
func (r *Registry) Module(name string) (evaluator.Value, bool) {
	v, ok := r.modules[name]
	return v, ok
}

// Modules returns a copy of the registered modules.
func (r *Registry) Modules() map[string]evaluator.Value {
	return copyValues(r.modules)
}

// Globals returns a copy of the registered globals.
func (r *Registry) Globals() map[string]evaluator.Value {
	return copyValues(r.globals)
}

// ModuleNames returns the registered module names, sorted.
func (r *Registry) ModuleNames() []string {
	return sortedKeys(r.modules)
}

// GlobalNames returns the registered global names, sorted.
func (r *Registry) GlobalNames() []string {
	return sortedKeys(r.globals)
}

func copyValues(in map[string]evaluator.Value) map[string]evaluator.Value {
	out := make(map[string]evaluator.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(in map[string]evaluator.Value) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
