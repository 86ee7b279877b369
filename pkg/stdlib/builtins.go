package stdlib

import (
	"fmt"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

// RegisterDefaults adds all host modules and globals.
func RegisterDefaults(r *Registry) {
	assert := newAssert()
	r.RegisterModule("assert", assert)
	r.RegisterGlobal("assert", assert)

	r.RegisterGlobal("console", newConsole())

	// Conversions
	r.RegisterGlobal("String", native("String", 1, stdlibString))
	r.RegisterGlobal("Number", native("Number", 1, stdlibNumber))
	r.RegisterGlobal("isNaN", native("isNaN", 1, stdlibIsNaN))

	// Namespaces
	r.RegisterGlobal("Math", newMath())
	r.RegisterGlobal("Object", newObjectNamespace())
	r.RegisterGlobal("JSON", newJSON())
}

// Default returns a registry populated by RegisterDefaults.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

func native(name string, arity int, fn evaluator.NativeFunc) *evaluator.NativeFunction {
	return evaluator.NewNativeFunction(name, arity, fn)
}

func namespace(fns ...*evaluator.NativeFunction) *evaluator.Object {
	obj := evaluator.NewObject(nil)
	for _, fn := range fns {
		obj.Set(fn.Name(), fn)
	}
	return obj
}

func typeErr(call *evaluator.NativeCall, format string, args ...any) error {
	return &evaluator.RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf(format, args...),
		Span:    call.Span,
	}
}
