package evaluator

import "math"

// Arguments is the read-only view of every value passed to one call,
// independent of how many parameters the callee declares.
type Arguments struct {
	values []Value
}

func (*Arguments) jsvalue() {}

// NewArguments copies args into a fresh view.
func NewArguments(args []Value) *Arguments {
	values := make([]Value, len(args))
	copy(values, args)
	return &Arguments{values: values}
}

// Len returns the number of values the caller supplied.
func (a *Arguments) Len() int {
	return len(a.values)
}

// Get returns the value at position i, or undefined outside [0, Len()).
func (a *Arguments) Get(i int) Value {
	if i < 0 || i >= len(a.values) {
		return Undefined{}
	}
	return a.values[i]
}

// Values returns a copy of the supplied values.
func (a *Arguments) Values() []Value {
	out := make([]Value, len(a.values))
	copy(out, a.values)
	return out
}

// At returns the value for a script-level index. Non-integer indices yield
// undefined.
func (a *Arguments) At(index Value) Value {
	n, ok := index.(Number)
	if !ok {
		if s, isStr := index.(String); isStr {
			if i, valid := arrayIndex(s.Value); valid {
				return a.Get(i)
			}
		}
		return Undefined{}
	}
	if n.Value != math.Trunc(n.Value) || n.Value > math.MaxInt32 {
		return Undefined{}
	}
	return a.Get(int(n.Value))
}
