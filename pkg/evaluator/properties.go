package evaluator

import (
	"math"
	"unicode/utf16"

	"github.com/thomasrohde/jsfn/pkg/ast"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
)

// getProperty reads obj[key]. Reading from undefined or null is a TypeError;
// missing properties are undefined.
func getProperty(obj Value, key string, span *ast.Span) (Value, error) {
	switch o := obj.(type) {
	case nil, Undefined, Null:
		return nil, typeError(span, "Cannot read properties of %s (reading '%s')", ToString(obj), key)

	case String:
		units := utf16.Encode([]rune(o.Value))
		if key == "length" {
			return NewNumber(float64(len(units))), nil
		}
		if i, ok := arrayIndex(key); ok && i < len(units) {
			return NewString(string(utf16.Decode(units[i : i+1]))), nil
		}

	case *Array:
		if key == "length" {
			return NewNumber(float64(len(o.Items))), nil
		}
		if i, ok := arrayIndex(key); ok && i < len(o.Items) {
			return o.Items[i], nil
		}

	case *Arguments:
		if key == "length" {
			return NewNumber(float64(o.Len())), nil
		}
		if i, ok := arrayIndex(key); ok {
			return o.Get(i), nil
		}

	case *Object:
		if val, ok := o.Get(key); ok {
			return val, nil
		}

	case *Function:
		switch key {
		case "length":
			return NewNumber(float64(o.Arity())), nil
		case "name":
			return NewString(o.name), nil
		}

	case *NativeFunction:
		switch key {
		case "length":
			return NewNumber(float64(o.FnArity)), nil
		case "name":
			return NewString(o.FnName), nil
		}
		if o.Props != nil {
			if val, ok := o.Props.Get(key); ok {
				return val, nil
			}
		}
	}
	return Undefined{}, nil
}

// setProperty writes obj[key] = val.
func setProperty(obj Value, key string, val Value, span *ast.Span) error {
	switch o := obj.(type) {
	case nil, Undefined, Null:
		return typeError(span, "Cannot set properties of %s (setting '%s')", ToString(obj), key)

	case *Object:
		o.Set(key, val)
		return nil

	case *Array:
		if key == "length" {
			n := ToNumber(val)
			if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
				return &RuntimeError{Code: diagnostics.ERange, Message: "Invalid array length", Span: span}
			}
			o.Items = resize(o.Items, int(n))
			return nil
		}
		i, ok := arrayIndex(key)
		if !ok {
			return typeError(span, "Cannot create property '%s' on array", key)
		}
		if i >= len(o.Items) {
			o.Items = resize(o.Items, i+1)
		}
		o.Items[i] = val
		return nil

	case *Arguments:
		return typeError(span, "Cannot assign to '%s' of arguments: the arguments object is read-only", key)
	}
	return typeError(span, "Cannot create property '%s' on %s", key, TypeOf(obj))
}

func resize(items []Value, n int) []Value {
	if n <= len(items) {
		return items[:n]
	}
	for len(items) < n {
		items = append(items, Undefined{})
	}
	return items
}
