// Package evaluator implements the jsfn runtime evaluator.
package evaluator

// Value is the interface for all runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	jsvalue() // sealed marker
}

// Undefined is the value of missing parameters, unset variables and
// functions that finish without a return value.
type Undefined struct{}

func (Undefined) jsvalue() {}

// Null represents a null value.
type Null struct{}

func (Null) jsvalue() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) jsvalue() {}

// Number represents a numeric value.
type Number struct {
	Value float64
}

func (Number) jsvalue() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) jsvalue() {}

// Array is a mutable ordered list of values with reference identity.
type Array struct {
	Items []Value
}

func (*Array) jsvalue() {}

// KeyValue is a key-value pair in an ordered object.
type KeyValue struct {
	Key   string
	Value Value
}

// Object is a mutable map of string keys to values with reference identity.
// Insertion order is preserved via the Pairs slice.
type Object struct {
	Pairs []KeyValue
	index map[string]int // lazy index for lookups
}

func (*Object) jsvalue() {}

// NewUndefined returns the undefined value.
func NewUndefined() Value {
	return Undefined{}
}

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewArray creates an array value.
func NewArray(items []Value) *Array {
	return &Array{Items: items}
}

// NewObject creates an object value from key-value pairs.
func NewObject(pairs []KeyValue) *Object {
	o := &Object{}
	for _, kv := range pairs {
		o.Set(kv.Key, kv.Value)
	}
	return o
}

func (o *Object) buildIndex() {
	o.index = make(map[string]int, len(o.Pairs))
	for i, kv := range o.Pairs {
		o.index[kv.Key] = i
	}
}

// Get retrieves a value by key from the object.
func (o *Object) Get(key string) (Value, bool) {
	if o.index == nil {
		o.buildIndex()
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.Pairs[i].Value, true
}

// Set sets a value by key in the object, preserving insertion order.
func (o *Object) Set(key string, val Value) {
	if o.index == nil {
		o.buildIndex()
	}
	if i, ok := o.index[key]; ok {
		o.Pairs[i].Value = val
		return
	}
	o.index[key] = len(o.Pairs)
	o.Pairs = append(o.Pairs, KeyValue{Key: key, Value: val})
}

// Keys returns all keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.Pairs))
	for i, kv := range o.Pairs {
		keys[i] = kv.Key
	}
	return keys
}

// Truthy returns the boolean interpretation of a value.
// undefined, null, false, 0, NaN and "" are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Undefined, Null:
		return false
	case Bool:
		return val.Value
	case Number:
		return val.Value != 0 && val.Value == val.Value
	case String:
		return val.Value != ""
	default:
		return true
	}
}

// TypeOf returns the result of the typeof operator for v.
func TypeOf(v Value) string {
	switch v.(type) {
	case nil, Undefined:
		return "undefined"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case *Function, *NativeFunction:
		return "function"
	default:
		return "object"
	}
}
