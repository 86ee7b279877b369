package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// ToNumber converts v using JavaScript's numeric conversion.
func ToNumber(v Value) float64 {
	switch val := v.(type) {
	case nil, Undefined:
		return math.NaN()
	case Null:
		return 0
	case Bool:
		if val.Value {
			return 1
		}
		return 0
	case Number:
		return val.Value
	case String:
		return stringToNumber(val.Value)
	case *Array:
		return stringToNumber(ToString(val))
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	// ParseFloat accepts spellings like "inf" and "1_0" that are not numbers here.
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// ToString converts v using JavaScript's string conversion.
func ToString(v Value) string {
	return toString(v, nil)
}

// toString threads the arrays being joined so that an array containing
// itself renders the inner reference as "", as Array#join does.
func toString(v Value, joining map[*Array]bool) string {
	switch val := v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(val.Value)
	case String:
		return val.Value
	case *Array:
		if joining[val] {
			return ""
		}
		if joining == nil {
			joining = make(map[*Array]bool)
		}
		joining[val] = true
		defer delete(joining, val)

		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			switch item.(type) {
			case nil, Undefined, Null:
			default:
				parts[i] = toString(item, joining)
			}
		}
		return strings.Join(parts, ",")
	case *Function:
		return "function " + val.name + "() { [code] }"
	case *NativeFunction:
		return "function " + val.FnName + "() { [native code] }"
	case *Arguments:
		return "[object Arguments]"
	default:
		return "[object Object]"
	}
}

// FormatNumber renders n the way JavaScript's Number#toString does.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		// Go pads the exponent to two digits ("1e-07"); JavaScript does not.
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + string(sign) + digits
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// toPrimitive converts reference values to strings for mixed comparisons.
func toPrimitive(v Value) Value {
	switch v.(type) {
	case *Array, *Object, *Function, *NativeFunction, *Arguments:
		return String{Value: ToString(v)}
	}
	return v
}

func isNullish(v Value) bool {
	switch v.(type) {
	case nil, Undefined, Null:
		return true
	}
	return false
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	switch av := a.(type) {
	case nil, Undefined:
		switch b.(type) {
		case nil, Undefined:
			return true
		}
		return false
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	}
	// Reference values compare by identity.
	return a == b
}

// LooseEquals implements ==.
func LooseEquals(a, b Value) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	refA, refB := isReference(a), isReference(b)
	if refA && refB {
		return a == b
	}
	if !refA && !refB && TypeOf(a) == TypeOf(b) {
		return StrictEquals(a, b)
	}
	pa, pb := toPrimitive(a), toPrimitive(b)
	if sa, ok := pa.(String); ok {
		if sb, ok := pb.(String); ok {
			return sa.Value == sb.Value
		}
	}
	return ToNumber(pa) == ToNumber(pb)
}

func isReference(v Value) bool {
	switch v.(type) {
	case *Array, *Object, *Function, *NativeFunction, *Arguments:
		return true
	}
	return false
}

// Add implements +, concatenating when either operand converts to a string.
func Add(a, b Value) Value {
	pa, pb := toPrimitive(a), toPrimitive(b)
	_, aStr := pa.(String)
	_, bStr := pb.(String)
	if aStr || bStr {
		return String{Value: ToString(pa) + ToString(pb)}
	}
	return Number{Value: ToNumber(pa) + ToNumber(pb)}
}

// compare implements the relational operators. ok is false when either
// operand is NaN, which makes every comparison false.
func compare(a, b Value) (cmp int, ok bool) {
	pa, pb := toPrimitive(a), toPrimitive(b)
	if sa, isStr := pa.(String); isStr {
		if sb, isStr := pb.(String); isStr {
			return strings.Compare(sa.Value, sb.Value), true
		}
	}
	na, nb := ToNumber(pa), ToNumber(pb)
	if math.IsNaN(na) || math.IsNaN(nb) {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	}
	return 0, true
}

// arrayIndex parses a canonical non-negative integer property key.
func arrayIndex(key string) (int, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n := 0
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}

// propertyKey converts an index operand to a property name.
func propertyKey(v Value) string {
	return ToString(v)
}
