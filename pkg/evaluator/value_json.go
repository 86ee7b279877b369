package evaluator

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/ast"
)

// ErrCircularJSON is returned by ValueToJSON for a value that contains itself.
var ErrCircularJSON = errors.New("Converting circular structure to JSON")

// ValueToJSON marshals a Value to JSON bytes following JSON.stringify:
// object keys keep their order, undefined and functions are dropped from
// objects and become null inside arrays, non-finite numbers become null.
// The arguments view serializes as an object keyed by index.
func ValueToJSON(v Value) ([]byte, error) {
	raw, err := valueToRaw(v, make(map[Value]bool))
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// valueToRaw converts v into plain Go values. active holds the containers
// currently being converted.
func valueToRaw(v Value, active map[Value]bool) (any, error) {
	switch val := v.(type) {
	case nil, Undefined, Null:
		return nil, nil

	case Bool:
		return val.Value, nil

	case Number:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return nil, nil
		}
		// Output integers without decimal point
		if val.Value == math.Trunc(val.Value) && math.Abs(val.Value) < 1<<53 {
			return int64(val.Value), nil
		}
		return val.Value, nil

	case String:
		return val.Value, nil

	case *Array, *Object, *Arguments:
		if active[v] {
			return nil, ErrCircularJSON
		}
		active[v] = true
		defer delete(active, v)
	}

	switch val := v.(type) {
	case *Array:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			raw, err := valueToRaw(item, active)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return items, nil

	case *Arguments:
		obj := &orderedObject{}
		for i, item := range val.values {
			raw, err := valueToRaw(item, active)
			if err != nil {
				return nil, err
			}
			obj.pairs = append(obj.pairs, rawPair{key: strconv.Itoa(i), value: raw})
		}
		return obj, nil

	case *Object:
		obj := &orderedObject{}
		for _, kv := range val.Pairs {
			if omitted(kv.Value) {
				continue
			}
			raw, err := valueToRaw(kv.Value, active)
			if err != nil {
				return nil, err
			}
			obj.pairs = append(obj.pairs, rawPair{key: kv.Key, value: raw})
		}
		return obj, nil
	}

	return nil, nil
}

// omitted reports whether JSON.stringify skips a property with this value.
func omitted(v Value) bool {
	switch v.(type) {
	case nil, Undefined, *Function, *NativeFunction:
		return true
	}
	return false
}

type rawPair struct {
	key   string
	value any
}

// orderedObject preserves key order in JSON output.
type orderedObject struct {
	pairs []rawPair
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, p := range o.pairs {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')

		valBytes, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// MarshalJSON lets objects appear directly in trace event payloads.
func (o *Object) MarshalJSON() ([]byte, error) {
	return ValueToJSON(o)
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type evidenceJSON struct {
	Kind string    `json:"kind"`
	OK   bool      `json:"ok"`
	Msg  string    `json:"msg"`
	Span *ast.Span `json:"span,omitempty"`
}

// EvidenceToJSON marshals a slice of Evidence to JSON bytes.
func EvidenceToJSON(evidence []Evidence) ([]byte, error) {
	items := make([]evidenceJSON, len(evidence))
	for i, ev := range evidence {
		items[i] = evidenceJSON{
			Kind: ev.Kind,
			OK:   ev.OK,
			Msg:  ev.Msg,
			Span: ev.Span,
		}
	}
	return json.Marshal(items)
}

// Inspect renders v for console output and the REPL, in the style of
// Node's util.inspect: strings nested inside containers are quoted.
func Inspect(v Value) string {
	var sb strings.Builder
	inspect(&sb, v, 0)
	return sb.String()
}

// InspectQuoted is Inspect with strings quoted, as they appear inside
// arrays and objects.
func InspectQuoted(v Value) string {
	var sb strings.Builder
	inspect(&sb, v, 1)
	return sb.String()
}

const maxInspectDepth = 4

func inspect(sb *strings.Builder, v Value, depth int) {
	switch val := v.(type) {
	case String:
		if depth == 0 {
			sb.WriteString(val.Value)
			return
		}
		sb.WriteString(quoteSingle(val.Value))
	case *Array:
		inspectList(sb, "", val.Items, depth)
	case *Arguments:
		inspectList(sb, "[Arguments] ", val.values, depth)
	case *Object:
		if len(val.Pairs) == 0 {
			sb.WriteString("{}")
			return
		}
		if depth >= maxInspectDepth {
			sb.WriteString("[Object]")
			return
		}
		sb.WriteString("{ ")
		for i, kv := range val.Pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(inspectKey(kv.Key))
			sb.WriteString(": ")
			inspect(sb, kv.Value, depth+1)
		}
		sb.WriteString(" }")
	case *Function:
		if val.name == "" {
			sb.WriteString("[Function (anonymous)]")
			return
		}
		sb.WriteString("[Function: " + val.name + "]")
	case *NativeFunction:
		sb.WriteString("[Function: " + val.FnName + "]")
	default:
		sb.WriteString(ToString(v))
	}
}

func inspectList(sb *strings.Builder, prefix string, items []Value, depth int) {
	sb.WriteString(prefix)
	if len(items) == 0 {
		sb.WriteString("[]")
		return
	}
	if depth >= maxInspectDepth {
		sb.WriteString("[Array]")
		return
	}
	sb.WriteString("[ ")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		inspect(sb, item, depth+1)
	}
	sb.WriteString(" ]")
}

func inspectKey(key string) string {
	for i, r := range key {
		isLetter := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return quoteSingle(key)
		}
	}
	if key == "" {
		return "''"
	}
	return key
}

func quoteSingle(s string) string {
	q := strconv.Quote(s)
	body := strings.ReplaceAll(q[1:len(q)-1], `\"`, `"`)
	return "'" + strings.ReplaceAll(body, "'", `\'`) + "'"
}
