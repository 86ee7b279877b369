package stdlib

import (
	"context"
	"strconv"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

func newObjectNamespace() *evaluator.Object {
	return namespace(
		native("keys", 1, stdlibKeys),
		native("values", 1, stdlibValues),
		native("entries", 1, stdlibEntries),
	)
}

// ownEntries lists the enumerable properties of v in order.
func ownEntries(call *evaluator.NativeCall, v evaluator.Value) ([]evaluator.KeyValue, error) {
	switch val := v.(type) {
	case evaluator.Undefined, evaluator.Null:
		return nil, typeErr(call, "Cannot convert undefined or null to object")
	case *evaluator.Object:
		out := make([]evaluator.KeyValue, len(val.Pairs))
		copy(out, val.Pairs)
		return out, nil
	case *evaluator.Array:
		return indexed(val.Items), nil
	case *evaluator.Arguments:
		return indexed(val.Values()), nil
	case evaluator.String:
		var items []evaluator.Value
		for _, r := range val.Value {
			items = append(items, evaluator.NewString(string(r)))
		}
		return indexed(items), nil
	}
	return nil, nil
}

func indexed(items []evaluator.Value) []evaluator.KeyValue {
	out := make([]evaluator.KeyValue, len(items))
	for i, item := range items {
		out[i] = evaluator.KeyValue{Key: strconv.Itoa(i), Value: item}
	}
	return out
}

// Object.keys(value) → array of strings
func stdlibKeys(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	entries, err := ownEntries(call, call.Args.Get(0))
	if err != nil {
		return nil, err
	}
	items := make([]evaluator.Value, len(entries))
	for i, kv := range entries {
		items[i] = evaluator.NewString(kv.Key)
	}
	return evaluator.NewArray(items), nil
}

// Object.values(value) → array
func stdlibValues(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	entries, err := ownEntries(call, call.Args.Get(0))
	if err != nil {
		return nil, err
	}
	items := make([]evaluator.Value, len(entries))
	for i, kv := range entries {
		items[i] = kv.Value
	}
	return evaluator.NewArray(items), nil
}

// Object.entries(value) → array of [key, value] pairs
func stdlibEntries(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	entries, err := ownEntries(call, call.Args.Get(0))
	if err != nil {
		return nil, err
	}
	items := make([]evaluator.Value, len(entries))
	for i, kv := range entries {
		items[i] = evaluator.NewArray([]evaluator.Value{evaluator.NewString(kv.Key), kv.Value})
	}
	return evaluator.NewArray(items), nil
}
