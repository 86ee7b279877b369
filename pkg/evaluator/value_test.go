package evaluator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected bool
	}{
		{evaluator.NewUndefined(), false},
		{evaluator.NewNull(), false},
		{evaluator.NewBool(false), false},
		{evaluator.NewBool(true), true},
		{evaluator.NewNumber(0), false},
		{evaluator.NewNumber(math.NaN()), false},
		{evaluator.NewNumber(1), true},
		{evaluator.NewNumber(-1), true},
		{evaluator.NewString(""), false},
		{evaluator.NewString("0"), true},
		{evaluator.NewArray(nil), true},
		{evaluator.NewObject(nil), true},
		{evaluator.NewArguments(nil), true},
	}

	for i, tt := range tests {
		if got := evaluator.Truthy(tt.value); got != tt.expected {
			t.Errorf("test %d: Truthy(%v) = %v, want %v", i, tt.value, got, tt.expected)
		}
	}
}

func TestTypeOf(t *testing.T) {
	require.Equal(t, "undefined", evaluator.TypeOf(evaluator.NewUndefined()))
	require.Equal(t, "object", evaluator.TypeOf(evaluator.NewNull()))
	require.Equal(t, "boolean", evaluator.TypeOf(evaluator.NewBool(true)))
	require.Equal(t, "number", evaluator.TypeOf(evaluator.NewNumber(1)))
	require.Equal(t, "string", evaluator.TypeOf(evaluator.NewString("")))
	require.Equal(t, "object", evaluator.TypeOf(evaluator.NewArray(nil)))
	require.Equal(t, "object", evaluator.TypeOf(evaluator.NewArguments(nil)))
	require.Equal(t, "function", evaluator.TypeOf(evaluator.NewNativeFunction("f", 0, nil)))
}

func TestObjectPreservesOrder(t *testing.T) {
	obj := evaluator.NewObject([]evaluator.KeyValue{
		{Key: "z", Value: evaluator.NewNumber(1)},
		{Key: "a", Value: evaluator.NewNumber(2)},
	})
	obj.Set("m", evaluator.NewNumber(3))
	obj.Set("z", evaluator.NewNumber(4))

	require.Equal(t, []string{"z", "a", "m"}, obj.Keys())
	v, ok := obj.Get("z")
	require.True(t, ok)
	require.Equal(t, evaluator.NewNumber(4), v)
	_, ok = obj.Get("missing")
	require.False(t, ok)
}

func TestToString(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected string
	}{
		{evaluator.NewUndefined(), "undefined"},
		{evaluator.NewNull(), "null"},
		{evaluator.NewBool(true), "true"},
		{evaluator.NewNumber(42), "42"},
		{evaluator.NewNumber(-0.5), "-0.5"},
		{evaluator.NewNumber(1e21), "1e+21"},
		{evaluator.NewNumber(1.5e-7), "1.5e-7"},
		{evaluator.NewNumber(math.NaN()), "NaN"},
		{evaluator.NewNumber(math.Inf(-1)), "-Infinity"},
		{evaluator.NewString("s"), "s"},
		{evaluator.NewArray([]evaluator.Value{evaluator.NewNumber(1), evaluator.NewNull(), evaluator.NewString("x")}), "1,,x"},
		{evaluator.NewObject(nil), "[object Object]"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, evaluator.ToString(tt.value))
	}
}

func TestToNumber(t *testing.T) {
	require.Equal(t, float64(0), evaluator.ToNumber(evaluator.NewNull()))
	require.Equal(t, float64(1), evaluator.ToNumber(evaluator.NewBool(true)))
	require.Equal(t, float64(12), evaluator.ToNumber(evaluator.NewString(" 12 ")))
	require.Equal(t, float64(255), evaluator.ToNumber(evaluator.NewString("0xff")))
	require.Equal(t, float64(0), evaluator.ToNumber(evaluator.NewString("")))
	require.True(t, math.IsNaN(evaluator.ToNumber(evaluator.NewString("12px"))))
	require.True(t, math.IsNaN(evaluator.ToNumber(evaluator.NewString("inf"))))
	require.True(t, math.IsNaN(evaluator.ToNumber(evaluator.NewUndefined())))
	require.Equal(t, float64(5), evaluator.ToNumber(evaluator.NewArray([]evaluator.Value{evaluator.NewNumber(5)})))
}

func TestEquality(t *testing.T) {
	one := evaluator.NewNumber(1)
	arr := evaluator.NewArray(nil)

	require.True(t, evaluator.StrictEquals(one, evaluator.NewNumber(1)))
	require.False(t, evaluator.StrictEquals(one, evaluator.NewString("1")))
	require.False(t, evaluator.StrictEquals(evaluator.NewNumber(math.NaN()), evaluator.NewNumber(math.NaN())))
	require.True(t, evaluator.StrictEquals(arr, arr))
	require.False(t, evaluator.StrictEquals(arr, evaluator.NewArray(nil)))
	require.True(t, evaluator.StrictEquals(evaluator.NewUndefined(), evaluator.NewUndefined()))
	require.False(t, evaluator.StrictEquals(evaluator.NewUndefined(), evaluator.NewNull()))

	require.True(t, evaluator.LooseEquals(one, evaluator.NewString("1")))
	require.True(t, evaluator.LooseEquals(one, evaluator.NewBool(true)))
	require.True(t, evaluator.LooseEquals(evaluator.NewUndefined(), evaluator.NewNull()))
	require.False(t, evaluator.LooseEquals(evaluator.NewNull(), evaluator.NewNumber(0)))
	require.True(t, evaluator.LooseEquals(evaluator.NewArray([]evaluator.Value{one}), evaluator.NewString("1")))
	require.False(t, evaluator.LooseEquals(arr, evaluator.NewArray(nil)))
}

func TestAdd(t *testing.T) {
	require.Equal(t, evaluator.NewNumber(3), evaluator.Add(evaluator.NewNumber(1), evaluator.NewNumber(2)))
	require.Equal(t, evaluator.NewString("12"), evaluator.Add(evaluator.NewNumber(1), evaluator.NewString("2")))
	require.Equal(t, evaluator.NewString("a1,2"), evaluator.Add(evaluator.NewString("a"),
		evaluator.NewArray([]evaluator.Value{evaluator.NewNumber(1), evaluator.NewNumber(2)})))
	require.Equal(t, evaluator.NewNumber(1), evaluator.Add(evaluator.NewBool(true), evaluator.NewNull()))
}

func TestValueToJSON(t *testing.T) {
	obj := evaluator.NewObject([]evaluator.KeyValue{
		{Key: "b", Value: evaluator.NewNumber(1)},
		{Key: "a", Value: evaluator.NewArray([]evaluator.Value{evaluator.NewUndefined(), evaluator.NewNumber(1.5)})},
		{Key: "skip", Value: evaluator.NewUndefined()},
		{Key: "s", Value: evaluator.NewString("x")},
	})
	require.Equal(t, `{"b":1,"a":[null,1.5],"s":"x"}`, evaluator.ValueToJSONString(obj))
	require.Equal(t, `{"0":1,"1":2}`, evaluator.ValueToJSONString(evaluator.NewArguments([]evaluator.Value{evaluator.NewNumber(1), evaluator.NewNumber(2)})))
}

func TestSelfContainingValues(t *testing.T) {
	arr := evaluator.NewArray([]evaluator.Value{evaluator.NewNumber(1)})
	arr.Items = append(arr.Items, arr)
	require.Equal(t, "1,", evaluator.ToString(arr))
	require.True(t, math.IsNaN(evaluator.ToNumber(arr)))
	require.Equal(t, evaluator.NewString("1,x"), evaluator.Add(arr, evaluator.NewString("x")))

	_, err := evaluator.ValueToJSON(arr)
	require.ErrorIs(t, err, evaluator.ErrCircularJSON)

	obj := evaluator.NewObject(nil)
	obj.Set("self", obj)
	_, err = evaluator.ValueToJSON(obj)
	require.ErrorIs(t, err, evaluator.ErrCircularJSON)
	require.Equal(t, "null", evaluator.ValueToJSONString(obj))

	// Shared references that do not form a cycle are fine.
	inner := evaluator.NewArray([]evaluator.Value{evaluator.NewNumber(2)})
	shared := evaluator.NewArray([]evaluator.Value{inner, inner})
	require.Equal(t, "2,2", evaluator.ToString(shared))
	require.Equal(t, `[[2],[2]]`, evaluator.ValueToJSONString(shared))
}

func TestInspect(t *testing.T) {
	nested := evaluator.NewObject([]evaluator.KeyValue{
		{Key: "a", Value: evaluator.NewNumber(1)},
		{Key: "b c", Value: evaluator.NewString("it's")},
		{Key: "d", Value: evaluator.NewArray([]evaluator.Value{evaluator.NewString("x"), evaluator.NewNull()})},
	})
	require.Equal(t, `{ a: 1, 'b c': 'it\'s', d: [ 'x', null ] }`, evaluator.Inspect(nested))
	require.Equal(t, "plain", evaluator.Inspect(evaluator.NewString("plain")))
	require.Equal(t, "'quoted'", evaluator.InspectQuoted(evaluator.NewString("quoted")))
	require.Equal(t, "[]", evaluator.Inspect(evaluator.NewArray(nil)))
	require.Equal(t, "{}", evaluator.Inspect(evaluator.NewObject(nil)))
	require.Equal(t, "[Arguments] [ 1 ]", evaluator.Inspect(evaluator.NewArguments([]evaluator.Value{evaluator.NewNumber(1)})))
	require.Equal(t, "[Function: log]", evaluator.Inspect(evaluator.NewNativeFunction("log", 0, nil)))
}
