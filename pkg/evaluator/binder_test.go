package evaluator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func numbers(ns ...float64) []Value {
	out := make([]Value, len(ns))
	for i, n := range ns {
		out[i] = NewNumber(n)
	}
	return out
}

func TestBindParamsExactArity(t *testing.T) {
	bindings := BindParams([]string{"a", "b"}, numbers(1, 2))
	require.Equal(t, []Binding{
		{Name: "a", Value: NewNumber(1)},
		{Name: "b", Value: NewNumber(2)},
	}, bindings)
}

func TestBindParamsMissingArgumentsAreUndefined(t *testing.T) {
	bindings := BindParams([]string{"a", "b", "c"}, numbers(1))
	require.Len(t, bindings, 3)
	require.Equal(t, NewNumber(1), bindings[0].Value)
	require.Equal(t, Undefined{}, bindings[1].Value)
	require.Equal(t, Undefined{}, bindings[2].Value)
}

func TestBindParamsSurplusArgumentsHaveNoName(t *testing.T) {
	bindings := BindParams([]string{"a"}, numbers(1, 2, 3, 4))
	require.Equal(t, []Binding{{Name: "a", Value: NewNumber(1)}}, bindings)
}

func TestBindParamsNoParams(t *testing.T) {
	require.Empty(t, BindParams(nil, numbers(1, 2, 3)))
	require.Empty(t, BindParams(nil, nil))
}

func TestBindParamsDuplicateNameLastWins(t *testing.T) {
	bindings := BindParams([]string{"a", "b", "a"}, numbers(1, 2, 3))
	require.Equal(t, []Binding{
		{Name: "a", Value: NewNumber(3)},
		{Name: "b", Value: NewNumber(2)},
	}, bindings)

	// The later position wins even when it has no argument.
	bindings = BindParams([]string{"a", "a"}, numbers(1))
	require.Equal(t, []Binding{{Name: "a", Value: Undefined{}}}, bindings)
}

func TestBindParamsAllArities(t *testing.T) {
	for m := 0; m <= 4; m++ {
		for n := 0; n <= 4; n++ {
			t.Run(fmt.Sprintf("m=%d,n=%d", m, n), func(t *testing.T) {
				params := make([]string, m)
				for i := range params {
					params[i] = fmt.Sprintf("p%d", i)
				}
				args := make([]Value, n)
				for i := range args {
					args[i] = NewNumber(float64(i + 10))
				}

				bindings := BindParams(params, args)
				require.Len(t, bindings, m)
				for i, b := range bindings {
					require.Equal(t, params[i], b.Name)
					if i < n {
						require.Equal(t, args[i], b.Value)
					} else {
						require.Equal(t, Undefined{}, b.Value)
					}
				}
			})
		}
	}
}
