package main

import (
	"testing"

	"github.com/gomlx/extraops/graph/graphtest"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func runProgram(t *testing.T, src string) map[string][]float64 {
	t.Helper()
	program, err := ParseProgram([]byte(src), "test.hcl")
	require.NoError(t, err)
	results, err := program.Run(graphtest.BuildTestBackend())
	require.NoError(t, err)
	values := make(map[string][]float64, len(results))
	for _, result := range results {
		values[result.Name] = result.Tensor.Float64s()
	}
	return values
}

func TestLoadProgram(t *testing.T) {
	program, err := LoadProgram("testdata/cumsum.hcl")
	require.NoError(t, err)
	require.Len(t, program.Inputs, 1)
	require.Len(t, program.Ops, 2)
	gradSpec, err := program.GradSpec()
	require.NoError(t, err)
	assert.Equal(t, &GradSpec{Of: "cs", Wrt: []string{"x"}}, gradSpec)

	results, err := program.Run(graphtest.BuildTestBackend())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "cs", results[0].Name)
	assert.Equal(t, []float64{1, 3, 6}, results[0].Tensor.Value())
	assert.Equal(t, []float64{2, 3}, results[1].Tensor.Value())
	assert.Equal(t, "dcs/dx", results[2].Name)
	assert.Equal(t, []float64{3, 2, 1}, results[2].Tensor.Value())
}

func TestRunExtraOps(t *testing.T) {
	values := runProgram(t, `
input "sorted" {
  dtype = "int64"
  value = [1, 2, 2, 3]
}
input "v" {
  dtype = "Int64"
  value = [2, 0]
}
input "ids" {
  dtype = "int32"
  value = [0, 2, 2]
}
input "w" {
  dtype = "float64"
  value = [0.5, 1, 1]
}
input "a" {
  dtype = "float32"
  dims  = [2, 2]
  value = [0, 1, 2, 3]
}
input "unused" {
  dtype = "float32"
  value = 1
}
op "right" {
  kind   = "searchsorted"
  inputs = ["sorted", "v"]
  side   = "right"
}
op "counts" {
  kind      = "bincount"
  inputs    = ["ids"]
  minlength = 5
}
op "weighted" {
  kind   = "bincount"
  inputs = ["ids", "w"]
}
op "five" {
  kind  = "scalar"
  dtype = "int64"
  value = 5
}
op "window" {
  kind   = "bartlett"
  inputs = ["five"]
}
op "seven" {
  kind  = "scalar"
  dtype = "float32"
  value = 7
}
op "filled" {
  kind   = "fill_diagonal"
  inputs = ["a", "seven"]
}
op "two" {
  kind  = "scalar"
  dtype = "int32"
  value = 2
}
op "repeated" {
  kind   = "repeat"
  inputs = ["w", "two"]
}
op "prod" {
  kind   = "cumprod"
  inputs = ["w"]
}
op "total" {
  kind   = "reduce_sum"
  inputs = ["prod"]
}
output = ["right", "counts", "weighted", "window", "filled", "repeated", "total"]
`)
	assert.Equal(t, []float64{3, 0}, values["right"])
	assert.Equal(t, []float64{1, 0, 2, 0, 0}, values["counts"])
	assert.Equal(t, []float64{0.5, 0, 2}, values["weighted"])
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0}, values["window"], 1e-9)
	assert.Equal(t, []float64{7, 1, 2, 7}, values["filled"])
	assert.Equal(t, []float64{0.5, 0.5, 1, 1, 1, 1}, values["repeated"])
	assert.InDeltaSlice(t, []float64{1.5}, values["total"], 1e-9)
	assert.NotContains(t, values, "unused")
}

func TestRunStandardOps(t *testing.T) {
	values := runProgram(t, `
input "x" {
  dtype = "float64"
  value = [[1, 2], [3, 4]]
}
input "y" {
  dtype = "float64"
  value = [[1, 1], [1, 1]]
}
op "sum" {
  kind   = "add"
  inputs = ["x", "y"]
}
op "difference" {
  kind   = "sub"
  inputs = ["x", "y"]
}
op "product" {
  kind   = "mul"
  inputs = ["x", "difference"]
}
op "rows" {
  kind   = "reduce_sum"
  inputs = ["product"]
  axis   = 1
}
op "flat" {
  kind   = "cumsum"
  inputs = ["x"]
}
op "second" {
  kind   = "diff"
  inputs = ["x"]
  n      = 1
  axis   = 0
}
output = ["sum", "rows", "flat", "second"]
grad   = { of = "product", wrt = ["x", "y"] }
`)
	assert.Equal(t, []float64{2, 3, 4, 5}, values["sum"])
	assert.Equal(t, []float64{2, 18}, values["rows"])
	assert.Equal(t, []float64{1, 3, 6, 10}, values["flat"])
	assert.Equal(t, []float64{2, 2}, values["second"])
	// d(x*(x-y))/dx = 2x-y, d(x*(x-y))/dy = -x.
	assert.Equal(t, []float64{1, 3, 5, 7}, values["dproduct/dx"])
	assert.Equal(t, []float64{-1, -2, -3, -4}, values["dproduct/dy"])
}

func TestProgramErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, tc := range []struct {
		name, src string
	}{
		{"no outputs", `output = []`},
		{"unknown kind", `
input "x" {
  dtype = "float64"
  value = [1]
}
op "y" {
  kind   = "fft"
  inputs = ["x"]
}
output = ["y"]`},
		{"unknown input", `
op "y" {
  kind   = "cumsum"
  inputs = ["x"]
}
output = ["y"]`},
		{"unknown output", `
input "x" {
  dtype = "float64"
  value = [1]
}
output = ["y"]`},
		{"duplicate name", `
input "x" {
  dtype = "float64"
  value = [1]
}
op "x" {
  kind   = "cumsum"
  inputs = ["x"]
}
output = ["x"]`},
		{"wrong number of inputs", `
input "x" {
  dtype = "float64"
  value = [1]
}
op "y" {
  kind   = "add"
  inputs = ["x"]
}
output = ["y"]`},
		{"ragged value", `
input "x" {
  dtype = "float64"
  value = [[1, 2], [3]]
}
output = ["x"]`},
		{"bad dims", `
input "x" {
  dtype = "float64"
  dims  = [2, 2]
  value = [1, 2, 3]
}
output = ["x"]`},
		{"unknown dtype", `
input "x" {
  dtype = "float128"
  value = [1]
}
output = ["x"]`},
		{"invalid side", `
input "x" {
  dtype = "float64"
  value = [1]
}
op "y" {
  kind   = "searchsorted"
  inputs = ["x", "x"]
  side   = "middle"
}
output = ["y"]`},
		{"construction error", `
input "x" {
  dtype = "float64"
  value = [1]
}
op "y" {
  kind   = "bartlett"
  inputs = ["x"]
}
output = ["y"]`},
		{"bad grad", `
input "x" {
  dtype = "float64"
  value = [1]
}
output = ["x"]
grad   = "x"`},
		{"unknown grad node", `
input "x" {
  dtype = "float64"
  value = [1]
}
output = ["x"]
grad   = { of = "x", wrt = ["z"] }`},
		{"execution error", `
input "x" {
  dtype = "int32"
  value = [0, -1]
}
op "y" {
  kind   = "bincount"
  inputs = ["x"]
}
output = ["y"]`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			program, err := ParseProgram([]byte(tc.src), "test.hcl")
			if err != nil {
				return
			}
			_, err = program.Run(backend)
			require.Error(t, err)
			t.Logf("error: %v", err)
		})
	}

	// Invalid HCL is a parsing error.
	_, err := ParseProgram([]byte(`input "x" {`), "test.hcl")
	require.Error(t, err)
	_, err = ParseProgram([]byte(`output = []`), "test.hcl")
	require.Error(t, err)
}

func TestFlattenValue(t *testing.T) {
	flat, dims, err := flattenValue(cty.NumberIntVal(3))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, flat)
	assert.Empty(t, dims)

	flat, dims, err = flattenValue(cty.TupleVal([]cty.Value{
		cty.ListVal([]cty.Value{cty.NumberFloatVal(0.5), cty.NumberIntVal(1), cty.NumberIntVal(2)}),
		cty.ListVal([]cty.Value{cty.NumberIntVal(3), cty.NumberIntVal(4), cty.NumberIntVal(5)}),
	}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1, 2, 3, 4, 5}, flat)
	assert.Equal(t, []int{2, 3}, dims)

	flat, dims, err = flattenValue(cty.TupleVal([]cty.Value{cty.True, cty.False}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, flat)
	assert.Equal(t, []int{2}, dims)

	flat, dims, err = flattenValue(cty.EmptyTupleVal)
	require.NoError(t, err)
	assert.Empty(t, flat)
	assert.Equal(t, []int{0}, dims)

	_, _, err = flattenValue(cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.TupleVal([]cty.Value{cty.NumberIntVal(2)})}))
	require.Error(t, err)
	_, _, err = flattenValue(cty.StringVal("a"))
	require.Error(t, err)
	_, _, err = flattenValue(cty.NullVal(cty.Number))
	require.Error(t, err)
}

func TestParseDType(t *testing.T) {
	for name, want := range map[string]dtypes.DType{
		"float32": dtypes.Float32,
		"Float64": dtypes.Float64,
		"INT8":    dtypes.Int8,
		"uint64":  dtypes.Uint64,
		"bool":    dtypes.Bool,
	} {
		dtype, err := parseDType(name)
		require.NoError(t, err)
		assert.Equal(t, want, dtype)
	}
	_, err := parseDType("string")
	require.Error(t, err)
}
