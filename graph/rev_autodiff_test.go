/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package graph_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gomlx/extraops/backends"
	. "github.com/gomlx/extraops/graph"
	"github.com/gomlx/extraops/graph/graphtest"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradientStandardOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Gradient: Add/Mul/Div with scalars", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, []float32{1, 2})
		b := Const(g, float32(4))
		output := ReduceAllSum(Div(Mul(Add(a, b), a), b))
		inputs = []*Node{a, b}
		outputs = append([]*Node{output}, Gradient(output, a, b)...)
		return
	}, []any{
		float32((5*1 + 6*2) / 4.0),
		// d/da (a+b)*a/b = (2a+b)/b
		[]float32{6.0 / 4, 8.0 / 4},
		// d/db sum((a+b)*a/b) = sum(a/b - (a+b)*a/b^2)
		float32(1.0/4 - 5.0/16 + 2.0/4 - 12.0/16),
	}, 1e-5)

	graphtest.RunTestGraphFn(t, "Gradient: Maximum and Where", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, []float64{1, 5, 3})
		b := Const(g, []float64{2, 4, 3})
		output := ReduceAllSum(Add(Maximum(a, b), Where(LessThan(a, b), a, ScalarLike(a, 0))))
		inputs = []*Node{a, b}
		outputs = Gradient(output, a, b)
		return
	}, []any{
		[]float64{1, 1, 1},
		[]float64{1, 0, 0},
	}, 0)
}

func TestGradientCumsum(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Gradient: Cumsum", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 2, 3})
		m := Const(g, [][]float32{{1, 2}, {3, 4}})
		weights := Const(g, [][]float32{{1, 10}, {100, 1000}})
		output := Add(
			ReduceAllSum(Cumsum(x, axisNone)),
			ConvertDType(ReduceAllSum(Mul(Cumsum(m, axisAt(0)), weights)), dtypes.Float64))
		flattened := ReduceAllSum(Mul(Cumsum(m, axisNone), Const(g, []float32{1, 2, 3, 4})))
		inputs = []*Node{x, m}
		outputs = append(Gradient(output, x, m), Gradient(flattened, m)...)
		return
	}, []any{
		[]float64{3, 2, 1},
		[][]float32{{101, 1010}, {100, 1000}},
		// d/dm[i] sum_k k*cumsum[k] = sum_{k>=i} (k+1)
		[][]float32{{10, 9}, {7, 4}},
	}, 0)
}

// sumOfCumprod returns sum(cumprod(x)).
func sumOfCumprod(x *Node) *Node {
	return ReduceAllSum(Cumprod(x, axisNone))
}

func TestGradientCumprod(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "cumprod_gradient")
	x := g.Parameter("x", MakeType(dtypes.Float64, UnknownDim))
	output := sumOfCumprod(x)
	grad := Gradient(output, x)[0]
	exec := NewExec(output, grad)

	values := []float64{2, 3, 4}
	results, err := exec.Call(values)
	require.NoError(t, err)
	assert.Equal(t, 32.0, results[0].Value())
	analytic := results[1].Value().([]float64)
	assert.Equal(t, []float64{16, 10, 6}, analytic)

	// Central finite differences.
	const epsilon = 1e-6
	numeric := make([]float64, len(values))
	for ii := range values {
		plus, minus := slices.Clone(values), slices.Clone(values)
		plus[ii] += epsilon
		minus[ii] -= epsilon
		plusResults, err := exec.Call(plus)
		require.NoError(t, err)
		minusResults, err := exec.Call(minus)
		require.NoError(t, err)
		numeric[ii] = (plusResults[0].Value().(float64) - minusResults[0].Value().(float64)) / (2 * epsilon)
	}
	fmt.Printf("\tanalytic=%v, numeric=%v\n", analytic, numeric)
	if diff := cmp.Diff(analytic, numeric, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("gradient of sum(cumprod(x)) doesn't match finite differences (-analytic +numeric):\n%s", diff)
	}

	// Random inputs away from zero, with a matrix and an axis.
	g = NewGraph(backend, "cumprod_gradient_axis")
	m := g.Parameter("m", MakeType(dtypes.Float64, 2, 3))
	output = ReduceAllSum(Cumprod(m, axisAt(1)))
	exec = NewExec(output, Gradient(output, m)[0])
	rng := rand.New(rand.NewPCG(42, 7))
	matrix := make([][]float64, 2)
	for row := range matrix {
		matrix[row] = make([]float64, 3)
		for col := range matrix[row] {
			matrix[row][col] = 0.5 + rng.Float64()
		}
	}
	results, err = exec.Call(matrix)
	require.NoError(t, err)
	got := results[1].Value().([][]float64)
	for row := range matrix {
		a, b, c := matrix[row][0], matrix[row][1], matrix[row][2]
		want := []float64{1 + b + b*c, a + a*c, a * b}
		if diff := cmp.Diff(want, got[row], cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("row %d (-want +got):\n%s", row, diff)
		}
	}
}

func TestGradientDiff(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Gradient: Diff", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 2, 4, 8})
		weights := Const(g, []float64{1, 2, 3})
		inputs = []*Node{x}
		outputs = []*Node{
			Gradient(ReduceAllSum(Diff(x, 1, 0)), x)[0],
			Gradient(ReduceAllSum(Diff(x, 2, 0)), x)[0],
			Gradient(ReduceAllSum(Mul(Diff(x, 1, 0), weights)), x)[0],
			Gradient(ReduceAllSum(Diff(x, 0, 0)), x)[0],
		}
		return
	}, []any{
		[]float64{-1, 0, 0, 1},
		[]float64{1, -1, -1, 1},
		[]float64{-1, -1, -1, 3},
		[]float64{1, 1, 1, 1},
	}, 0)

	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "diff_matrix")
	m := Const(g, [][]float64{{1, 2}, {3, 4}})
	requirePanicsWith(t, ErrGradientNotImplemented, func() { Gradient(ReduceAllSum(Diff(m, 1, 0)), m) })
}

func TestGradientRepeat(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Gradient: Repeat", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{1, 2, 3})
		m := Const(g, [][]float32{{1, 2}, {3, 4}})
		flat := Repeat(x, Const(g, int64(2)), axisNone)
		onAxis := Repeat(m, Const(g, int32(2)), axisAt(-1))
		onFirstAxis := Repeat(m, Const(g, uint8(3)), axisAt(0))
		inputs = []*Node{x, m}
		outputs = []*Node{
			Gradient(ReduceAllSum(Mul(flat, Const(g, []float32{1, 2, 3, 4, 5, 6}))), x)[0],
			Gradient(ReduceAllSum(Mul(onAxis, Const(g, [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}))), m)[0],
			Gradient(ReduceAllSum(onFirstAxis), m)[0],
			Gradient(ReduceAllSum(Repeat(m, Const(g, int64(1)), axisAt(0))), m)[0],
		}
		return
	}, []any{
		[]float32{3, 7, 11},
		[][]float32{{3, 7}, {11, 15}},
		[][]float32{{3, 3}, {3, 3}},
		[][]float32{{1, 1}, {1, 1}},
	}, 0)

	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "repeat_vector")
	x := Const(g, []float64{1, 2})
	requirePanicsWith(t, ErrGradientNotImplemented, func() {
		Gradient(ReduceAllSum(Repeat(x, Const(g, []int64{1, 2}), axisAt(0))), x)
	})
}

func TestGradientFillDiagonal(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Gradient: FillDiagonal", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
		val := Const(g, 5.0)
		weights := Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
		output := ReduceAllSum(Mul(FillDiagonal(a, val), weights))
		inputs = []*Node{a, val}
		outputs = append([]*Node{output}, Gradient(output, a, val)...)
		return
	}, []any{
		75.0,
		[][]float64{{0, 2, 3}, {4, 0, 6}, {7, 8, 0}},
		15.0,
	}, 0)

	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "fill_diagonal_markers")
	cube := Const(g, [][][]float64{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}})
	requirePanicsWith(t, ErrGradientNotImplemented, func() {
		Gradient(ReduceAllSum(FillDiagonal(cube, Const(g, 0.0))), cube)
	})
	matrix := Const(g, [][]float64{{1, 2}, {3, 4}})
	filled := FillDiagonal(ConvertDType(matrix, dtypes.Complex128), Const(g, complex(1.0, 1.0)))
	requirePanicsWith(t, ErrGradientUndefined, func() {
		Gradient(ReduceAllSum(ConvertDType(filled, dtypes.Float64)), matrix)
	})
}

func TestGradientBinCount(t *testing.T) {
	if backends.HostPointerBits != 64 {
		t.Skip("counts dtype depends on the platform")
	}
	graphtest.RunTestGraphFn(t, "Gradient: BinCount counts", func(g *Graph) (inputs, outputs []*Node) {
		y := Const(g, []float64{0, 1, 1, 2})
		counts := BinCount(ConvertDType(y, dtypes.Int64), nil, 0)
		output := Add(ReduceAllSum(ConvertDType(counts, dtypes.Float64)), ReduceAllSum(y))
		inputs = []*Node{y}
		outputs = Gradient(output, y, counts)
		return
	}, []any{
		[]float64{1, 1, 1, 1},
		[]int64{0, 0, 0},
	}, 0)

	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "bincount_weights")
	x := Const(g, []int32{0, 1, 1})
	weights := Const(g, []float64{0.5, 1, 2})
	requirePanicsWith(t, ErrGradientNotImplemented, func() {
		Gradient(ReduceAllSum(BinCount(x, weights, 0)), weights)
	})
}

func TestGradientMarkers(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	t.Run("Searchsorted", func(t *testing.T) {
		g := NewGraph(backend, "searchsorted")
		x := Const(g, []float64{1, 2, 3})
		v := Const(g, []float64{1.5, 2.5})
		indices := Searchsorted(x, v, backends.SideLeft, nil)
		output := ReduceAllSum(ConvertDType(indices, dtypes.Float64))
		requirePanicsWith(t, ErrGradientNotImplemented, func() { Gradient(output, v) })
		requirePanicsWith(t, ErrGradientNotImplemented, func() { Gradient(output, x) })

		// The sorter is an integer permutation: its gradient is undefined.
		s := Const(g, []float64{0, 1, 2})
		sorted := Searchsorted(x, v, backends.SideRight, ConvertDType(s, dtypes.Int32))
		output = ReduceAllSum(ConvertDType(sorted, dtypes.Float64))
		requirePanicsWith(t, ErrGradientUndefined, func() { Gradient(output, s) })
	})

	t.Run("Bartlett", func(t *testing.T) {
		g := NewGraph(backend, "bartlett")
		length := Const(g, 4.0)
		output := ReduceAllSum(Bartlett(ConvertDType(length, dtypes.Int64)))
		requirePanicsWith(t, ErrGradientUndefined, func() { Gradient(output, length) })
	})

	// Markers on paths irrelevant to the requested gradients are ignored.
	t.Run("IrrelevantPaths", func(t *testing.T) {
		g := NewGraph(backend, "irrelevant")
		x := Const(g, []float64{1, 2, 3})
		v := Const(g, []float64{1.5, 2.5})
		w := Const(g, [][]float64{{1, 2}, {3, 4}})
		output := Add(
			Add(ReduceAllSum(ConvertDType(Searchsorted(x, v, backends.SideLeft, nil), dtypes.Float64)),
				ReduceAllSum(Diff(w, 1, 1))),
			ReduceAllSum(Bartlett(Const(g, int64(3)))))
		other := Const(g, 1.0)
		var grads []*Node
		require.NotPanics(t, func() { grads = Gradient(Add(output, Mul(other, ScalarLike(other, 3))), other) })
		results, err := NewExec(grads...).Call()
		require.NoError(t, err)
		assert.Equal(t, 3.0, results[0].Value())

		// Nodes without a path from the output get zeros.
		unrelated := Const(g, []float32{1, 2})
		grads = Gradient(output, unrelated)
		results, err = NewExec(grads...).Call()
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0}, results[0].Value())
	})

	t.Run("OutputMustBeRealScalar", func(t *testing.T) {
		g := NewGraph(backend, "jacobian")
		x := Const(g, []float64{1, 2})
		require.Panics(t, func() { Gradient(Cumsum(x, axisNone), x) })
		require.Panics(t, func() { Gradient(ReduceAllSum(Const(g, []int32{1})), x) })
	})
}

func TestHasGradient(t *testing.T) {
	assert.True(t, HasGradient(backends.OpTypeCumsum))
	assert.True(t, HasGradient(backends.OpTypeRepeat))
	assert.False(t, HasGradient(backends.OpTypeExtractDiagonal))
}
