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
	"testing"

	"github.com/gomlx/extraops/backends"
	. "github.com/gomlx/extraops/graph"
	"github.com/gomlx/extraops/graph/graphtest"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	axisNone = backends.AxisNone
	axisAt   = backends.AxisAt
)

func TestSearchsorted(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Searchsorted: sides", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 3, 3, 5})
		v := Const(g, [][]float64{{3, 0}, {4, 6}})
		inputs = []*Node{x, v}
		outputs = []*Node{
			Searchsorted(x, v, backends.SideLeft, nil),
			Searchsorted(x, v, backends.SideRight, nil),
		}
		return
	}, []any{
		[][]int64{{1, 0}, {3, 4}},
		[][]int64{{3, 0}, {3, 4}},
	}, 0)

	graphtest.RunTestGraphFn(t, "Searchsorted: sorter", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{5, 1, 3, 3})
		v := Const(g, []float32{3, 4})
		sorter := Const(g, []uint8{1, 2, 3, 0})
		inputs = []*Node{x, v, sorter}
		outputs = []*Node{
			Searchsorted(x, v, backends.SideLeft, sorter),
			Searchsorted(x, v, backends.SideRight, sorter),
		}
		return
	}, []any{
		[]int64{1, 3},
		[]int64{3, 3},
	}, 0)

	graphtest.RunTestGraphFn(t, "Searchsorted: upcast", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{1, 3, 5})
		v := Const(g, 2.5)
		w := Const(g, []float64{3, 3.5})
		inputs = []*Node{x, v, w}
		outputs = []*Node{
			Searchsorted(x, v, backends.SideLeft, nil),
			Searchsorted(x, w, backends.SideLeft, nil),
			Searchsorted(x, w, backends.SideRight, nil),
		}
		return
	}, []any{
		int64(1),
		[]int64{1, 2},
		[]int64{2, 2},
	}, 0)
}

func TestCumulative(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Cumsum", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{1, 2}, {3, 4}})
		inputs = []*Node{x}
		outputs = []*Node{
			Cumsum(x, axisAt(0)),
			Cumsum(x, axisAt(-1)),
			Cumsum(x, axisNone),
		}
		return
	}, []any{
		[][]float32{{1, 2}, {4, 6}},
		[][]float32{{1, 3}, {3, 7}},
		[]float32{1, 3, 6, 10},
	}, 0)

	graphtest.RunTestGraphFn(t, "Cumprod", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{1, 2, 3, 4})
		m := Const(g, [][]float64{{1, 2}, {3, 4}})
		inputs = []*Node{x, m}
		outputs = []*Node{
			Cumprod(x, axisNone),
			Cumprod(m, axisAt(0)),
		}
		return
	}, []any{
		[]int32{1, 2, 6, 24},
		[][]float64{{1, 2}, {3, 8}},
	}, 0)

	graphtest.RunTestGraphFn(t, "Cumsum then Diff", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int64{1, 2, 3})
		inputs = []*Node{x}
		cs := Cumsum(x, axisNone)
		outputs = []*Node{cs, Diff(cs, 1, 0)}
		return
	}, []any{
		[]int64{1, 3, 6},
		[]int64{2, 3},
	}, 0)
}

func TestDiff(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Diff", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 2, 4, 8})
		m := Const(g, [][]int32{{1, 2}, {4, 8}})
		inputs = []*Node{x, m}
		outputs = []*Node{
			Diff(x, 0, 0),
			Diff(x, 1, 0),
			Diff(x, 2, 0),
			Diff(Diff(x, 1, 0), 1, 0),
			Diff(x, 6, -1),
			Diff(m, 1, 0),
			Diff(m, 1, -1),
		}
		return
	}, []any{
		[]float64{1, 2, 4, 8},
		[]float64{1, 2, 4},
		[]float64{1, 2},
		[]float64{1, 2},
		shapes.Make(dtypes.Float64, 0),
		[][]int32{{3, 6}},
		[][]int32{{1}, {4}},
	}, 0)
}

func TestBinCount(t *testing.T) {
	if backends.HostPointerBits != 64 {
		t.Skip("counts dtype depends on the platform")
	}
	graphtest.RunTestGraphFn(t, "BinCount", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{0, 1, 1, 2, 2, 2})
		weights := Const(g, []float32{1, 1, 2, 1, 1, 1})
		inputs = []*Node{x, weights}
		outputs = []*Node{
			BinCount(x, nil, 0),
			BinCount(x, nil, 5),
			BinCount(x, weights, 0),
			BinCount(Const(g, []uint8{}), nil, 2),
		}
		return
	}, []any{
		[]int64{1, 2, 3},
		[]int64{1, 2, 3, 0, 0},
		[]float64{1, 3, 3},
		[]int64{0, 0},
	}, 0)
}

func TestRepeat(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Repeat", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{1, 2, 3})
		m := Const(g, [][]float32{{1, 2}, {3, 4}})
		inputs = []*Node{x, m}
		outputs = []*Node{
			Repeat(x, Const(g, int64(2)), axisNone),
			Repeat(x, Const(g, []int16{1, 0, 2}), axisAt(0)),
			Repeat(m, Const(g, int8(2)), axisAt(-1)),
			Repeat(m, Const(g, []int32{0, 3}), axisAt(0)),
			Repeat(m, Const(g, int32(1)), axisAt(1)),
			Repeat(m, Const(g, int32(0)), axisNone),
		}
		return
	}, []any{
		[]int32{1, 1, 2, 2, 3, 3},
		[]int32{1, 3, 3},
		[][]float32{{1, 1, 2, 2}, {3, 3, 4, 4}},
		[][]float32{{3, 4}, {3, 4}, {3, 4}},
		[][]float32{{1, 2}, {3, 4}},
		shapes.Make(dtypes.Float32, 0),
	}, 0)
}

func TestBartlett(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Bartlett", func(g *Graph) (inputs, outputs []*Node) {
		outputs = []*Node{
			Bartlett(Const(g, int64(0))),
			Bartlett(Const(g, int32(-3))),
			Bartlett(Const(g, uint8(1))),
			Bartlett(Const(g, int64(5))),
			Bartlett(Const(g, int16(4))),
		}
		return
	}, []any{
		shapes.Make(dtypes.Float64, 0),
		shapes.Make(dtypes.Float64, 0),
		[]float64{1},
		[]float64{0, 0.5, 1, 0.5, 0},
		[]float64{0, 2.0 / 3.0, 2.0 / 3.0, 0},
	}, 1e-9)
}

func TestFillDiagonal(t *testing.T) {
	graphtest.RunTestGraphFn(t, "FillDiagonal", func(g *Graph) (inputs, outputs []*Node) {
		wide := Const(g, [][]float64{{0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}})
		tall := Const(g, [][]int32{{0, 0}, {0, 0}, {0, 0}})
		cube := Const(g, [][][]float32{{{0, 0}, {0, 0}}, {{0, 0}, {0, 0}}})
		inputs = []*Node{wide, tall, cube}
		outputs = []*Node{
			FillDiagonal(wide, Const(g, int32(1))),
			FillDiagonal(tall, Const(g, int8(7))),
			FillDiagonal(cube, Const(g, float32(2))),
		}
		return
	}, []any{
		[][]float64{{1, 0, 0, 0, 0}, {0, 1, 0, 0, 0}, {0, 0, 1, 0, 0}},
		[][]int32{{7, 0}, {0, 7}, {0, 0}},
		[][][]float32{{{2, 0}, {0, 0}}, {{0, 0}, {0, 2}}},
	}, 0)
}

func TestExtraOpsTypes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "types")
	f32 := func(dims ...int) *Node { return g.Parameter("", MakeType(dtypes.Float32, dims...)) }
	rowVector := f32(1, 3)
	unknownVector := f32(UnknownDim)
	matrix := f32(2, 3)

	testCases := []struct {
		name string
		node *Node
		want string
	}{
		{"searchsorted follows v", Searchsorted(unknownVector, rowVector, backends.SideLeft, nil), "(Int64)[1b 3]"},
		{"cumsum axis", Cumsum(rowVector, axisAt(1)), "(Float32)[1b 3]"},
		{"cumsum flattened", Cumsum(matrix, axisNone), "(Float32)[6]"},
		{"cumsum flattened unknown", Cumsum(unknownVector, axisNone), "(Float32)[?]"},
		{"cumprod scalar flattened", Cumprod(f32(), axisNone), "(Float32)[1]"},
		{"diff", Diff(matrix, 1, -1), "(Float32)[2 2]"},
		{"diff clamps", Diff(matrix, 5, 0), "(Float32)[0 3]"},
		{"diff of broadcastable", Diff(rowVector, 1, 0), "(Float32)[0 3]"},
		{"diff n=0", Diff(rowVector, 0, 0), "(Float32)[1b 3]"},
		{"bincount", BinCount(Const(g, []int32{1, 2}), nil, 3), "(Int64)[?]"},
		{"bincount weights", BinCount(Const(g, []int32{1, 2}), Const(g, []float32{1, 2}), 0), "(Float64)[?]"},
		{"repeat scalar", Repeat(matrix, Const(g, int64(2)), axisAt(0)), "(Float32)[4 3]"},
		{"repeat once keeps type", Repeat(rowVector, Const(g, int64(1)), axisAt(0)), "(Float32)[1b 3]"},
		{"repeat once flattened", Repeat(rowVector, Const(g, int64(1)), axisNone), "(Float32)[3]"},
		{"repeat vector", Repeat(rowVector, Const(g, []int64{2}), axisAt(0)), "(Float32)[? 3]"},
		{"repeat unknown", Repeat(matrix, g.Parameter("r", MakeType(dtypes.Int32)), axisAt(1)), "(Float32)[2 ?]"},
		{"repeat flattened", Repeat(matrix, Const(g, uint8(3)), axisNone), "(Float32)[18]"},
		{"bartlett", Bartlett(Const(g, int64(5))), "(Float64)[5]"},
		{"bartlett negative", Bartlett(Const(g, int64(-1))), "(Float64)[0]"},
		{"bartlett unknown", Bartlett(g.Parameter("m", MakeType(dtypes.Int64))), "(Float64)[?]"},
		{"fill_diagonal", FillDiagonal(matrix, Const(g, float32(1))), "(Float32)[2 3]"},
		{"fill_diagonal cube", FillDiagonal(f32(UnknownDim, 2, 2), Const(g, int8(1))), "(Float32)[? 2 2]"},
	}
	for _, tc := range testCases {
		assert.Equalf(t, tc.want, tc.node.OutputType().String(), "%s: %s", tc.name, tc.node)
	}
}

func TestExtraOpsConstructionErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "errors")
	vector := Const(g, []float64{1, 2, 3})
	matrix := Const(g, [][]float64{{1, 2}, {3, 4}})
	ints := Const(g, []int32{1, 2, 3})

	testCases := []struct {
		name string
		fn   func()
		want error
	}{
		{"searchsorted matrix", func() { Searchsorted(matrix, vector, backends.SideLeft, nil) }, ErrShape},
		{"searchsorted complex", func() {
			Searchsorted(ConvertDType(vector, dtypes.Complex64), vector, backends.SideLeft, nil)
		}, ErrType},
		{"searchsorted bool", func() {
			Searchsorted(vector, Const(g, []bool{true}), backends.SideRight, nil)
		}, ErrType},
		{"searchsorted float sorter", func() { Searchsorted(vector, vector, backends.SideLeft, vector) }, ErrType},
		{"searchsorted sorter matrix", func() {
			Searchsorted(vector, vector, backends.SideLeft, Const(g, [][]int32{{0, 1, 2}}))
		}, ErrShape},
		{"searchsorted sorter length", func() {
			Searchsorted(vector, vector, backends.SideLeft, Const(g, []int32{0, 1}))
		}, ErrShape},
		{"cumsum axis", func() { Cumsum(matrix, axisAt(2)) }, ErrShape},
		{"cumsum bool", func() { Cumsum(Const(g, []bool{true}), axisNone) }, ErrType},
		{"diff scalar", func() { Diff(Const(g, 1.0), 1, 0) }, ErrShape},
		{"diff negative", func() { Diff(vector, -1, 0) }, ErrShape},
		{"diff bool", func() { Diff(Const(g, []bool{true, false}), 1, 0) }, ErrType},
		{"diff axis", func() { Diff(vector, 1, 1) }, ErrShape},
		{"bincount float", func() { BinCount(vector, nil, 0) }, ErrType},
		{"bincount matrix", func() { BinCount(Const(g, [][]int32{{1}}), nil, 0) }, ErrShape},
		{"bincount uint64", func() { BinCount(Const(g, []uint64{1}), nil, 0) }, ErrType},
		{"bincount minlength", func() { BinCount(ints, nil, -1) }, ErrShape},
		{"bincount weights length", func() { BinCount(ints, Const(g, []float64{1, 2}), 0) }, ErrShape},
		{"bincount weights matrix", func() { BinCount(ints, matrix, 0) }, ErrShape},
		{"bincount complex weights", func() {
			BinCount(ints, ConvertDType(vector, dtypes.Complex128), 0)
		}, ErrType},
		{"repeat float repeats", func() { Repeat(vector, Const(g, 2.0), axisNone) }, ErrType},
		{"repeat uint64 repeats", func() { Repeat(vector, Const(g, uint64(2)), axisNone) }, ErrType},
		{"repeat negative", func() { Repeat(vector, Const(g, int32(-1)), axisAt(0)) }, ErrShape},
		{"repeat matrix repeats", func() { Repeat(vector, Const(g, [][]int32{{1}}), axisNone) }, ErrShape},
		{"repeat vector length", func() { Repeat(matrix, Const(g, []int32{1, 2, 3}), axisAt(0)) }, ErrShape},
		{"repeat axis", func() { Repeat(matrix, Const(g, int32(2)), axisAt(-3)) }, ErrShape},
		{"bartlett vector", func() { Bartlett(ints) }, ErrShape},
		{"bartlett float", func() { Bartlett(Const(g, 5.0)) }, ErrType},
		{"fill_diagonal vector", func() { FillDiagonal(vector, Const(g, 1.0)) }, ErrShape},
		{"fill_diagonal upcast", func() { FillDiagonal(Const(g, [][]int32{{1}}), Const(g, 1.0)) }, ErrType},
		{"fill_diagonal value vector", func() { FillDiagonal(matrix, vector) }, ErrShape},
		{"fill_diagonal cube", func() {
			FillDiagonal(Const(g, [][][]float64{{{1, 2}, {3, 4}}}), Const(g, 1.0))
		}, ErrShape},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			requirePanicsWith(t, tc.want, tc.fn)
		})
	}
}

// TestPlatformBits checks the dtypes accepted for counts on a 32-bit platform.
func TestPlatformBits(t *testing.T) {
	backend := graphtest.NewBackendWithConfig(t, "go:bits=32")
	require.Equal(t, 32, backend.Capabilities().PointerBits)
	g := NewGraph(backend, "bits32")

	counts := BinCount(Const(g, []int32{0, 1, 1}), nil, 0)
	assert.Equal(t, dtypes.Int32, counts.DType())
	for _, values := range []any{[]int64{1}, []uint32{1}, []uint64{1}} {
		requirePanicsWith(t, ErrType, func() { BinCount(Const(g, values), nil, 0) })
	}
	for _, repeats := range []any{int64(1), uint32(1), uint64(1)} {
		requirePanicsWith(t, ErrType, func() { Repeat(Const(g, []float32{1}), Const(g, repeats), axisNone) })
	}
	repeated := Repeat(Const(g, []float32{1, 2}), Const(g, int32(2)), axisNone)

	outputs, err := NewExec(counts, repeated).Call()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, outputs[0].Value())
	assert.Equal(t, []float32{1, 1, 2, 2}, outputs[1].Value())
}

// TestEqualVariantsInterchangeable checks that variants with equal configurations are equal, and compute the
// same values.
func TestEqualVariantsInterchangeable(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "interchangeable")
	x := Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}})

	pairs := [][2]*Node{
		{Cumsum(x, axisAt(-1)), Cumsum(x, axisAt(1))},
		{Cumprod(x, axisAt(0)), Cumprod(x, axisAt(-2))},
		{Diff(x, 1, -1), Diff(x, 1, 1)},
		{Repeat(x, Const(g, int64(2)), axisAt(-1)), Repeat(x, Const(g, int64(2)), axisAt(1))},
		{Searchsorted(Const(g, []float64{2, 4}), x, backends.SideRight, nil),
			Searchsorted(Const(g, []float64{2, 4}), x, backends.SideRight, nil)},
	}
	var outputs []*Node
	for _, pair := range pairs {
		require.Truef(t, backends.OpEqual(pair[0].Op(), pair[1].Op()), "%s != %s", pair[0].Op(), pair[1].Op())
		require.Equal(t, backends.OpHash(pair[0].Op()), backends.OpHash(pair[1].Op()))
		require.True(t, pair[0].OutputType().Equal(pair[1].OutputType()))
		outputs = append(outputs, pair[0], pair[1])
	}
	assert.False(t, backends.OpEqual(Cumsum(x, axisAt(0)).Op(), Cumsum(x, axisAt(1)).Op()))
	assert.False(t, backends.OpEqual(Cumsum(x, axisAt(0)).Op(), Cumprod(x, axisAt(0)).Op()))
	assert.False(t, backends.OpEqual(Cumsum(x, axisNone).Op(), Cumsum(x, axisAt(0)).Op()))

	results, err := NewExec(outputs...).Call()
	require.NoError(t, err)
	for ii := 0; ii < len(results); ii += 2 {
		assert.Truef(t, results[ii].Equal(results[ii+1]), "%s: %s != %s", outputs[ii], results[ii], results[ii+1])
	}
}

func TestSymbolicShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "symbolic")
	x := g.Parameter("x", MakeType(dtypes.Int32, UnknownDim))
	m := g.Parameter("m", MakeType(dtypes.Int64))
	static := Const(g, [][]float32{{1, 2, 3}, {4, 5, 6}})

	// Static shapes are folded at graph building time.
	staticCases := []struct {
		node *Node
		want []int
	}{
		{Cumsum(static, axisNone), []int{6}},
		{Diff(static, 6, 1), []int{2, 0}},
		{Repeat(static, Const(g, int64(2)), axisAt(1)), []int{2, 6}},
		{Bartlett(Const(g, int64(-4))), []int{0}},
		{Searchsorted(Const(g, []float32{1}), static, backends.SideLeft, nil), []int{2, 3}},
	}
	for _, tc := range staticCases {
		shape := InferShape(tc.node)
		dims, ok := shape.Static()
		require.Truef(t, ok, "%s: inferred shape %s is not static", tc.node, shape)
		assert.Equalf(t, tc.want, dims, "%s", tc.node)
	}

	// The length of BinCount is the expression max(max(x)+1, minLength).
	bincountShape := InferShape(BinCount(x, nil, 5))
	require.Len(t, bincountShape, 1)
	require.True(t, bincountShape[0].IsExpr())
	require.Equal(t, dtypes.Int64, bincountShape[0].ExprNode().DType())

	repeatShape := InferShape(Repeat(x, Const(g, int64(3)), axisNone))
	require.True(t, repeatShape[0].IsExpr())
	vectorRepeatShape := InferShape(Repeat(static, Const(g, []uint8{2, 0}), axisAt(0)))
	require.True(t, vectorRepeatShape[0].IsExpr())
	require.True(t, vectorRepeatShape[1].IsStatic())
	bartlettShape := InferShape(Bartlett(m))
	diffShape := InferShape(Diff(x, 2, 0))

	exec := NewExec(
		bincountShape.Node(g),
		repeatShape.Node(g),
		vectorRepeatShape.Node(g),
		bartlettShape.Node(g),
		diffShape.Node(g),
	)
	require.Len(t, exec.Parameters(), 2)
	testCases := []struct {
		x    []int32
		m    int64
		want [][]int64
	}{
		{[]int32{0, 1, 1, 2}, 5, [][]int64{{5}, {12}, {2, 3}, {5}, {2}}},
		{[]int32{0, 7}, -3, [][]int64{{8}, {6}, {2, 3}, {0}, {0}}},
		{[]int32{9}, 0, [][]int64{{10}, {3}, {2, 3}, {0}, {0}}},
	}
	for _, tc := range testCases {
		outputs, err := exec.Call(tc.x, tc.m)
		require.NoError(t, err)
		for ii, want := range tc.want {
			assert.Equalf(t, want, outputs[ii].Value(), "output #%d for x=%v, m=%d", ii, tc.x, tc.m)
		}
	}
}
