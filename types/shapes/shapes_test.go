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

package shapes

import (
	"testing"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	require.False(t, Invalid().Ok())
	require.False(t, Shape{}.Ok())

	for _, tc := range []struct {
		shape      Shape
		rank, size int
		memory     uintptr
		strides    []int
		str        string
	}{
		{Make(Float64), 0, 1, 8, []int{}, "(Float64)"},
		{Make(Float32, 4, 3, 2), 3, 24, 96, []int{6, 2, 1}, "(Float32)[4 3 2]"},
		{Make(Int8, 5), 1, 5, 5, []int{1}, "(Int8)[5]"},
		{Make(Uint16, 2, 0), 2, 0, 0, []int{0, 1}, "(Uint16)[2 0]"},
	} {
		require.True(t, tc.shape.Ok())
		require.Equal(t, tc.rank == 0, tc.shape.IsScalar(), tc.str)
		require.Equal(t, tc.rank, tc.shape.Rank(), tc.str)
		require.Equal(t, tc.size, tc.shape.Size(), tc.str)
		require.Equal(t, tc.memory, tc.shape.Memory(), tc.str)
		require.Equal(t, tc.strides, tc.shape.Strides(), tc.str)
		require.Equal(t, tc.str, tc.shape.String())
		require.True(t, tc.shape.Equal(tc.shape.Clone()))
	}

	shape := Make(Float32, 4, 3, 2)
	require.False(t, shape.Equal(Make(Float64, 4, 3, 2)))
	require.True(t, shape.EqualDimensions(Make(Float64, 4, 3, 2)))
	require.False(t, shape.EqualDimensions(Make(Float32, 4, 3)))
	clone := shape.Clone()
	clone.Dimensions[0] = 7
	require.Equal(t, 4, shape.Dimensions[0])

	dims := []int{2, 3}
	fromSlice := Make(Int32, dims...)
	dims[0] = 5
	require.Equal(t, []int{2, 3}, fromSlice.Dimensions)
	require.Panics(t, func() { _ = Make(Float32, 2, -1) })
}

func TestZeroSize(t *testing.T) {
	shape := Make(Int64, 3, 0)
	require.True(t, shape.IsZeroSize())
	require.Equal(t, 0, shape.Size())
	require.False(t, Make(Int64, 3).IsZeroSize())
	require.False(t, Make(Int64).IsZeroSize())
}

func TestDim(t *testing.T) {
	shape := Make(Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })

	axis, err := AdjustAxis(-1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, axis)
	_, err = AdjustAxis(0, 0)
	require.Error(t, err)
}

func TestDTypeClasses(t *testing.T) {
	require.True(t, IsInteger(Uint16))
	require.True(t, IsInteger(Int8))
	require.False(t, IsInteger(Bool))
	require.False(t, IsInteger(Float32))
	require.True(t, IsUnsigned(Uint64))
	require.False(t, IsUnsigned(Int64))
	require.True(t, IsFloat(BFloat16))
	require.True(t, IsHalfPrecision(Float16))
	require.True(t, IsComplex(Complex64))
	require.False(t, IsRealNumeric(Complex128))
	require.Equal(t, 32, BitWidth(Int32))
	require.Equal(t, Uint16, IntegerDType(16, true))
	require.Panics(t, func() { _ = IntegerDType(12, false) })
}

func TestUpcast(t *testing.T) {
	for _, tc := range []struct{ a, b, want DType }{
		{Float64, Float64, Float64},
		{Float32, Float64, Float64},
		{Float64, Int64, Float64},
		{Int32, Int64, Int64},
		{Uint8, Int8, Int16},
		{Uint32, Int32, Int64},
		{Uint64, Int64, Float64},
		{Int64, Uint8, Int64},
		{Int8, Float16, Float16},
		{Int16, Float16, Float32},
		{Int32, Float32, Float64},
		{Float16, BFloat16, Float32},
		{Bool, Int32, Int32},
		{Complex64, Float64, Complex128},
		{Complex64, Int8, Complex64},
	} {
		require.Equalf(t, tc.want, Upcast(tc.a, tc.b), "Upcast(%s, %s)", tc.a, tc.b)
		require.Equalf(t, tc.want, Upcast(tc.b, tc.a), "Upcast(%s, %s)", tc.b, tc.a)
	}
}
