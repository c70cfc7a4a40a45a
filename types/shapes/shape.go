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

// Package shapes defines the concrete Shape of a tensor (dtype and dimensions) and the dtype classes and
// promotion rules used by the operators.
//
// Shapes are concrete: every dimension is known. Graph nodes carry an OutputType instead, where some
// dimensions may be unknown until execution (see package graph).
//
// Dimensions may be 0, in which case the tensor holds no elements. A shape with no dimensions is a scalar.
// For instance `[][]int32{{0, 1, 2}, {3, 4, 5}}` has shape `(Int32)[2 3]`, created with
// `shapes.Make(dtypes.Int32, 2, 3)`.
//
// DTypes come from github.com/gomlx/gopjrt/dtypes. Half precision values use github.com/x448/float16 and
// github.com/gomlx/gopjrt/dtypes/bfloat16.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape of a tensor: its dtype and the dimension of each axis, in row-major order.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make creates a Shape. The dimensions are copied.
//
// It panics on negative dimensions.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	if idx := slices.IndexFunc(dimensions, func(dim int) bool { return dim < 0 }); idx >= 0 {
		exceptions.Panicf("shapes.Make(%s, %v): axis %d has a negative dimension", dtype, dimensions, idx)
	}
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
}

// Invalid returns the zero Shape, for which Ok returns false.
func Invalid() Shape { return Shape{DType: dtypes.InvalidDType} }

// Ok returns whether the shape has a valid dtype.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank is the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether s is a valid shape with no axes.
func (s Shape) IsScalar() bool { return s.Ok() && len(s.Dimensions) == 0 }

// Dim returns the dimension of the axis, which may be negative to count from the end.
// It panics if the axis is out of bounds.
func (s Shape) Dim(axis int) int {
	adjusted, err := AdjustAxis(axis, s.Rank())
	if err != nil {
		panic(errors.WithMessagef(err, "Shape.Dim of %s", s))
	}
	return s.Dimensions[adjusted]
}

// Shape returns s, so that Shape can be used where a shaped value is expected.
func (s Shape) Shape() Shape { return s }

// String formats the shape as "(DType)[dims...]", or "(DType)" for scalars.
func (s Shape) String() string {
	if len(s.Dimensions) == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size is the number of elements: the product of the dimensions, 1 for scalars.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// IsZeroSize returns whether some axis has dimension 0.
func (s Shape) IsZeroSize() bool { return slices.Contains(s.Dimensions, 0) }

// Memory is the number of bytes needed to store the elements.
func (s Shape) Memory() uintptr { return uintptr(s.Size()) * s.DType.Memory() }

// Strides returns the row-major strides of each axis, in number of elements.
func (s Shape) Strides() []int {
	strides := make([]int, len(s.Dimensions))
	for axis, stride := len(strides)-1, 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= s.Dimensions[axis]
	}
	return strides
}

// Equal returns whether dtypes and dimensions are the same.
func (s Shape) Equal(other Shape) bool {
	return s.DType == other.DType && s.EqualDimensions(other)
}

// EqualDimensions returns whether the dimensions are the same, regardless of dtypes.
func (s Shape) EqualDimensions(other Shape) bool {
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// Clone returns a copy of s that doesn't share the dimensions slice.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// AdjustAxis returns the non-negative version of axis, which counts from the end if negative.
// It returns an error if axis is out of bounds for rank.
func AdjustAxis(axis, rank int) (int, error) {
	adjusted := axis
	if axis < 0 {
		adjusted = axis + rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Errorf("axis %d out of bounds for rank %d", axis, rank)
	}
	return adjusted, nil
}
