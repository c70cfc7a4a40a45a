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

package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UnknownDim marks a dimension only known at execution time.
const UnknownDim = -1

// OutputType is the static type of a node: its dtype, its rank, the dimensions known at graph building time
// (UnknownDim for the others) and its broadcastable pattern.
//
// An axis is broadcastable if it is statically known to have dimension 1. The reverse is not required: an axis
// with a known dimension 1 may be non-broadcastable, e.g. the output of a cumulative sum.
type OutputType struct {
	DType         dtypes.DType
	Dimensions    []int
	Broadcastable []bool
}

// MakeType returns an OutputType with the given dimensions (UnknownDim for unknown ones). Axes with dimension 1
// are marked as broadcastable.
func MakeType(dtype dtypes.DType, dimensions ...int) OutputType {
	t := OutputType{
		DType:         dtype,
		Dimensions:    slices.Clone(dimensions),
		Broadcastable: make([]bool, len(dimensions)),
	}
	if t.Dimensions == nil {
		t.Dimensions = []int{}
	}
	for axis, dim := range dimensions {
		t.Broadcastable[axis] = dim == 1
	}
	if err := t.Check(); err != nil {
		panic(err)
	}
	return t
}

// TypeOfShape returns the fully static OutputType for the given shape.
func TypeOfShape(shape shapes.Shape) OutputType {
	return MakeType(shape.DType, shape.Dimensions...)
}

// WithBroadcastable returns a copy of t with the given broadcastable pattern. It panics if the pattern is not valid.
func (t OutputType) WithBroadcastable(broadcastable ...bool) OutputType {
	t2 := t.Clone()
	t2.Broadcastable = slices.Clone(broadcastable)
	if err := t2.Check(); err != nil {
		panic(err)
	}
	return t2
}

// Check returns an error if the OutputType is not valid.
func (t OutputType) Check() error {
	if t.DType == dtypes.InvalidDType {
		return errors.Wrap(ErrType, "invalid dtype")
	}
	if len(t.Dimensions) != len(t.Broadcastable) {
		return errors.Wrapf(ErrShape, "type has %d dimensions but %d broadcastable flags",
			len(t.Dimensions), len(t.Broadcastable))
	}
	for axis, dim := range t.Dimensions {
		if dim < UnknownDim {
			return errors.Wrapf(ErrShape, "invalid dimension %d for axis %d", dim, axis)
		}
		if t.Broadcastable[axis] && dim != 1 {
			return errors.Wrapf(ErrShape, "axis %d is broadcastable but its dimension is %s", axis, dimString(dim))
		}
	}
	return nil
}

// Rank of the type.
func (t OutputType) Rank() int { return len(t.Dimensions) }

// IsScalar returns whether the type has rank 0.
func (t OutputType) IsScalar() bool { return len(t.Dimensions) == 0 }

// Dim returns the dimension of the axis (negative values count from the end), or UnknownDim.
func (t OutputType) Dim(axis int) int {
	adjusted, err := shapes.AdjustAxis(axis, t.Rank())
	if err != nil {
		exceptions.Panicf("OutputType.Dim(%d): %+v", axis, err)
	}
	return t.Dimensions[adjusted]
}

// IsStatic returns whether all dimensions are known.
func (t OutputType) IsStatic() bool {
	return !slices.Contains(t.Dimensions, UnknownDim)
}

// Size returns the number of elements if all dimensions are known.
func (t OutputType) Size() (size int, ok bool) {
	if !t.IsStatic() {
		return 0, false
	}
	size = 1
	for _, dim := range t.Dimensions {
		size *= dim
	}
	return size, true
}

// Shape returns the concrete shape, if all dimensions are known.
func (t OutputType) Shape() (shapes.Shape, bool) {
	if !t.IsStatic() {
		return shapes.Invalid(), false
	}
	return shapes.Make(t.DType, t.Dimensions...), true
}

// Clone returns a deep copy.
func (t OutputType) Clone() OutputType {
	return OutputType{
		DType:         t.DType,
		Dimensions:    slices.Clone(t.Dimensions),
		Broadcastable: slices.Clone(t.Broadcastable),
	}
}

// Equal returns whether both types have the same dtype, dimensions and broadcastable pattern.
func (t OutputType) Equal(t2 OutputType) bool {
	return t.DType == t2.DType && slices.Equal(t.Dimensions, t2.Dimensions) &&
		slices.Equal(t.Broadcastable, t2.Broadcastable)
}

// Matches returns an error if the concrete shape is not an instance of the type.
func (t OutputType) Matches(shape shapes.Shape) error {
	if shape.DType != t.DType {
		return errors.Errorf("dtype %s doesn't match %s", shape.DType, t.DType)
	}
	if shape.Rank() != t.Rank() {
		return errors.Errorf("rank %d doesn't match rank %d of %s", shape.Rank(), t.Rank(), t)
	}
	for axis, dim := range t.Dimensions {
		if dim != UnknownDim && dim != shape.Dimensions[axis] {
			return errors.Errorf("dimension %d of axis %d doesn't match %s", shape.Dimensions[axis], axis, t)
		}
	}
	return nil
}

func dimString(dim int) string {
	if dim == UnknownDim {
		return "?"
	}
	return fmt.Sprintf("%d", dim)
}

// String implements fmt.Stringer. Unknown dimensions are printed as "?" and broadcastable axes with a "b" suffix,
// e.g. "(Float32)[? 1b 3]".
func (t OutputType) String() string {
	parts := make([]string, len(t.Dimensions))
	for axis, dim := range t.Dimensions {
		parts[axis] = dimString(dim)
		if t.Broadcastable[axis] {
			parts[axis] += "b"
		}
	}
	return fmt.Sprintf("(%s)[%s]", t.DType, strings.Join(parts, " "))
}

// mergeDims returns the dimension common to a and b, where any of them may be unknown.
func mergeDims(a, b int) (int, bool) {
	switch {
	case a == UnknownDim:
		return b, true
	case b == UnknownDim, a == b:
		return a, true
	}
	return 0, false
}
