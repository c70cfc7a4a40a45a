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

// Package tensors implements a `Tensor`, a representation of a multi-dimensional array stored in host
// memory as a flat Go slice of the underlying dtype.
//
// Tensors are the concrete values fed to and produced by the executors of a computation graph.
//
// Constructors:
//
//   - FromShape: zero values.
//   - FromScalarAndDimensions: every element set to the same value.
//   - FromFlatDataAndDimensions: a copy of flat data in row-major order, e.g.
//     `FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2)` is [[1, 2], [3, 4]].
//   - FromValue: a scalar or a regular multidimensional slice of a supported Go type, e.g.
//     `FromValue([][]float64{{1, 2}, {3, 5}, {7, 11}})`.
//   - FromAnyValue: the same, for values of unknown type. Tensors are returned as is.
//   - FromFloat64s: float64 values converted to any dtype.
//
// A Tensor either owns its storage, or it is a view sharing the storage of another tensor (see NewView),
// or it is borrowed from an executor cache that will overwrite it on the next execution (see Ownership).
package tensors

import (
	"reflect"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

// Ownership describes who owns the flat storage of a Tensor.
type Ownership int

const (
	// Owned tensors hold their own storage.
	Owned Ownership = iota

	// View tensors share the storage of another tensor: writing to one is visible in the other.
	View

	// Borrowed tensors hold storage owned by an executor output cache, and it will be overwritten the next
	// time the same node is executed. Clone it to keep the value.
	Borrowed
)

// String implements fmt.Stringer.
func (o Ownership) String() string {
	switch o {
	case Owned:
		return "Owned"
	case View:
		return "View"
	case Borrowed:
		return "Borrowed"
	}
	return "Ownership(?)"
}

// Tensor is a multidimensional array of any rank (0 for scalars), with its elements stored in row-major order in
// a flat slice.
type Tensor struct {
	shape shapes.Shape

	// flat is a []T slice, where T is the Go type of shape.DType.
	flat any

	ownership Ownership
}

// FromShape returns a zero-filled tensor of the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(): invalid shape %s", shape)
	}
	goType := shape.DType.GoType()
	if goType == nil {
		exceptions.Panicf("tensors.FromShape(): dtype %s has no Go type", shape.DType)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(goType), shape.Size(), shape.Size())
	return &Tensor{shape: shape.Clone(), flat: flat.Interface()}
}

// FromFlat wraps a flat slice ([]T where T is the Go type of shape.DType) as a Tensor, without copying it.
//
// It panics if the flat slice type or length doesn't match the shape.
func FromFlat(shape shapes.Shape, flat any) *Tensor {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type().Elem() != shape.DType.GoType() {
		exceptions.Panicf("tensors.FromFlat(%s): flat data of type %T doesn't match dtype", shape, flat)
	}
	if flatV.Len() != shape.Size() {
		exceptions.Panicf("tensors.FromFlat(%s): flat data has %d elements, shape requires %d", shape, flatV.Len(), shape.Size())
	}
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// NewView returns a tensor with the given dimensions that shares the storage of base.
// The number of elements must be the same.
func NewView(base *Tensor, dimensions ...int) *Tensor {
	shape := shapes.Make(base.shape.DType, dimensions...)
	if shape.Size() != base.Size() {
		exceptions.Panicf("tensors.NewView(%s): cannot view a tensor of shape %s with %d elements",
			shape, base.shape, base.Size())
	}
	return &Tensor{shape: shape, flat: base.flat, ownership: View}
}

// NewBorrowed returns a tensor marked as Borrowed sharing the storage of base.
func NewBorrowed(base *Tensor) *Tensor {
	return &Tensor{shape: base.shape, flat: base.flat, ownership: Borrowed}
}

// Shape of the tensor. The dimensions slice must not be modified.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank is the number of axes.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Dimensions returns a copy of the tensor's dimensions.
func (t *Tensor) Dimensions() []int { return slices.Clone(t.shape.Dimensions) }

// IsScalar returns whether the tensor has rank 0.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory is the size of the storage in bytes.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ownership of the tensor storage.
func (t *Tensor) Ownership() Ownership { return t.ownership }

// IsView returns whether the tensor shares the storage of another tensor.
func (t *Tensor) IsView() bool { return t.ownership == View }

// SharesStorage returns whether t and other use the same underlying storage.
func (t *Tensor) SharesStorage(other *Tensor) bool {
	if t.Size() == 0 || other.Size() == 0 {
		return false
	}
	return reflect.ValueOf(t.flat).UnsafePointer() == reflect.ValueOf(other.flat).UnsafePointer()
}

// Ok returns whether the tensor is valid.
func (t *Tensor) Ok() bool { return t != nil && t.shape.Ok() && t.flat != nil }

// AssertValid panics unless Ok.
func (t *Tensor) AssertValid() {
	switch {
	case t == nil:
		exceptions.Panicf("nil tensor")
	case !t.Ok():
		exceptions.Panicf("invalid tensor: shape %s, storage %T", t.shape, t.flat)
	}
}

// Flat returns the underlying flat slice, without copying it.
func (t *Tensor) Flat() any { return t.flat }

// Bytes returns the storage of the tensor as a byte slice, without copying it.
func (t *Tensor) Bytes() []byte {
	flatV := reflect.ValueOf(t.flat)
	if flatV.Len() == 0 {
		return nil
	}
	elemSize := int(flatV.Type().Elem().Size())
	return unsafe.Slice((*byte)(flatV.UnsafePointer()), flatV.Len()*elemSize)
}

// Clone returns an owned deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t.AssertValid()
	clone := FromShape(t.shape)
	copy(clone.Bytes(), t.Bytes())
	return clone
}
