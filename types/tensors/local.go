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

package tensors

import (
	"fmt"
	"math"
	"math/cmplx"
	"reflect"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// FlatData returns the flat slice backing the tensor, without copying it: views share it with the tensor
// they were created from.
// It panics if T doesn't match the tensor dtype.
func FlatData[T dtypes.Supported](t *Tensor) []T {
	t.AssertValid()
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.FlatData[%T]: tensor has dtype %s", *new(T), t.shape.DType)
	}
	return flat
}

// MutableFlatData calls accessFn with the typed flat slice of the tensor, which can be modified.
// If the tensor is a view, the changes are visible in the tensor it was created from.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	accessFn(FlatData[T](t))
}

// ToScalar returns the value of a tensor with exactly one element.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	flat := FlatData[T](t)
	if len(flat) != 1 {
		exceptions.Panicf("tensors.ToScalar(): tensor of shape %s is not a scalar", t.shape)
	}
	return flat[0]
}

// CopyFlatData returns a copy of the flat data of the tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	return slices.Clone(FlatData[T](t))
}

// FromScalar returns a scalar tensor holding value. The dtype is taken from T.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions returns a tensor with the given dimensions, with every element set to value.
// The dtype is taken from T.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dtypes.FromGenericsType[T](), dimensions...))
	MutableFlatData(t, func(flat []T) {
		for ii := range flat {
			flat[ii] = value
		}
	})
	return t
}

// FromFlatDataAndDimensions returns a tensor with the given dimensions holding a copy of data, given in
// row-major order. The dtype is taken from T.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if size := shape.Size(); size != len(data) {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions(%s): got %d values for %d elements", shape, len(data), size)
	}
	t := FromShape(shape)
	if ints, ok := any(data).([]int); ok {
		// Stored as int32 or int64, following the platform.
		copy(asInts(t.flat), ints)
		return t
	}
	copy(t.flat.([]T), data)
	return t
}

// asInts returns the flat storage of a tensor of Go ints (int32 or int64 with the platform size) as []int.
func asInts(flat any) []int {
	switch flat := flat.(type) {
	case []int64:
		if unsafe.Sizeof(int(0)) == 8 {
			return unsafe.Slice((*int)(unsafe.Pointer(unsafe.SliceData(flat))), len(flat))
		}
	case []int32:
		if unsafe.Sizeof(int(0)) == 4 {
			return unsafe.Slice((*int)(unsafe.Pointer(unsafe.SliceData(flat))), len(flat))
		}
	}
	exceptions.Panicf("tensors: flat storage %T doesn't hold Go ints of %d bytes", flat, unsafe.Sizeof(int(0)))
	return nil
}

// MultiDimensionSlice lists the Go types FromValue accepts: scalars and slices of them, nested up to rank 4.
// FromAnyValue accepts any rank.
type MultiDimensionSlice interface {
	bool | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | complex64 | complex128 |
		[]bool | []int | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 | []float32 | []float64 | []complex64 | []complex128 |
		[][]bool | [][]int | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 | [][]float32 | [][]float64 | [][]complex64 | [][]complex128 |
		[][][]bool | [][][]int | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64 | [][][]float32 | [][][]float64 | [][][]complex64 | [][][]complex128 |
		[][][][]bool | [][][][]int | [][][][]int8 | [][][][]int16 | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint16 | [][][][]uint32 | [][][][]uint64 | [][][][]float32 | [][][][]float64 | [][][][]complex64 | [][][][]complex128
}

// FromValue returns a tensor with the values of the given scalar or multi-dimension slice.
// All the sub-slices at the same level must have the same length.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is the non-generic version of FromValue. If value is a *Tensor, it is returned as is.
//
// Empty slices are accepted and yield zero-sized dimensions.
//
// It panics with an error if the type of value is not supported or if the sub-slices have irregular lengths.
func FromAnyValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	if value == nil {
		panic(errors.New("tensors.FromAnyValue: cannot convert nil to a tensor"))
	}
	v := reflect.ValueOf(value)
	dims, elemType, err := dimensionsOf(v)
	if err != nil {
		panic(errors.WithMessagef(err, "tensors.FromAnyValue(%T)", value))
	}
	dtype := dtypes.FromGoType(elemType)
	if dtype == dtypes.InvalidDType {
		panic(errors.Errorf("tensors.FromAnyValue(%T): unsupported element type %s", value, elemType))
	}
	t := FromShape(shapes.Make(dtype, dims...))
	flat := reflect.ValueOf(t.flat)
	if elemType.Kind() == reflect.Int {
		flat = reflect.ValueOf(asInts(t.flat))
	}
	flattenInto(flat, v, 0)
	return t
}

// dimensionsOf returns the dimensions of the multi-dimension slice v and the type of its elements.
// Inner dimensions of empty slices are 0.
func dimensionsOf(v reflect.Value) (dims []int, elemType reflect.Type, err error) {
	elemType = v.Type()
	for elemType.Kind() == reflect.Slice {
		dims = append(dims, 0)
		elemType = elemType.Elem()
	}
	first := v
	for axis := range dims {
		dims[axis] = first.Len()
		if dims[axis] == 0 {
			break
		}
		first = first.Index(0)
	}
	err = checkRegular(v, dims)
	return
}

// checkRegular checks that all sub-slices of v have the lengths given by dims.
func checkRegular(v reflect.Value, dims []int) error {
	if len(dims) == 0 {
		return nil
	}
	if v.Len() != dims[0] {
		return errors.Errorf("irregular sub-slices: found length %d where %d was expected", v.Len(), dims[0])
	}
	for ii := range v.Len() {
		if err := checkRegular(v.Index(ii), dims[1:]); err != nil {
			return err
		}
	}
	return nil
}

// flattenInto copies the values of v to flat in row-major order, starting at offset. It returns the offset
// after the last value copied.
func flattenInto(flat, v reflect.Value, offset int) int {
	if v.Kind() != reflect.Slice {
		flat.Index(offset).Set(v)
		return offset + 1
	}
	if v.Type().Elem().Kind() != reflect.Slice {
		return offset + reflect.Copy(flat.Slice(offset, offset+v.Len()), v)
	}
	for ii := range v.Len() {
		offset = flattenInto(flat, v.Index(ii), offset)
	}
	return offset
}

// nestSlices returns a multi-dimension slice with the given dimensions, whose innermost slices point to flat.
func nestSlices(flat reflect.Value, dims []int) reflect.Value {
	if len(dims) == 1 {
		return flat
	}
	sliceType := flat.Type()
	for range dims[1:] {
		sliceType = reflect.SliceOf(sliceType)
	}
	nested := reflect.MakeSlice(sliceType, dims[0], dims[0])
	if dims[0] == 0 {
		return nested
	}
	stride := flat.Len() / dims[0]
	for ii := range dims[0] {
		nested.Index(ii).Set(nestSlices(flat.Slice(ii*stride, (ii+1)*stride), dims[1:]))
	}
	return nested
}

// Value returns a copy of the values of the tensor: a scalar for rank 0, or a multi-dimension slice.
// It is meant for small tensors, in tests and to print results.
func (t *Tensor) Value() any {
	t.AssertValid()
	flat := reflect.ValueOf(t.flat)
	if t.shape.IsScalar() {
		return flat.Index(0).Interface()
	}
	flatCopy := reflect.MakeSlice(flat.Type(), flat.Len(), flat.Len())
	reflect.Copy(flatCopy, flat)
	return nestSlices(flatCopy, t.shape.Dimensions).Interface()
}

// Equal returns whether both tensors have the same shape and values. NaN values are never equal.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.IsZeroSize() {
		return true
	}
	return reflect.DeepEqual(t.flat, otherTensor.flat)
}

// InDelta returns whether both tensors have the same shape, and Abs(t - otherTensor) <= delta for every
// element. NaN values are considered equal to each other.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.IsZeroSize() {
		return true
	}
	if shapes.IsComplex(t.shape.DType) {
		values0, values1 := toComplex128s(t.flat), toComplex128s(otherTensor.flat)
		for ii, v0 := range values0 {
			if cmplx.Abs(v0-values1[ii]) > delta {
				return false
			}
		}
		return true
	}
	values0, values1 := readAs[float64](t.flat), readAs[float64](otherTensor.flat)
	for ii, v0 := range values0 {
		v1 := values1[ii]
		if math.IsNaN(v0) || math.IsNaN(v1) {
			if math.IsNaN(v0) != math.IsNaN(v1) {
				return false
			}
			continue
		}
		if v0 != v1 && math.Abs(v0-v1) > delta {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer, listing the values of small tensors.
func (t *Tensor) String() string {
	return t.Summary(20)
}

// Summary returns the shape and the values of the tensor, if it has at most maxSize elements.
func (t *Tensor) Summary(maxSize int) string {
	if t == nil {
		return "<nil tensor>"
	}
	if !t.Ok() {
		return "<invalid tensor>"
	}
	if t.Size() > maxSize {
		return fmt.Sprintf("%s: (%d elements)", t.shape, t.Size())
	}
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}
