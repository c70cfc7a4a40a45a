package tensors

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// wide is the set of types values are widened to when converting between dtypes.
type wide interface {
	int64 | float64
}

type realNumber interface {
	constraints.Integer | constraints.Float
}

func widenSlice[T realNumber, W wide](src []T) []W {
	dst := make([]W, len(src))
	for ii, v := range src {
		dst[ii] = W(v)
	}
	return dst
}

func narrowSlice[T realNumber, W wide](dst []T, src []W) {
	for ii, v := range src {
		dst[ii] = T(v)
	}
}

// readAs returns a copy of the flat slice widened to int64 or float64.
// Complex values are converted by taking their real part.
func readAs[W wide](flat any) []W {
	switch flat := flat.(type) {
	case []int8:
		return widenSlice[int8, W](flat)
	case []int16:
		return widenSlice[int16, W](flat)
	case []int32:
		return widenSlice[int32, W](flat)
	case []int64:
		return widenSlice[int64, W](flat)
	case []uint8:
		return widenSlice[uint8, W](flat)
	case []uint16:
		return widenSlice[uint16, W](flat)
	case []uint32:
		return widenSlice[uint32, W](flat)
	case []uint64:
		return widenSlice[uint64, W](flat)
	case []float32:
		return widenSlice[float32, W](flat)
	case []float64:
		return widenSlice[float64, W](flat)
	case []float16.Float16:
		dst := make([]W, len(flat))
		for ii, v := range flat {
			dst[ii] = W(v.Float32())
		}
		return dst
	case []bfloat16.BFloat16:
		dst := make([]W, len(flat))
		for ii, v := range flat {
			dst[ii] = W(v.Float32())
		}
		return dst
	case []bool:
		dst := make([]W, len(flat))
		for ii, v := range flat {
			if v {
				dst[ii] = 1
			}
		}
		return dst
	case []complex64:
		dst := make([]W, len(flat))
		for ii, v := range flat {
			dst[ii] = W(real(v))
		}
		return dst
	case []complex128:
		dst := make([]W, len(flat))
		for ii, v := range flat {
			dst[ii] = W(real(v))
		}
		return dst
	}
	exceptions.Panicf("tensors: unsupported flat data type %T", flat)
	return nil
}

// writeFrom converts values into the flat slice, which must have the same length.
func writeFrom[W wide](flat any, values []W) {
	switch flat := flat.(type) {
	case []int8:
		narrowSlice(flat, values)
	case []int16:
		narrowSlice(flat, values)
	case []int32:
		narrowSlice(flat, values)
	case []int64:
		narrowSlice(flat, values)
	case []uint8:
		narrowSlice(flat, values)
	case []uint16:
		narrowSlice(flat, values)
	case []uint32:
		narrowSlice(flat, values)
	case []uint64:
		narrowSlice(flat, values)
	case []float32:
		narrowSlice(flat, values)
	case []float64:
		narrowSlice(flat, values)
	case []float16.Float16:
		for ii, v := range values {
			flat[ii] = float16.Fromfloat32(float32(v))
		}
	case []bfloat16.BFloat16:
		for ii, v := range values {
			flat[ii] = bfloat16.FromFloat32(float32(v))
		}
	case []bool:
		for ii, v := range values {
			flat[ii] = v != 0
		}
	case []complex64:
		for ii, v := range values {
			flat[ii] = complex(float32(v), 0)
		}
	case []complex128:
		for ii, v := range values {
			flat[ii] = complex(float64(v), 0)
		}
	default:
		exceptions.Panicf("tensors: unsupported flat data type %T", flat)
	}
}

func toComplex128s(flat any) []complex128 {
	switch flat := flat.(type) {
	case []complex64:
		dst := make([]complex128, len(flat))
		for ii, v := range flat {
			dst[ii] = complex128(v)
		}
		return dst
	case []complex128:
		dst := make([]complex128, len(flat))
		copy(dst, flat)
		return dst
	}
	values := readAs[float64](flat)
	dst := make([]complex128, len(values))
	for ii, v := range values {
		dst[ii] = complex(v, 0)
	}
	return dst
}

// Int64s returns a copy of the tensor values converted to int64. Floats are truncated.
func (t *Tensor) Int64s() []int64 {
	t.AssertValid()
	return readAs[int64](t.flat)
}

// Float64s returns a copy of the tensor values converted to float64.
func (t *Tensor) Float64s() []float64 {
	t.AssertValid()
	return readAs[float64](t.flat)
}

// FromInt64s creates a tensor of the given dtype and dimensions, converting the values from int64.
func FromInt64s(dtype dtypes.DType, values []int64, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dtype, dimensions...))
	if len(values) != t.Size() {
		exceptions.Panicf("tensors.FromInt64s(%s): got %d values", t.shape, len(values))
	}
	writeFrom(t.flat, values)
	return t
}

// FromFloat64s creates a tensor of the given dtype and dimensions, converting the values from float64.
func FromFloat64s(dtype dtypes.DType, values []float64, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dtype, dimensions...))
	if len(values) != t.Size() {
		exceptions.Panicf("tensors.FromFloat64s(%s): got %d values", t.shape, len(values))
	}
	writeFrom(t.flat, values)
	return t
}

// ConvertDType returns a new owned tensor with the values converted to dtype.
//
// Integer to integer (and bool) conversions go through int64, conversions involving complex numbers
// go through complex128 (the imaginary part is dropped when converting to a real dtype), and all
// others go through float64.
func (t *Tensor) ConvertDType(dtype dtypes.DType) *Tensor {
	t.AssertValid()
	if t.shape.DType == dtype {
		return t.Clone()
	}
	src := t.shape.DType
	converted := FromShape(shapes.Make(dtype, t.shape.Dimensions...))
	switch {
	case shapes.IsComplex(dtype):
		values := toComplex128s(t.flat)
		switch flat := converted.flat.(type) {
		case []complex64:
			for ii, v := range values {
				flat[ii] = complex64(v)
			}
		case []complex128:
			copy(flat, values)
		}
	case (shapes.IsInteger(src) || src == dtypes.Bool) && (shapes.IsInteger(dtype) || dtype == dtypes.Bool):
		writeFrom(converted.flat, readAs[int64](t.flat))
	default:
		writeFrom(converted.flat, readAs[float64](t.flat))
	}
	return converted
}
