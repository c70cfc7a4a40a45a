package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// FuncForDispatcher is type of functions that the DTypeDispatcher can handle.
// They read the inputs and write every element of the pre-allocated output.
type FuncForDispatcher func(op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor)

const MaxDTypes = 32

// DTypeDispatcher will call the function registered for the dtype of the operands.
type DTypeDispatcher struct {
	Name  string
	fnMap [MaxDTypes]FuncForDispatcher
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher(name string) *DTypeDispatcher {
	return &DTypeDispatcher{
		Name: name,
	}
}

// Dispatch call the function that matches the dtype.
func (d *DTypeDispatcher) Dispatch(dtype dtypes.DType, op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	fn := d.fnMap[dtype]
	if fn == nil {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	fn(op, inputs, output)
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher) Register(dtype dtypes.DType, fn FuncForDispatcher) {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
}

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 and BFloat16 are not included because they are not natively supported by Go: they are
// handled by converting to float32 (see viaFloat32).
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// PODComplexConstraints are the complex types.
type PODComplexConstraints interface {
	complex64 | complex128
}

// PODNumericOrComplexConstraints are all the numeric types natively supported by Go.
type PODNumericOrComplexConstraints interface {
	PODNumericConstraints | PODComplexConstraints
}

// viaFloat32 adapts a float32 function to half precision dtypes: half precision inputs are converted
// to float32, and so is the output if it is half precision.
func viaFloat32(fn FuncForDispatcher) FuncForDispatcher {
	return func(op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
		converted := make([]*tensors.Tensor, len(inputs))
		for ii, input := range inputs {
			converted[ii] = input
			if shapes.IsHalfPrecision(input.DType()) {
				converted[ii] = input.ConvertDType(dtypes.Float32)
			}
		}
		if !shapes.IsHalfPrecision(output.DType()) {
			fn(op, converted, output)
			return
		}
		output32 := newOutput(dtypes.Float32, output.Shape().Dimensions...)
		fn(op, converted, output32)
		copy(output.Bytes(), output32.ConvertDType(output.DType()).Bytes())
	}
}
