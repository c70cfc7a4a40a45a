package simplego

import (
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/backends/native"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// executor is the reference implementation of one operator.
//
// It returns a new tensor, or a view of one of its inputs. Errors on the values are reported by panicking
// with an error wrapping backends.ErrExecution (see execErrorf).
type executor func(backend *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor

// nodeExecutors holds the reference executor of each operator. They are registered in init() by the files
// implementing them.
var nodeExecutors [backends.OpTypeLast]executor

// execErrorf panics with an error wrapping backends.ErrExecution.
func execErrorf(format string, args ...any) {
	panic(errors.Wrapf(backends.ErrExecution, format, args...))
}

// newOutput allocates a zero initialized output tensor.
func newOutput(dtype dtypes.DType, dimensions ...int) *tensors.Tensor {
	for _, dim := range dimensions {
		if dim < 0 {
			execErrorf("cannot allocate output with negative dimension %v", dimensions)
		}
	}
	output, err := native.Allocate(shapes.Make(dtype, dimensions...))
	if err != nil {
		panic(err)
	}
	return output
}

// elementSize returns the number of bytes of one element of the tensor.
func elementSize(t *tensors.Tensor) int {
	return int(t.DType().Memory())
}

// splitAxis returns the number of elements before the axis (outer), at the axis and after the axis (inner).
func splitAxis(dimensions []int, axis int) (outer, n, inner int) {
	outer, n, inner = 1, dimensions[axis], 1
	for _, dim := range dimensions[:axis] {
		outer *= dim
	}
	for _, dim := range dimensions[axis+1:] {
		inner *= dim
	}
	return
}

// scalarInt64 returns the value of an integer tensor with one element.
func scalarInt64(t *tensors.Tensor) int64 {
	if t.Size() != 1 {
		execErrorf("expected a scalar, got shape %s", t.Shape())
	}
	return t.Int64s()[0]
}

// dimensionsFrom converts an integer vector tensor to dimensions.
func dimensionsFrom(t *tensors.Tensor) []int {
	if t.Rank() != 1 {
		execErrorf("expected a vector of dimensions, got shape %s", t.Shape())
	}
	values := t.Int64s()
	dimensions := make([]int, len(values))
	for ii, v := range values {
		if v < 0 {
			execErrorf("negative dimension %d in %v", v, values)
		}
		dimensions[ii] = int(v)
	}
	return dimensions
}
