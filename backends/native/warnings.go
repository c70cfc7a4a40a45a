package native

import (
	"slices"
	"sync/atomic"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"k8s.io/klog/v2"
)

// zerosWarning logs, at most once, that an input holds zeros.
type zerosWarning struct {
	warned atomic.Bool
}

// check logs the warning if x is a floating point tensor holding zeros, and if it wasn't logged before.
// It returns whether it logged.
func (w *zerosWarning) check(op backends.Op, x *tensors.Tensor) bool {
	if w.warned.Load() || !shapes.IsFloat(x.DType()) || !slices.Contains(x.Float64s(), 0) {
		return false
	}
	if !w.warned.CompareAndSwap(false, true) {
		return false
	}
	klog.Warningf("%s: input has zeros, its gradient (computed by dividing by the input) will not be finite", op)
	return true
}

var cumprodZeros zerosWarning

// WarnCumprodZeros logs a warning, once per process, the first time the input x of a Cumprod holds zeros.
// Both the native kernel and the reference executor of Cumprod call it.
func WarnCumprodZeros(op backends.Op, x *tensors.Tensor) {
	cumprodZeros.check(op, x)
}
