package native

import (
	"sort"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Versions of the native kernels: bump them whenever the generated code changes, so cached kernels
// are recompiled.
const (
	SearchsortedVersion = 1
	CumsumVersion       = 3
	CumprodVersion      = 2
)

// Minimum work per chunk when kernels split their work across workers.
const (
	minSearchesPerChunk = 1024
	minElementsPerChunk = 16 * 1024
)

func init() {
	RegisterEmitter(backends.OpTypeSearchsorted, SearchsortedVersion, emitSearchsorted)
	RegisterEmitter(backends.OpTypeCumsum, CumsumVersion, emitCumulative)
	RegisterEmitter(backends.OpTypeCumprod, CumprodVersion, emitCumulative)
}

type realNumber interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

type number interface {
	realNumber | complex64 | complex128
}

func emitSearchsorted(op backends.Op, inputTypes []InputType) (RunFn, error) {
	side := op.(backends.SearchsortedOp).Side
	if len(inputTypes) != 2 && len(inputTypes) != 3 {
		return nil, errors.Errorf("searchsorted takes 2 or 3 inputs, got %d", len(inputTypes))
	}
	if inputTypes[0].Rank != 1 {
		return nil, errors.Errorf("searchsorted requires a sorted vector, got rank %d", inputTypes[0].Rank)
	}
	if inputTypes[0].DType != inputTypes[1].DType {
		return nil, errors.Wrapf(ErrUnsupported, "searchsorted of %s values in %s array", inputTypes[1].DType, inputTypes[0].DType)
	}
	hasSorter := len(inputTypes) == 3
	switch inputTypes[0].DType {
	case dtypes.Int8:
		return searchsortedKernel[int8](side, hasSorter), nil
	case dtypes.Int16:
		return searchsortedKernel[int16](side, hasSorter), nil
	case dtypes.Int32:
		return searchsortedKernel[int32](side, hasSorter), nil
	case dtypes.Int64:
		return searchsortedKernel[int64](side, hasSorter), nil
	case dtypes.Uint8:
		return searchsortedKernel[uint8](side, hasSorter), nil
	case dtypes.Uint16:
		return searchsortedKernel[uint16](side, hasSorter), nil
	case dtypes.Uint32:
		return searchsortedKernel[uint32](side, hasSorter), nil
	case dtypes.Uint64:
		return searchsortedKernel[uint64](side, hasSorter), nil
	case dtypes.Float32:
		return searchsortedKernel[float32](side, hasSorter), nil
	case dtypes.Float64:
		return searchsortedKernel[float64](side, hasSorter), nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "searchsorted for dtype %s", inputTypes[0].DType)
}

func searchsortedKernel[T realNumber](side backends.Side, hasSorter bool) RunFn {
	return func(inputs []*tensors.Tensor, slot *OutputSlot) (*tensors.Tensor, error) {
		x := tensors.FlatData[T](inputs[0])
		values := tensors.FlatData[T](inputs[1])
		var sorter []int64
		if hasSorter {
			sorter = inputs[2].Int64s()
			if len(sorter) != len(x) {
				return nil, errors.Wrapf(backends.ErrExecution, "searchsorted: sorter has %d elements, sorted array has %d",
					len(sorter), len(x))
			}
			for _, idx := range sorter {
				if idx < 0 || idx >= int64(len(x)) {
					return nil, errors.Wrapf(backends.ErrExecution, "searchsorted: sorter index %d out of range [0, %d)", idx, len(x))
				}
			}
		}
		output, err := slot.Ensure(dtypes.Int64, inputs[1].Dimensions()...)
		if err != nil {
			return nil, err
		}
		out := tensors.FlatData[int64](output)
		at := func(i int) T { return x[i] }
		if sorter != nil {
			at = func(i int) T { return x[sorter[i]] }
		}
		slot.Workers().Split(len(values), minSearchesPerChunk, func(start, end int) {
			for ii := start; ii < end; ii++ {
				v := values[ii]
				if side == backends.SideLeft {
					out[ii] = int64(sort.Search(len(x), func(i int) bool { return at(i) >= v }))
				} else {
					out[ii] = int64(sort.Search(len(x), func(i int) bool { return at(i) > v }))
				}
			}
		})
		return output, nil
	}
}

// emitCumulative emits both cumsum and cumprod kernels.
func emitCumulative(op backends.Op, inputTypes []InputType) (RunFn, error) {
	cumOp := op.(backends.CumulativeOp)
	if len(inputTypes) != 1 {
		return nil, errors.Errorf("%s takes 1 input, got %d", op, len(inputTypes))
	}
	rank := inputTypes[0].Rank
	axis := -1 // Flat.
	if !cumOp.Axis.IsNone() {
		adjusted, err := cumOp.Axis.Normalize(rank)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s", op)
		}
		if rank > 1 {
			axis = adjusted
		}
	}
	product := cumOp.Kind == backends.OpTypeCumprod
	switch inputTypes[0].DType {
	case dtypes.Int8:
		return cumulativeKernel[int8](op, product, axis), nil
	case dtypes.Int16:
		return cumulativeKernel[int16](op, product, axis), nil
	case dtypes.Int32:
		return cumulativeKernel[int32](op, product, axis), nil
	case dtypes.Int64:
		return cumulativeKernel[int64](op, product, axis), nil
	case dtypes.Uint8:
		return cumulativeKernel[uint8](op, product, axis), nil
	case dtypes.Uint16:
		return cumulativeKernel[uint16](op, product, axis), nil
	case dtypes.Uint32:
		return cumulativeKernel[uint32](op, product, axis), nil
	case dtypes.Uint64:
		return cumulativeKernel[uint64](op, product, axis), nil
	case dtypes.Float32:
		return cumulativeKernel[float32](op, product, axis), nil
	case dtypes.Float64:
		return cumulativeKernel[float64](op, product, axis), nil
	case dtypes.Complex64:
		return cumulativeKernel[complex64](op, product, axis), nil
	case dtypes.Complex128:
		return cumulativeKernel[complex128](op, product, axis), nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "%s for dtype %s", op, inputTypes[0].DType)
}

// cumulativeKernel scans along axis, or over the flattened input if axis < 0.
func cumulativeKernel[T number](op backends.Op, product bool, axis int) RunFn {
	return func(inputs []*tensors.Tensor, slot *OutputSlot) (*tensors.Tensor, error) {
		x := inputs[0]
		if product {
			WarnCumprodZeros(op, x)
		}
		dims := x.Dimensions()
		if axis < 0 {
			dims = []int{x.Size()}
		}
		output, err := slot.Ensure(x.DType(), dims...)
		if err != nil {
			return nil, err
		}
		src, dst := tensors.FlatData[T](x), tensors.FlatData[T](output)
		if axis < 0 {
			if src64, ok := any(src).([]float64); ok {
				dst64 := any(dst).([]float64)
				if product {
					floats.CumProd(dst64, src64)
				} else {
					floats.CumSum(dst64, src64)
				}
				return output, nil
			}
			var acc T
			for ii, v := range src {
				switch {
				case ii == 0:
					acc = v
				case product:
					acc *= v
				default:
					acc += v
				}
				dst[ii] = acc
			}
			return output, nil
		}

		outer, n, inner := 1, dims[axis], 1
		for _, dim := range dims[:axis] {
			outer *= dim
		}
		for _, dim := range dims[axis+1:] {
			inner *= dim
		}
		if n == 0 || inner == 0 {
			return output, nil
		}
		// Each outer block is scanned independently.
		slot.Workers().Split(outer, max(1, minElementsPerChunk/(n*inner)), func(start, end int) {
			for o := start; o < end; o++ {
				base := o * n * inner
				copy(dst[base:base+inner], src[base:base+inner])
				for k := 1; k < n; k++ {
					prev := dst[base+(k-1)*inner : base+k*inner]
					current := dst[base+k*inner : base+(k+1)*inner]
					values := src[base+k*inner : base+(k+1)*inner]
					if product {
						for ii, v := range values {
							current[ii] = prev[ii] * v
						}
					} else {
						for ii, v := range values {
							current[ii] = prev[ii] + v
						}
					}
				}
			}
		})
		return output, nil
	}
}
