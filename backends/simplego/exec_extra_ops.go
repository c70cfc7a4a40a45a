package simplego

import (
	"math"
	"slices"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/backends/native"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// This file implements the reference executors of the extra operators.

func init() {
	nodeExecutors[backends.OpTypeSearchsorted] = execSearchsorted
	nodeExecutors[backends.OpTypeCumsum] = execCumulative
	nodeExecutors[backends.OpTypeCumprod] = execCumulative
	nodeExecutors[backends.OpTypeDiff] = execDiff
	nodeExecutors[backends.OpTypeBinCount] = execBinCount
	nodeExecutors[backends.OpTypeRepeat] = execRepeat
	nodeExecutors[backends.OpTypeBartlett] = execBartlett
	nodeExecutors[backends.OpTypeFillDiagonal] = execFillDiagonal
}

var (
	dispatchSearchsorted = NewDTypeDispatcher("Searchsorted")
	dispatchCumulative   = NewDTypeDispatcher("Cumulative")
	dispatchDiff         = NewDTypeDispatcher("Diff")
)

func execSearchsorted(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	x, v := inputs[0], inputs[1]
	if x.Rank() != 1 {
		execErrorf("%s requires a sorted vector, got shape %s", op, x.Shape())
	}
	if x.DType() != v.DType() {
		execErrorf("%s: sorted array (%s) and values (%s) must have the same dtype", op, x.DType(), v.DType())
	}
	if len(inputs) == 3 {
		sorter := inputs[2].Int64s()
		if len(sorter) != x.Size() {
			execErrorf("%s: sorter has %d elements, sorted array has %d", op, len(sorter), x.Size())
		}
		for _, idx := range sorter {
			if idx < 0 || idx >= int64(x.Size()) {
				execErrorf("%s: sorter index %d out of range [0, %d)", op, idx, x.Size())
			}
		}
	}
	output := newOutput(dtypes.Int64, v.Shape().Dimensions...)
	dispatchSearchsorted.Dispatch(x.DType(), op, inputs, output)
	return output
}

// execSearchsortedGeneric assumes the sorter, if given, was validated.
func execSearchsortedGeneric[T PODNumericConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	x, values := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](inputs[1])
	var sorter []int64
	if len(inputs) == 3 {
		sorter = inputs[2].Int64s()
	}
	left := op.(backends.SearchsortedOp).Side == backends.SideLeft
	out := tensors.FlatData[int64](output)
	for ii, v := range values {
		lo, hi := 0, len(x)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			element := x[mid]
			if sorter != nil {
				element = x[sorter[mid]]
			}
			// NaN values go to the end.
			var goLeft bool
			if left {
				goLeft = element >= v
			} else {
				goLeft = element > v
			}
			if goLeft {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		out[ii] = int64(lo)
	}
}


func execCumulative(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	x := inputs[0]
	cumOp := op.(backends.CumulativeOp)
	dims := x.Dimensions()
	if cumOp.Axis.IsNone() {
		dims = []int{x.Size()}
	} else if _, err := cumOp.Axis.Normalize(x.Rank()); err != nil {
		execErrorf("%s on shape %s: %v", op, x.Shape(), err)
	}
	output := newOutput(x.DType(), dims...)
	dispatchCumulative.Dispatch(x.DType(), op, inputs, output)
	if cumOp.Kind == backends.OpTypeCumprod {
		native.WarnCumprodZeros(op, x)
	}
	return output
}

// execCumulativeGeneric scans each line along the axis, one line at a time.
func execCumulativeGeneric[T PODNumericOrComplexConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	cumOp := op.(backends.CumulativeOp)
	src, dst := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](output)
	outer, n, inner := 1, len(src), 1
	if !cumOp.Axis.IsNone() {
		axis, _ := cumOp.Axis.Normalize(inputs[0].Rank())
		outer, n, inner = splitAxis(inputs[0].Shape().Dimensions, axis)
	}
	product := cumOp.Kind == backends.OpTypeCumprod
	for o := range outer {
		for i := range inner {
			var acc T
			for k := range n {
				idx := (o*n+k)*inner + i
				switch {
				case k == 0:
					acc = src[idx]
				case product:
					acc *= src[idx]
				default:
					acc += src[idx]
				}
				dst[idx] = acc
			}
		}
	}
}

func execDiff(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	diffOp := op.(backends.DiffOp)
	x := inputs[0]
	if diffOp.N < 0 {
		execErrorf("%s: order must be non-negative", op)
	}
	axis, err := shapes.AdjustAxis(diffOp.Axis, x.Rank())
	if err != nil {
		execErrorf("%s on shape %s: %v", op, x.Shape(), err)
	}
	if diffOp.N == 0 {
		return tensors.NewView(x, x.Shape().Dimensions...)
	}
	dims := x.Dimensions()
	dims[axis] = max(dims[axis]-diffOp.N, 0)
	output := newOutput(x.DType(), dims...)
	dispatchDiff.Dispatch(x.DType(), op, inputs, output)
	return output
}

// execDiffGeneric applies the first order difference N times, in place on a copy of the input.
func execDiffGeneric[T PODNumericOrComplexConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	diffOp := op.(backends.DiffOp)
	x := inputs[0]
	axis, _ := shapes.AdjustAxis(diffOp.Axis, x.Rank())
	outer, n, inner := splitAxis(x.Shape().Dimensions, axis)
	work := tensors.CopyFlatData[T](x)
	length := n
	for step := 0; step < diffOp.N && length > 0; step++ {
		for o := range outer {
			base := o * n * inner
			for k := 0; k < length-1; k++ {
				for i := range inner {
					idx := base + k*inner + i
					work[idx] = work[idx+inner] - work[idx]
				}
			}
		}
		length--
	}
	out := tensors.FlatData[T](output)
	for o := range outer {
		for k := range length {
			for i := range inner {
				out[(o*length+k)*inner+i] = work[(o*n+k)*inner+i]
			}
		}
	}
}

func execBinCount(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	minLength := op.(backends.BinCountOp).MinLength
	x := inputs[0]
	if x.Rank() != 1 {
		execErrorf("%s requires a vector, got shape %s", op, x.Shape())
	}
	values := x.Int64s()
	if x.DType() == dtypes.Uint64 {
		for _, v := range tensors.FlatData[uint64](x) {
			if v > math.MaxInt64 {
				execErrorf("%s: value %d too large", op, v)
			}
		}
	}
	length := int64(max(minLength, 0))
	for _, v := range values {
		if v < 0 {
			execErrorf("%s: input must be non-negative, got %d", op, v)
		}
		length = max(length, v+1)
	}
	var weights []float64
	if len(inputs) == 2 {
		weights = inputs[1].Float64s()
		if len(weights) != len(values) {
			execErrorf("%s: weights have %d elements, input has %d", op, len(weights), len(values))
		}
	}
	if weights != nil {
		output := newOutput(outputDType, int(length))
		counts := tensors.FlatData[float64](output)
		for ii, v := range values {
			counts[v] += weights[ii]
		}
		return output
	}
	counts := make([]int64, length)
	for _, v := range values {
		counts[v]++
	}
	return tensors.FromInt64s(outputDType, counts, int(length))
}

// execRepeat copies blocks of bytes, so it works for every dtype.
func execRepeat(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	repeatOp := op.(backends.RepeatOp)
	x, repeats := inputs[0], inputs[1]
	dims := x.Dimensions()
	axis := 0
	if repeatOp.Axis.IsNone() {
		dims = []int{x.Size()}
	} else {
		var err error
		axis, err = repeatOp.Axis.Normalize(x.Rank())
		if err != nil {
			execErrorf("%s on shape %s: %v", op, x.Shape(), err)
		}
	}
	if repeats.Rank() > 1 {
		execErrorf("%s: repeats must be a scalar or a vector, got shape %s", op, repeats.Shape())
	}
	outer, n, inner := splitAxis(dims, axis)
	counts := repeats.Int64s()
	if len(counts) == 1 && n != 1 {
		counts = slices.Repeat(counts, n)
	}
	if len(counts) != n {
		execErrorf("%s: got %d repeats for an axis of dimension %d", op, len(counts), n)
	}
	total := 0
	for _, count := range counts {
		if count < 0 {
			execErrorf("%s: repeats must be non-negative, got %d", op, count)
		}
		total += int(count)
	}
	dims[axis] = total
	output := newOutput(outputDType, dims...)
	blockSize := inner * elementSize(x)
	if output.Size() == 0 || blockSize == 0 {
		return output
	}
	src, dst := x.Bytes(), output.Bytes()
	pos := 0
	for o := range outer {
		for k, count := range counts {
			from := (o*n + k) * blockSize
			for range count {
				copy(dst[pos:pos+blockSize], src[from:from+blockSize])
				pos += blockSize
			}
		}
	}
	return output
}

func execBartlett(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	m := scalarInt64(inputs[0])
	if m < 1 {
		return newOutput(dtypes.Float64, 0)
	}
	if m == 1 {
		return tensors.FromFlatDataAndDimensions([]float64{1}, 1)
	}
	window := make([]float64, m)
	for ii := range window {
		n := float64(1 - m + 2*int64(ii))
		window[ii] = 1 - math.Abs(n)/float64(m-1)
	}
	return tensors.FromFlatDataAndDimensions(window, int(m))
}

// execFillDiagonal copies the input and overwrites the main diagonal with the value, byte by byte.
func execFillDiagonal(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	a, val := inputs[0], inputs[1]
	if a.Rank() < 2 {
		execErrorf("%s requires at least 2 dimensions, got shape %s", op, a.Shape())
	}
	if val.Size() != 1 {
		execErrorf("%s: value must be a scalar, got shape %s", op, val.Shape())
	}
	if val.DType() != a.DType() {
		val = val.ConvertDType(a.DType())
	}
	dims := a.Shape().Dimensions
	var step, end int
	if a.Rank() == 2 {
		// Rectangular matrices: stop after the last column of the diagonal.
		cols := dims[1]
		step = cols + 1
		end = min(cols*cols, a.Size())
	} else {
		for _, dim := range dims[1:] {
			if dim != dims[0] {
				execErrorf("%s: all dimensions must be equal for inputs with more than 2 dimensions, got shape %s",
					op, a.Shape())
			}
		}
		step = 1
		stride := 1
		for _, dim := range dims[:len(dims)-1] {
			stride *= dim
			step += stride
		}
		end = a.Size()
	}
	output := a.Clone()
	elemSize := elementSize(a)
	valBytes, dst := val.Bytes(), output.Bytes()
	for pos := 0; pos < end; pos += step {
		copy(dst[pos*elemSize:(pos+1)*elemSize], valBytes)
	}
	return output
}
