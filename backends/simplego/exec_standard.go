package simplego

import (
	"math"
	"slices"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// This file implements the runtime operators used to express gradients and shapes.

func init() {
	nodeExecutors[backends.OpTypeParameter] = execParameter
	nodeExecutors[backends.OpTypeConstant] = execConstant
	nodeExecutors[backends.OpTypeShapeOf] = execShapeOf
	nodeExecutors[backends.OpTypeDimOf] = execDimOf
	nodeExecutors[backends.OpTypeStack] = execStack
	nodeExecutors[backends.OpTypeReshape] = execReshape
	nodeExecutors[backends.OpTypeConvertDType] = execConvertDType
	nodeExecutors[backends.OpTypeAdd] = execBinary
	nodeExecutors[backends.OpTypeSub] = execBinary
	nodeExecutors[backends.OpTypeMul] = execBinary
	nodeExecutors[backends.OpTypeDiv] = execBinary
	nodeExecutors[backends.OpTypeMaximum] = execBinary
	nodeExecutors[backends.OpTypeLessThan] = execBinary
	nodeExecutors[backends.OpTypeWhere] = execWhere
	nodeExecutors[backends.OpTypeReduceSum] = execReduce
	nodeExecutors[backends.OpTypeReduceMax] = execReduce
	nodeExecutors[backends.OpTypeReverse] = execReverse
	nodeExecutors[backends.OpTypeConcatenate] = execConcatenate
	nodeExecutors[backends.OpTypeFill] = execFill
	nodeExecutors[backends.OpTypeDimShuffle] = execDimShuffle
	nodeExecutors[backends.OpTypeExtractDiagonal] = execExtractDiagonal
}

var (
	dispatchBinary    = NewDTypeDispatcher("Binary")
	dispatchLessThan  = NewDTypeDispatcher("LessThan")
	dispatchReduceSum = NewDTypeDispatcher("ReduceSum")
	dispatchReduceMax = NewDTypeDispatcher("ReduceMax")
)

func execParameter(_ *Backend, op backends.Op, _ []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	execErrorf("%s must be fed by the graph executor", op)
	return nil
}

// execConstant returns a copy of the value, so the constant can't be changed through its outputs.
func execConstant(_ *Backend, op backends.Op, _ []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	return op.(backends.ConstantOp).Value.Clone()
}

func execShapeOf(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	dims := inputs[0].Dimensions()
	values := make([]int64, len(dims))
	for ii, dim := range dims {
		values[ii] = int64(dim)
	}
	return tensors.FromFlatDataAndDimensions(values, len(values))
}

func execDimOf(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	axis := op.(backends.DimOfOp).Axis
	return tensors.FromScalar(int64(inputs[0].Shape().Dim(axis)))
}

func execStack(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	values := make([]int64, len(inputs))
	for ii, input := range inputs {
		values[ii] = scalarInt64(input)
	}
	return tensors.FromFlatDataAndDimensions(values, len(values))
}

// execReshape returns a view of the input.
func execReshape(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	x := inputs[0]
	dims := dimensionsFrom(inputs[1])
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	if size != x.Size() {
		execErrorf("cannot reshape %s (%d elements) to %v", x.Shape(), x.Size(), dims)
	}
	return tensors.NewView(x, dims...)
}

func execConvertDType(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	return inputs[0].ConvertDType(outputDType)
}

// broadcastDimensions returns the dimensions of the element-wise operation on the inputs: all non-scalar
// inputs must have the same dimensions.
func broadcastDimensions(op backends.Op, inputs ...*tensors.Tensor) []int {
	var dims []int
	found := false
	for _, input := range inputs {
		if input.IsScalar() {
			continue
		}
		if !found {
			dims, found = input.Dimensions(), true
			continue
		}
		if !slices.Equal(dims, input.Shape().Dimensions) {
			execErrorf("%s: operands have incompatible dimensions %v and %v", op, dims, input.Shape().Dimensions)
		}
	}
	return dims
}

func execBinary(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	output := newOutput(outputDType, broadcastDimensions(op, inputs[0], inputs[1])...)
	if op.Type() == backends.OpTypeLessThan {
		dispatchLessThan.Dispatch(inputs[0].DType(), op, inputs, output)
	} else {
		dispatchBinary.Dispatch(inputs[0].DType(), op, inputs, output)
	}
	return output
}

// broadcastStride is 0 for scalars, 1 otherwise.
func broadcastStride(t *tensors.Tensor) int {
	if t.IsScalar() {
		return 0
	}
	return 1
}

func execBinaryGeneric[T PODNumericConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	lhs, rhs := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](inputs[1])
	lhsStride, rhsStride := broadcastStride(inputs[0]), broadcastStride(inputs[1])
	out := tensors.FlatData[T](output)
	var fn func(a, b T) T
	switch op.Type() {
	case backends.OpTypeAdd:
		fn = func(a, b T) T { return a + b }
	case backends.OpTypeSub:
		fn = func(a, b T) T { return a - b }
	case backends.OpTypeMul:
		fn = func(a, b T) T { return a * b }
	case backends.OpTypeDiv:
		fn = func(a, b T) T { return a / b }
	case backends.OpTypeMaximum:
		fn = func(a, b T) T { return max(a, b) }
	default:
		execErrorf("%s is not a binary arithmetic operation", op)
	}
	for ii := range out {
		out[ii] = fn(lhs[ii*lhsStride], rhs[ii*rhsStride])
	}
}

func execBinaryComplexGeneric[T PODComplexConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	lhs, rhs := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](inputs[1])
	lhsStride, rhsStride := broadcastStride(inputs[0]), broadcastStride(inputs[1])
	out := tensors.FlatData[T](output)
	var fn func(a, b T) T
	switch op.Type() {
	case backends.OpTypeAdd:
		fn = func(a, b T) T { return a + b }
	case backends.OpTypeSub:
		fn = func(a, b T) T { return a - b }
	case backends.OpTypeMul:
		fn = func(a, b T) T { return a * b }
	case backends.OpTypeDiv:
		fn = func(a, b T) T { return a / b }
	default:
		execErrorf("%s is not defined for complex numbers", op)
	}
	for ii := range out {
		out[ii] = fn(lhs[ii*lhsStride], rhs[ii*rhsStride])
	}
}

func execLessThanGeneric[T PODNumericConstraints](_ backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	lhs, rhs := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](inputs[1])
	lhsStride, rhsStride := broadcastStride(inputs[0]), broadcastStride(inputs[1])
	out := tensors.FlatData[bool](output)
	for ii := range out {
		out[ii] = lhs[ii*lhsStride] < rhs[ii*rhsStride]
	}
}

// execWhere copies the selected elements byte by byte, so it works for every dtype.
func execWhere(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	cond, onTrue, onFalse := inputs[0], inputs[1], inputs[2]
	output := newOutput(outputDType, broadcastDimensions(op, cond, onTrue, onFalse)...)
	condFlat := tensors.FlatData[bool](cond)
	condStride, trueStride, falseStride := broadcastStride(cond), broadcastStride(onTrue), broadcastStride(onFalse)
	elemSize := elementSize(output)
	trueBytes, falseBytes, outBytes := onTrue.Bytes(), onFalse.Bytes(), output.Bytes()
	for ii := range output.Size() {
		var src []byte
		if condFlat[ii*condStride] {
			src = trueBytes[ii*trueStride*elemSize:]
		} else {
			src = falseBytes[ii*falseStride*elemSize:]
		}
		copy(outBytes[ii*elemSize:(ii+1)*elemSize], src[:elemSize])
	}
	return output
}

// reducedOffsets returns, for each element of a tensor with the given dimensions, the flat index of
// the output element it is reduced into.
func reducedOffsets(dimensions []int, axes backends.AxesMask) []int {
	rank := len(dimensions)
	outStrides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		if !axes.Has(axis) {
			outStrides[axis] = stride
			stride *= dimensions[axis]
		}
	}
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	offsets := make([]int, size)
	indices := make([]int, rank)
	offset := 0
	for flatIdx := range size {
		offsets[flatIdx] = offset
		for axis := rank - 1; axis >= 0; axis-- {
			indices[axis]++
			offset += outStrides[axis]
			if indices[axis] < dimensions[axis] {
				break
			}
			offset -= outStrides[axis] * indices[axis]
			indices[axis] = 0
		}
	}
	return offsets
}

func execReduce(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	reduceOp := op.(backends.ReduceOp)
	x := inputs[0]
	dims := x.Dimensions()
	outputDims := make([]int, 0, len(dims))
	for axis, dim := range dims {
		if axis >= backends.MaxRank {
			execErrorf("%s: rank %d not supported", op, len(dims))
		}
		if !reduceOp.Axes.Has(axis) {
			outputDims = append(outputDims, dim)
		}
	}
	output := newOutput(outputDType, outputDims...)
	if reduceOp.Kind == backends.OpTypeReduceMax {
		dispatchReduceMax.Dispatch(x.DType(), op, inputs, output)
	} else {
		dispatchReduceSum.Dispatch(x.DType(), op, inputs, output)
	}
	return output
}

func execReduceSumGeneric[T PODNumericOrComplexConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	offsets := reducedOffsets(inputs[0].Shape().Dimensions, op.(backends.ReduceOp).Axes)
	in, out := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](output)
	for ii, v := range in {
		out[offsets[ii]] += v
	}
}

// lowestValue returns the identity of the max operation for T.
func lowestValue[T PODNumericConstraints]() T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = math.MinInt8
	case *int16:
		*p = math.MinInt16
	case *int32:
		*p = math.MinInt32
	case *int64:
		*p = math.MinInt64
	case *float32:
		*p = float32(math.Inf(-1))
	case *float64:
		*p = math.Inf(-1)
	}
	return v
}

func execReduceMaxGeneric[T PODNumericConstraints](op backends.Op, inputs []*tensors.Tensor, output *tensors.Tensor) {
	offsets := reducedOffsets(inputs[0].Shape().Dimensions, op.(backends.ReduceOp).Axes)
	in, out := tensors.FlatData[T](inputs[0]), tensors.FlatData[T](output)
	lowest := lowestValue[T]()
	for ii := range out {
		out[ii] = lowest
	}
	for ii, v := range in {
		out[offsets[ii]] = max(out[offsets[ii]], v)
	}
}

func execReverse(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	x := inputs[0]
	axis := op.(backends.ReverseOp).Axis
	output := newOutput(outputDType, x.Shape().Dimensions...)
	if x.Size() == 0 {
		return output
	}
	outer, n, inner := splitAxis(x.Shape().Dimensions, axis)
	blockSize := inner * elementSize(x)
	src, dst := x.Bytes(), output.Bytes()
	for o := range outer {
		base := o * n * blockSize
		for k := range n {
			from := base + k*blockSize
			to := base + (n-1-k)*blockSize
			copy(dst[to:to+blockSize], src[from:from+blockSize])
		}
	}
	return output
}

func execConcatenate(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	axis := op.(backends.ConcatenateOp).Axis
	outputDims := inputs[0].Dimensions()
	outputDims[axis] = 0
	for _, input := range inputs {
		dims := input.Shape().Dimensions
		if len(dims) != len(outputDims) {
			execErrorf("%s: inputs of different ranks %v and %v", op, inputs[0].Shape(), input.Shape())
		}
		for ii, dim := range dims {
			if ii != axis && dim != outputDims[ii] {
				execErrorf("%s: incompatible input shapes %s and %s", op, inputs[0].Shape(), input.Shape())
			}
		}
		outputDims[axis] += dims[axis]
	}
	output := newOutput(outputDType, outputDims...)
	if output.Size() == 0 {
		return output
	}
	elemSize := elementSize(output)
	outer, _, _ := splitAxis(outputDims, axis)
	dst := output.Bytes()
	pos := 0
	for o := range outer {
		for _, input := range inputs {
			_, n, inner := splitAxis(input.Shape().Dimensions, axis)
			blockSize := n * inner * elemSize
			if blockSize == 0 {
				continue
			}
			copy(dst[pos:pos+blockSize], input.Bytes()[o*blockSize:(o+1)*blockSize])
			pos += blockSize
		}
	}
	return output
}

func execFill(_ *Backend, _ backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	dims := dimensionsFrom(inputs[0])
	value := inputs[1]
	if value.Size() != 1 {
		execErrorf("Fill value must be a scalar, got shape %s", value.Shape())
	}
	output := newOutput(outputDType, dims...)
	elemSize := elementSize(output)
	valueBytes, dst := value.Bytes(), output.Bytes()
	for ii := range output.Size() {
		copy(dst[ii*elemSize:(ii+1)*elemSize], valueBytes)
	}
	return output
}

// execDimShuffle returns a view of the input, without the dropped axes.
func execDimShuffle(_ *Backend, op backends.Op, inputs []*tensors.Tensor, _ dtypes.DType) *tensors.Tensor {
	drop := op.(backends.DimShuffleOp).Drop
	x := inputs[0]
	dims := make([]int, 0, x.Rank())
	for axis, dim := range x.Shape().Dimensions {
		if drop.Has(axis) {
			if dim != 1 {
				execErrorf("%s: cannot drop axis %d of %s, its dimension is not 1", op, axis, x.Shape())
			}
			continue
		}
		dims = append(dims, dim)
	}
	return tensors.NewView(x, dims...)
}

func execExtractDiagonal(_ *Backend, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) *tensors.Tensor {
	x := inputs[0]
	if x.Rank() != 2 {
		execErrorf("%s requires a matrix, got shape %s", op, x.Shape())
	}
	rows, cols := x.Shape().Dimensions[0], x.Shape().Dimensions[1]
	n := min(rows, cols)
	output := newOutput(outputDType, n)
	elemSize := elementSize(x)
	src, dst := x.Bytes(), output.Bytes()
	for ii := range n {
		from := (ii*cols + ii) * elemSize
		copy(dst[ii*elemSize:(ii+1)*elemSize], src[from:from+elemSize])
	}
	return output
}
