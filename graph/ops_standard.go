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
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// This file holds the standard operations: the ones used to build shape expressions and gradients of the
// extra operators.

func init() {
	registerOp(backends.OpTypeConstant, opDef{build: buildConstant})
	registerOp(backends.OpTypeShapeOf, opDef{build: buildShapeOf, vjp: disconnectedVJP})
	registerOp(backends.OpTypeDimOf, opDef{build: buildDimOf, vjp: disconnectedVJP})
	registerOp(backends.OpTypeStack, opDef{build: buildStack, vjp: disconnectedVJP})
	registerOp(backends.OpTypeReshape, opDef{build: buildReshape, vjp: reshapeVJP, isView: alwaysView})
	registerOp(backends.OpTypeConvertDType, opDef{build: buildConvertDType, vjp: convertDTypeVJP})
	for _, opType := range []backends.OpType{backends.OpTypeAdd, backends.OpTypeSub, backends.OpTypeMul,
		backends.OpTypeDiv, backends.OpTypeMaximum, backends.OpTypeLessThan} {
		registerOp(opType, opDef{build: buildBinary, vjp: binaryVJP})
	}
	registerOp(backends.OpTypeWhere, opDef{build: buildWhere, vjp: whereVJP})
	registerOp(backends.OpTypeReduceSum, opDef{build: buildReduce, vjp: reduceSumVJP})
	registerOp(backends.OpTypeReduceMax, opDef{build: buildReduce})
	registerOp(backends.OpTypeReverse, opDef{build: buildReverse, vjp: reverseVJP})
	registerOp(backends.OpTypeConcatenate, opDef{build: buildConcatenate})
	registerOp(backends.OpTypeFill, opDef{build: buildFill, vjp: fillVJP})
	registerOp(backends.OpTypeDimShuffle, opDef{build: buildDimShuffle, vjp: dimShuffleVJP, isView: alwaysView})
	registerOp(backends.OpTypeExtractDiagonal, opDef{build: buildExtractDiagonal})
}

func isIntegerDType(dtype dtypes.DType) bool { return shapes.IsInteger(dtype) }

// differentiable returns whether gradients can flow into values of the dtype.
func differentiable(dtype dtypes.DType) bool {
	return shapes.IsFloat(dtype) || shapes.IsComplex(dtype)
}

func adjustAxisOrThrow(op backends.Op, axis, rank int) int {
	adjusted, err := shapes.AdjustAxis(axis, rank)
	if err != nil {
		shapeErrorf("%s: axis %d is out of bounds for input of rank %d", op, axis, rank)
	}
	return adjusted
}

// Const creates a constant in the graph with the given value. The value can be a *tensors.Tensor, or anything
// accepted by tensors.FromAnyValue (Go scalars and regular multidimensional slices).
//
// Axes of dimension 1 are broadcastable.
func Const(g *Graph, value any) *Node {
	var t *tensors.Tensor
	err := exceptions.TryCatch[error](func() { t = tensors.FromAnyValue(value) })
	if err != nil {
		typeErrorf("Const(%T): %v", value, err)
	}
	return newNode(g, backends.ConstantOp{Value: t})
}

func buildConstant(_ *Graph, op backends.Op, _ []*Node) OutputType {
	return TypeOfShape(op.(backends.ConstantOp).Value.Shape())
}

// Scalar returns a constant scalar of the given dtype with the value converted from float64.
// Scalars are cached per graph.
func Scalar(g *Graph, dtype dtypes.DType, value float64) *Node {
	return g.getScalarConst(dtype, value)
}

// ScalarLike returns a constant scalar with the same dtype as x.
func ScalarLike(x *Node, value float64) *Node {
	return Scalar(x.Graph(), x.DType(), value)
}

// ShapeOf returns the dimensions of x as an Int64 vector, computed at execution time.
func ShapeOf(x *Node) *Node {
	return newNode(x.Graph(), backends.ShapeOfOp{}, x)
}

func buildShapeOf(_ *Graph, _ backends.Op, inputs []*Node) OutputType {
	return MakeType(dtypes.Int64, inputs[0].Rank())
}

// DimOf returns the dimension of the axis of x as an Int64 scalar. If the dimension is known at graph building
// time it returns a constant.
func DimOf(x *Node, axis int) *Node {
	op := backends.DimOfOp{Axis: adjustAxisOrThrow(backends.DimOfOp{Axis: axis}, axis, x.Rank())}
	if dim := x.outputType.Dimensions[op.Axis]; dim != UnknownDim {
		return Scalar(x.Graph(), dtypes.Int64, float64(dim))
	}
	return newNode(x.Graph(), op, x)
}

func buildDimOf(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	adjustAxisOrThrow(op, op.(backends.DimOfOp).Axis, inputs[0].Rank())
	return MakeType(dtypes.Int64)
}

// Stack integer scalars into an Int64 vector.
func Stack(scalars ...*Node) *Node {
	if len(scalars) == 0 {
		exceptions.Panicf("Stack requires at least one scalar")
	}
	return newNode(scalars[0].Graph(), backends.StackOp{}, scalars...)
}

func buildStack(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	for ii, input := range inputs {
		if !input.IsScalar() {
			shapeErrorf("%s: input #%d must be a scalar, got %s", op, ii, input.outputType)
		}
		if !isIntegerDType(input.DType()) {
			typeErrorf("%s: input #%d must be an integer, got %s", op, ii, input.DType())
		}
	}
	return MakeType(dtypes.Int64, len(inputs))
}

// staticDimsOf returns what is known at graph building time about the values of an integer shape vector.
// Broadcastable axes are only returned when the shape vector is the ShapeOf another node.
func staticDimsOf(shape *Node) (dims []int, broadcastable []bool) {
	rank := shape.outputType.Dimensions[0]
	switch {
	case shape.ConstValue() != nil:
		for _, dim := range shape.ConstValue().Int64s() {
			dims = append(dims, int(dim))
		}
	case shape.Type() == backends.OpTypeShapeOf:
		source := shape.inputNodes[0]
		return source.Dims(), source.Broadcastable()
	case shape.Type() == backends.OpTypeStack:
		for _, scalar := range shape.inputNodes {
			dim := UnknownDim
			if value := scalar.ConstValue(); value != nil {
				dim = int(value.Int64s()[0])
			} else if scalar.Type() == backends.OpTypeDimOf {
				dim = scalar.inputNodes[0].outputType.Dimensions[scalar.op.(backends.DimOfOp).Axis]
			}
			dims = append(dims, dim)
		}
	default:
		dims = make([]int, rank)
		for axis := range dims {
			dims[axis] = UnknownDim
		}
	}
	broadcastable = make([]bool, len(dims))
	for axis, dim := range dims {
		broadcastable[axis] = dim == 1
	}
	return
}

func checkShapeVector(op backends.Op, shape *Node) {
	if shape.Rank() != 1 {
		shapeErrorf("%s: shape must be a vector, got %s", op, shape.outputType)
	}
	if !isIntegerDType(shape.DType()) {
		typeErrorf("%s: shape must be an integer vector, got %s", op, shape.DType())
	}
	if shape.outputType.Dimensions[0] == UnknownDim {
		shapeErrorf("%s: the length of the shape vector must be known at graph building time", op)
	}
}

// Reshape x to the dimensions given by the integer vector shape. The length of shape (the output rank) must be
// known at graph building time, its values may only be known at execution time.
//
// The output is a view of x.
func Reshape(x, shape *Node) *Node {
	return newNode(x.Graph(), backends.ReshapeOp{}, x, shape)
}

func buildReshape(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x, shape := inputs[0], inputs[1]
	checkShapeVector(op, shape)
	dims, broadcastable := staticDimsOf(shape)
	for axis, dim := range dims {
		if dim < UnknownDim {
			shapeErrorf("%s: invalid dimension %d for axis %d", op, dim, axis)
		}
	}
	output := OutputType{DType: x.DType(), Dimensions: dims, Broadcastable: broadcastable}
	xSize, xOk := x.outputType.Size()
	outputSize, outputOk := output.Size()
	if xOk && outputOk && xSize != outputSize {
		shapeErrorf("%s: cannot reshape %s to %v", op, x.outputType, dims)
	}
	return output
}

func reshapeVJP(node, v *Node) []Grad {
	x := node.inputNodes[0]
	return []Grad{gradValue(Reshape(v, ShapeOf(x))), disconnected()}
}

// ConvertDType converts x to dtype. If x already has the dtype, x is returned.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	if x.DType() == dtype {
		return x
	}
	return newNode(x.Graph(), backends.ConvertDTypeOp{DType: dtype}, x)
}

func buildConvertDType(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	t := inputs[0].outputType.Clone()
	t.DType = op.(backends.ConvertDTypeOp).DType
	return t
}

func convertDTypeVJP(node, v *Node) []Grad {
	return []Grad{gradValue(ConvertDType(v, node.inputNodes[0].DType()))}
}

// Add returns the element-wise sum of a and b. They must have the same dtype, and either the same dimensions
// or one of them must be a scalar. The same holds for the other element-wise binary operations.
func Add(a, b *Node) *Node { return binaryOp(backends.OpTypeAdd, a, b) }

// Sub returns the element-wise difference a-b.
func Sub(a, b *Node) *Node { return binaryOp(backends.OpTypeSub, a, b) }

// Mul returns the element-wise product a*b.
func Mul(a, b *Node) *Node { return binaryOp(backends.OpTypeMul, a, b) }

// Div returns the element-wise division a/b.
func Div(a, b *Node) *Node { return binaryOp(backends.OpTypeDiv, a, b) }

// Maximum returns the element-wise maximum of a and b.
func Maximum(a, b *Node) *Node { return binaryOp(backends.OpTypeMaximum, a, b) }

// LessThan returns the element-wise a < b as a Bool node.
func LessThan(a, b *Node) *Node { return binaryOp(backends.OpTypeLessThan, a, b) }

// Neg returns -x.
func Neg(x *Node) *Node { return Mul(x, ScalarLike(x, -1)) }

func binaryOp(opType backends.OpType, a, b *Node) *Node {
	return newNode(a.Graph(), backends.BinaryOp{Kind: opType}, a, b)
}

// broadcastTypes returns the dimensions and broadcastable pattern of element-wise operations.
func broadcastTypes(op backends.Op, types ...OutputType) (dims []int, broadcastable []bool) {
	var result *OutputType
	for _, t := range types {
		if t.IsScalar() {
			continue
		}
		if result == nil {
			tCopy := t.Clone()
			result = &tCopy
			continue
		}
		if t.Rank() != result.Rank() {
			shapeErrorf("%s: operands must have the same rank or be scalars, got %s and %s", op, result, t)
		}
		for axis := range t.Dimensions {
			dim, ok := mergeDims(result.Dimensions[axis], t.Dimensions[axis])
			if !ok {
				shapeErrorf("%s: operands have incompatible dimensions on axis %d, got %s and %s",
					op, axis, result, t)
			}
			result.Dimensions[axis] = dim
			result.Broadcastable[axis] = result.Broadcastable[axis] && t.Broadcastable[axis]
		}
	}
	if result == nil {
		return []int{}, []bool{}
	}
	return result.Dimensions, result.Broadcastable
}

func buildBinary(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	a, b := inputs[0], inputs[1]
	if a.DType() != b.DType() {
		typeErrorf("%s: operands must have the same dtype, got %s and %s", op, a.DType(), b.DType())
	}
	dtype := a.DType()
	switch op.Type() {
	case backends.OpTypeMaximum, backends.OpTypeLessThan:
		if !shapes.IsRealNumeric(dtype) {
			typeErrorf("%s: operands must be real numbers, got %s", op, dtype)
		}
	default:
		if !shapes.IsNumeric(dtype) {
			typeErrorf("%s: operands must be numbers, got %s", op, dtype)
		}
	}
	dims, broadcastable := broadcastTypes(op, a.outputType, b.outputType)
	if op.Type() == backends.OpTypeLessThan {
		dtype = dtypes.Bool
	}
	return OutputType{DType: dtype, Dimensions: dims, Broadcastable: broadcastable}
}

// unbroadcast sums the gradient of a scalar operand that was broadcast to a larger output.
func unbroadcast(grad, input *Node) *Node {
	if input.IsScalar() && !grad.IsScalar() {
		return ReduceAllSum(grad)
	}
	return grad
}

func binaryVJP(node, v *Node) []Grad {
	a, b := node.inputNodes[0], node.inputNodes[1]
	var gradA, gradB *Node
	switch node.Type() {
	case backends.OpTypeAdd:
		gradA, gradB = v, v
	case backends.OpTypeSub:
		gradA, gradB = v, Neg(v)
	case backends.OpTypeMul:
		gradA, gradB = Mul(v, b), Mul(v, a)
	case backends.OpTypeDiv:
		gradA = Div(v, b)
		gradB = Neg(Div(Mul(v, a), Mul(b, b)))
	case backends.OpTypeMaximum:
		// Ties go to a.
		bIsMax := LessThan(a, b)
		zero := ScalarLike(v, 0)
		gradA = Where(bIsMax, zero, v)
		gradB = Where(bIsMax, v, zero)
	default:
		return []Grad{disconnected(), disconnected()}
	}
	return []Grad{gradValue(unbroadcast(gradA, a)), gradValue(unbroadcast(gradB, b))}
}

// Where selects element-wise onTrue where cond is true, and onFalse otherwise. The operands must have the
// same dimensions, or be scalars.
func Where(cond, onTrue, onFalse *Node) *Node {
	return newNode(cond.Graph(), backends.WhereOp{}, cond, onTrue, onFalse)
}

func buildWhere(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	cond, onTrue, onFalse := inputs[0], inputs[1], inputs[2]
	if cond.DType() != dtypes.Bool {
		typeErrorf("%s: condition must be a Bool, got %s", op, cond.DType())
	}
	if onTrue.DType() != onFalse.DType() {
		typeErrorf("%s: operands must have the same dtype, got %s and %s", op, onTrue.DType(), onFalse.DType())
	}
	dims, broadcastable := broadcastTypes(op, cond.outputType, onTrue.outputType, onFalse.outputType)
	return OutputType{DType: onTrue.DType(), Dimensions: dims, Broadcastable: broadcastable}
}

func whereVJP(node, v *Node) []Grad {
	cond, onTrue, onFalse := node.inputNodes[0], node.inputNodes[1], node.inputNodes[2]
	zero := ScalarLike(v, 0)
	return []Grad{
		disconnected(),
		gradValue(unbroadcast(Where(cond, v, zero), onTrue)),
		gradValue(unbroadcast(Where(cond, zero, v), onFalse)),
	}
}

// ReduceSum sums x over the given axes. If no axes are given, it sums over all of them.
func ReduceSum(x *Node, axes ...int) *Node {
	return reduceOp(backends.OpTypeReduceSum, x, axes)
}

// ReduceAllSum sums all the elements of x, returning a scalar.
func ReduceAllSum(x *Node) *Node {
	return ReduceSum(x)
}

// ReduceAllMax returns the maximum of all elements of x, as a scalar. For empty inputs it returns the lowest
// value of the dtype.
func ReduceAllMax(x *Node) *Node {
	return reduceOp(backends.OpTypeReduceMax, x, nil)
}

func reduceOp(opType backends.OpType, x *Node, axes []int) *Node {
	op := backends.ReduceOp{Kind: opType}
	if x.Rank() > backends.MaxRank {
		shapeErrorf("%s: rank %d is larger than the maximum supported %d", opType, x.Rank(), backends.MaxRank)
	}
	if len(axes) == 0 {
		for axis := range x.Rank() {
			op.Axes |= backends.MaskOf(axis)
		}
	}
	for _, axis := range axes {
		adjusted := adjustAxisOrThrow(op, axis, x.Rank())
		if op.Axes.Has(adjusted) {
			shapeErrorf("%s: axis %d given more than once", opType, axis)
		}
		op.Axes |= backends.MaskOf(adjusted)
	}
	return newNode(x.Graph(), op, x)
}

func buildReduce(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	reduceOp := op.(backends.ReduceOp)
	if reduceOp.Kind == backends.OpTypeReduceMax && !shapes.IsRealNumeric(x.DType()) {
		typeErrorf("%s: input must be real numbers, got %s", op, x.DType())
	} else if !shapes.IsNumeric(x.DType()) {
		typeErrorf("%s: input must be numbers, got %s", op, x.DType())
	}
	output := OutputType{DType: x.DType(), Dimensions: []int{}, Broadcastable: []bool{}}
	for axis := range x.Rank() {
		if !reduceOp.Axes.Has(axis) {
			output.Dimensions = append(output.Dimensions, x.outputType.Dimensions[axis])
			output.Broadcastable = append(output.Broadcastable, x.outputType.Broadcastable[axis])
		}
	}
	return output
}

func reduceSumVJP(node, v *Node) []Grad {
	x := node.inputNodes[0]
	if node.op.(backends.ReduceOp).Axes.Len() != x.Rank() {
		return []Grad{gradNotImplemented("gradient of partial reductions")}
	}
	return []Grad{gradValue(Fill(ShapeOf(x), v))}
}

// Reverse the order of the elements of x along the axis.
func Reverse(x *Node, axis int) *Node {
	op := backends.ReverseOp{Axis: axis}
	op.Axis = adjustAxisOrThrow(op, axis, x.Rank())
	return newNode(x.Graph(), op, x)
}

func buildReverse(_ *Graph, _ backends.Op, inputs []*Node) OutputType {
	return inputs[0].outputType.Clone()
}

func reverseVJP(node, v *Node) []Grad {
	return []Grad{gradValue(Reverse(v, node.op.(backends.ReverseOp).Axis))}
}

// Concatenate xs along the axis. All operands must have the same dtype and rank, and the same dimensions
// on the other axes.
func Concatenate(axis int, xs ...*Node) *Node {
	if len(xs) == 0 {
		exceptions.Panicf("Concatenate requires at least one operand")
	}
	if len(xs) == 1 {
		return xs[0]
	}
	op := backends.ConcatenateOp{Axis: axis}
	op.Axis = adjustAxisOrThrow(op, axis, xs[0].Rank())
	return newNode(xs[0].Graph(), op, xs...)
}

func buildConcatenate(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	axis := op.(backends.ConcatenateOp).Axis
	output := inputs[0].outputType.Clone()
	output.Broadcastable[axis] = false
	for ii, input := range inputs[1:] {
		if input.DType() != output.DType {
			typeErrorf("%s: operand #%d has dtype %s, expected %s", op, ii+1, input.DType(), output.DType)
		}
		if input.Rank() != output.Rank() {
			shapeErrorf("%s: operand #%d has rank %d, expected %d", op, ii+1, input.Rank(), output.Rank())
		}
		for otherAxis, dim := range input.outputType.Dimensions {
			if otherAxis == axis {
				if dim == UnknownDim || output.Dimensions[axis] == UnknownDim {
					output.Dimensions[axis] = UnknownDim
				} else {
					output.Dimensions[axis] += dim
				}
				continue
			}
			merged, ok := mergeDims(output.Dimensions[otherAxis], dim)
			if !ok {
				shapeErrorf("%s: operand #%d has dimension %d on axis %d, expected %d",
					op, ii+1, dim, otherAxis, output.Dimensions[otherAxis])
			}
			output.Dimensions[otherAxis] = merged
			output.Broadcastable[otherAxis] = output.Broadcastable[otherAxis] && input.outputType.Broadcastable[otherAxis]
		}
	}
	return output
}

// Fill returns a tensor with the dimensions given by the integer vector shape, filled with the scalar value.
func Fill(shape, value *Node) *Node {
	return newNode(shape.Graph(), backends.FillOp{}, shape, value)
}

func buildFill(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	shape, value := inputs[0], inputs[1]
	checkShapeVector(op, shape)
	if !value.IsScalar() {
		shapeErrorf("%s: value must be a scalar, got %s", op, value.outputType)
	}
	dims, broadcastable := staticDimsOf(shape)
	return OutputType{DType: value.DType(), Dimensions: dims, Broadcastable: broadcastable}
}

func fillVJP(_, v *Node) []Grad {
	return []Grad{disconnected(), gradValue(ReduceAllSum(v))}
}

// ZerosLike returns zeros with the same type as x.
func ZerosLike(x *Node) *Node {
	return Fill(ShapeOf(x), ScalarLike(x, 0))
}

// OnesLike returns ones with the same type as x.
func OnesLike(x *Node) *Node {
	return Fill(ShapeOf(x), ScalarLike(x, 1))
}

// DimShuffle drops the given axes of x, which must be broadcastable.
//
// The output is a view of x.
func DimShuffle(x *Node, drop ...int) *Node {
	op := backends.DimShuffleOp{}
	if x.Rank() > backends.MaxRank {
		shapeErrorf("%s: rank %d is larger than the maximum supported %d", op, x.Rank(), backends.MaxRank)
	}
	for _, axis := range drop {
		op.Drop |= backends.MaskOf(adjustAxisOrThrow(op, axis, x.Rank()))
	}
	return newNode(x.Graph(), op, x)
}

func buildDimShuffle(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	drop := op.(backends.DimShuffleOp).Drop
	output := OutputType{DType: x.DType(), Dimensions: []int{}, Broadcastable: []bool{}}
	for axis := range x.Rank() {
		if drop.Has(axis) {
			if !x.outputType.Broadcastable[axis] {
				shapeErrorf("%s: cannot drop axis %d of %s, it is not broadcastable", op, axis, x.outputType)
			}
			continue
		}
		output.Dimensions = append(output.Dimensions, x.outputType.Dimensions[axis])
		output.Broadcastable = append(output.Broadcastable, x.outputType.Broadcastable[axis])
	}
	return output
}

func dimShuffleVJP(node, v *Node) []Grad {
	return []Grad{gradValue(Reshape(v, ShapeOf(node.inputNodes[0])))}
}

// ExtractDiagonal returns the main diagonal of the matrix x.
func ExtractDiagonal(x *Node) *Node {
	return newNode(x.Graph(), backends.ExtractDiagonalOp{}, x)
}

func buildExtractDiagonal(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	if x.Rank() != 2 {
		shapeErrorf("%s: input must be a matrix, got %s", op, x.outputType)
	}
	dims := x.outputType.Dimensions
	dim := UnknownDim
	if !slices.Contains(dims, UnknownDim) {
		dim = min(dims[0], dims[1])
	}
	return OutputType{DType: x.DType(), Dimensions: []int{dim}, Broadcastable: []bool{false}}
}
