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

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types"
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
	registerOp(backends.OpTypeRepeat, opDef{build: buildRepeat, inferShape: inferRepeatShape, vjp: repeatVJP})
}

// Repeat repeats each element of x along the axis by the number of times given in repeats: either an integer
// scalar (the same count for every element) or an integer vector with one count per element of the axis.
//
// With backends.AxisNone, x is flattened first and the output is a vector.
//
// If repeats is a constant scalar 1 and an axis is given, the output has exactly the type of x, including
// its broadcastable axes.
func Repeat(x, repeats *Node, axis backends.Axis) *Node {
	op := backends.RepeatOp{Axis: axis}
	if !axis.IsNone() {
		op.Axis = backends.AxisAt(adjustAxisOrThrow(op, axis.Value(), x.Rank()))
	}
	return newNode(x.Graph(), op, x, repeats)
}

// constScalarInt returns the value of an integer constant scalar.
func constScalarInt(node *Node) (int, bool) {
	value := node.ConstValue()
	if value == nil || !value.IsScalar() {
		return 0, false
	}
	return int(value.Int64s()[0]), true
}

func buildRepeat(g *Graph, op backends.Op, inputs []*Node) OutputType {
	x, repeats := inputs[0], inputs[1]
	repeatOp := op.(backends.RepeatOp)
	if !isIntegerDType(repeats.DType()) {
		typeErrorf("%s: repeats must be integers, got %s", op, repeats.DType())
	}
	if unsupported := unsupportedCountDTypes(g.capabilities.PointerBits); unsupported.Has(repeats.DType()) {
		typeErrorf("%s: repeats dtype %s is not supported on a %d-bit platform (unsupported: %v)",
			op, repeats.DType(), g.capabilities.PointerBits, types.SortedKeys(unsupported))
	}
	if repeats.Rank() > 1 {
		shapeErrorf("%s: repeats must be a scalar or a vector, got %s", op, repeats.outputType)
	}
	count, isConst := constScalarInt(repeats)
	if isConst && count < 0 {
		shapeErrorf("%s: repeats must be non-negative, got %d", op, count)
	}

	if repeatOp.Axis.IsNone() {
		dim := UnknownDim
		if size, ok := x.outputType.Size(); ok && isConst {
			dim = size * count
		}
		return OutputType{DType: x.DType(), Dimensions: []int{dim}, Broadcastable: []bool{false}}
	}

	axis := adjustAxisOrThrow(op, repeatOp.Axis.Value(), x.Rank())
	if isConst && count == 1 {
		return x.outputType.Clone()
	}
	if repeats.Rank() == 1 {
		if _, ok := mergeDims(x.outputType.Dimensions[axis], repeats.outputType.Dimensions[0]); !ok {
			shapeErrorf("%s: got %d repeats for an axis of dimension %d", op,
				repeats.outputType.Dimensions[0], x.outputType.Dimensions[axis])
		}
	}
	output := x.outputType.Clone()
	if dim := output.Dimensions[axis]; dim != UnknownDim && isConst {
		output.Dimensions[axis] = dim * count
	} else {
		output.Dimensions[axis] = UnknownDim
	}
	output.Broadcastable[axis] = false
	return output
}

// repeatsTotal returns the symbolic length contributed by repeats over the given dimension: dim*repeats
// for a scalar, or the sum of the counts for a vector.
func repeatsTotal(repeats *Node, dim Dim) Dim {
	if repeats.IsScalar() {
		return dim.Mul(Expr(repeats))
	}
	return Expr(ReduceAllSum(ConvertDType(repeats, dtypes.Int64)))
}

func inferRepeatShape(node *Node) SymbolicShape {
	x, repeats := node.inputNodes[0], node.inputNodes[1]
	repeatOp := node.op.(backends.RepeatOp)
	xShape := InferShape(x)
	if repeatOp.Axis.IsNone() {
		return SymbolicShape{repeatsTotal(repeats, ProdDims(xShape...))}
	}
	axis := repeatOp.Axis.Value()
	if count, ok := constScalarInt(repeats); ok && count == 1 {
		return xShape
	}
	shape := slices.Clone(xShape)
	shape[axis] = repeatsTotal(repeats, xShape[axis])
	return shape
}

// repeatVJP folds the repeated gradients back onto each element: v is reshaped with a new axis of dimension
// repeats after the repeated one (after all axes if flattened), and summed over it.
func repeatVJP(node, v *Node) []Grad {
	x, repeats := node.inputNodes[0], node.inputNodes[1]
	if !repeats.IsScalar() {
		return []Grad{
			gradNotImplemented("gradient of Repeat with a vector of repeats"),
			disconnected(),
		}
	}
	repeatOp := node.op.(backends.RepeatOp)
	sumAxis := x.Rank()
	if !repeatOp.Axis.IsNone() {
		sumAxis = repeatOp.Axis.Value() + 1
	}
	dims := make([]*Node, 0, x.Rank()+1)
	for axis := range x.Rank() {
		dims = append(dims, DimOf(x, axis))
	}
	dims = slices.Insert(dims, sumAxis, ConvertDType(repeats, dtypes.Int64))
	grad := ReduceSum(Reshape(v, Stack(dims...)), sumAxis)
	return []Grad{gradValue(grad), disconnected()}
}
