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
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/shapes"
)

func init() {
	registerOp(backends.OpTypeCumsum, opDef{build: buildCumulative, inferShape: inferCumulativeShape, vjp: cumsumVJP})
	registerOp(backends.OpTypeCumprod, opDef{build: buildCumulative, inferShape: inferCumulativeShape, vjp: cumprodVJP})
}

// Cumsum returns the cumulative sum of the elements of x along the axis.
//
// With backends.AxisNone, x is flattened first and the output is a vector with all its elements.
func Cumsum(x *Node, axis backends.Axis) *Node {
	return cumulativeOp(backends.OpTypeCumsum, x, axis)
}

// Cumprod returns the cumulative product of the elements of x along the axis.
//
// With backends.AxisNone, x is flattened first and the output is a vector with all its elements.
//
// Its gradient divides by x, and it is not finite where x has zeros.
func Cumprod(x *Node, axis backends.Axis) *Node {
	return cumulativeOp(backends.OpTypeCumprod, x, axis)
}

func cumulativeOp(opType backends.OpType, x *Node, axis backends.Axis) *Node {
	op := backends.CumulativeOp{Kind: opType, Axis: axis}
	if !axis.IsNone() {
		// Keep the normalized axis in the variant, so equivalent axes yield equal variants.
		op.Axis = backends.AxisAt(adjustAxisOrThrow(op, axis.Value(), x.Rank()))
	}
	return newNode(x.Graph(), op, x)
}

func buildCumulative(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	cumOp := op.(backends.CumulativeOp)
	if !shapes.IsNumeric(x.DType()) {
		typeErrorf("%s: input must be numbers, got %s", op, x.DType())
	}
	if !cumOp.Axis.IsNone() {
		adjustAxisOrThrow(op, cumOp.Axis.Value(), x.Rank())
		return x.outputType.Clone()
	}
	size, ok := x.outputType.Size()
	if !ok {
		size = UnknownDim
	}
	return OutputType{DType: x.DType(), Dimensions: []int{size}, Broadcastable: []bool{false}}
}

func inferCumulativeShape(node *Node) SymbolicShape {
	x := node.inputNodes[0]
	if node.op.(backends.CumulativeOp).Axis.IsNone() {
		return SymbolicShape{ProdDims(InferShape(x)...)}
	}
	return InferShape(x)
}

// reverseCumsum returns reverse(cumsum(reverse(v))) along the axis: the cumulative sum from the end.
func reverseCumsum(v *Node, axis int) *Node {
	return Reverse(Cumsum(Reverse(v, axis), backends.AxisAt(axis)), axis)
}

// cumsumGradient back-propagates v through a cumulative sum of x along the axis (or flattened).
func cumsumGradient(x, v *Node, axis backends.Axis) *Node {
	if axis.IsNone() {
		return Reshape(reverseCumsum(v, 0), ShapeOf(x))
	}
	return reverseCumsum(v, axis.Value())
}

func cumsumVJP(node, v *Node) []Grad {
	x := node.inputNodes[0]
	return []Grad{gradValue(cumsumGradient(x, v, node.op.(backends.CumulativeOp).Axis))}
}

func cumprodVJP(node, v *Node) []Grad {
	x := node.inputNodes[0]
	axis := node.op.(backends.CumulativeOp).Axis
	return []Grad{gradValue(Div(cumsumGradient(x, Mul(node, v), axis), x))}
}
