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
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
	registerOp(backends.OpTypeDiff, opDef{
		build:      buildDiff,
		inferShape: inferDiffShape,
		vjp:        diffVJP,
		isView:     func(op backends.Op) bool { return op.(backends.DiffOp).N == 0 },
	})
}

// Diff returns the n-th order discrete difference of x along the axis (negative values count from the end):
// the first order difference is out[i] = x[i+1] - x[i], and higher orders apply it recursively.
//
// The dimension of the axis shrinks by n (down to 0). With n == 0 the output is a view of x.
func Diff(x *Node, n, axis int) *Node {
	op := backends.DiffOp{N: n, Axis: axis}
	if x.Rank() < 1 {
		shapeErrorf("%s: input must have at least one axis, got %s", op, x.outputType)
	}
	op.Axis = adjustAxisOrThrow(op, axis, x.Rank())
	return newNode(x.Graph(), op, x)
}

func buildDiff(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	diffOp := op.(backends.DiffOp)
	if x.DType() == dtypes.Bool {
		typeErrorf("%s: input must be numbers, got %s", op, x.DType())
	}
	if diffOp.N < 0 {
		shapeErrorf("%s: order must be non-negative", op)
	}
	axis := adjustAxisOrThrow(op, diffOp.Axis, x.Rank())
	output := x.outputType.Clone()
	if diffOp.N == 0 {
		return output
	}
	if dim := output.Dimensions[axis]; dim != UnknownDim {
		output.Dimensions[axis] = max(dim-diffOp.N, 0)
	}
	output.Broadcastable[axis] = false
	return output
}

func inferDiffShape(node *Node) SymbolicShape {
	diffOp := node.op.(backends.DiffOp)
	shape := InferShape(node.inputNodes[0])
	if diffOp.N == 0 {
		return shape
	}
	shape[diffOp.Axis] = MaxDim(shape[diffOp.Axis].Sub(Static(diffOp.N)), Static(0))
	return shape
}

func diffVJP(node, v *Node) []Grad {
	x := node.inputNodes[0]
	n := node.op.(backends.DiffOp).N
	if n == 0 {
		return []Grad{gradValue(v)}
	}
	if x.Rank() != 1 {
		return []Grad{gradNotImplemented("gradient of Diff is only implemented for vectors")}
	}
	zeroVector := Const(x.Graph(), tensors.FromFloat64s(v.DType(), []float64{0}, 1))
	z := v
	for range n {
		z = Sub(Concatenate(0, zeroVector, z), Concatenate(0, z, zeroVector))
	}
	return []Grad{gradValue(z)}
}
