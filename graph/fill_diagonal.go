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
	registerOp(backends.OpTypeFillDiagonal, opDef{build: buildFillDiagonal, vjp: fillDiagonalVJP})
}

// FillDiagonal returns a copy of a with its main diagonal (the elements a[i, i, ..., i]) set to the scalar val.
//
// a must have rank 2 or more; matrices may be rectangular, but for higher ranks all dimensions must be equal.
// val is converted to the dtype of a, which must be the common upcast dtype of both.
func FillDiagonal(a, val *Node) *Node {
	op := backends.FillDiagonalOp{}
	if upcast := shapes.Upcast(a.DType(), val.DType()); upcast != a.DType() {
		typeErrorf("%s: value of dtype %s would upcast the output from %s to %s",
			op, val.DType(), a.DType(), upcast)
	}
	return newNode(a.Graph(), op, a, ConvertDType(val, a.DType()))
}

func buildFillDiagonal(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	a, val := inputs[0], inputs[1]
	if a.Rank() < 2 {
		shapeErrorf("%s: input must have at least 2 axes, got %s", op, a.outputType)
	}
	if !val.IsScalar() {
		shapeErrorf("%s: value must be a scalar, got %s", op, val.outputType)
	}
	if val.DType() != a.DType() {
		typeErrorf("%s: value dtype %s doesn't match input dtype %s", op, val.DType(), a.DType())
	}
	if a.Rank() > 2 {
		first := UnknownDim
		for _, dim := range a.outputType.Dimensions {
			merged, ok := mergeDims(first, dim)
			if !ok {
				shapeErrorf("%s: all dimensions must be equal for inputs with more than 2 axes, got %s",
					op, a.outputType)
			}
			first = merged
		}
	}
	return a.outputType.Clone()
}

func fillDiagonalVJP(node, v *Node) []Grad {
	a := node.inputNodes[0]
	if shapes.IsComplex(a.DType()) {
		return []Grad{
			gradUndefined("FillDiagonal is not differentiable for complex numbers"),
			gradUndefined("FillDiagonal is not differentiable for complex numbers"),
		}
	}
	if a.Rank() > 2 {
		return []Grad{
			gradNotImplemented("gradient of FillDiagonal with more than 2 axes"),
			gradNotImplemented("gradient of FillDiagonal with more than 2 axes"),
		}
	}
	gradA := FillDiagonal(v, ScalarLike(v, 0))
	gradVal := ReduceAllSum(ExtractDiagonal(v))
	return []Grad{gradValue(gradA), gradValue(gradVal)}
}
