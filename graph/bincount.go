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
	"github.com/gomlx/extraops/types"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
	registerOp(backends.OpTypeBinCount, opDef{build: buildBinCount, inferShape: inferBinCountShape, vjp: binCountVJP})
}

// unsupportedCountDTypes returns the integer dtypes that can't be used as counts or indices on a platform with
// the given bit width: the values must fit the platform's native signed integer.
func unsupportedCountDTypes(bits int) types.Set[dtypes.DType] {
	if bits <= 32 {
		return types.SetWith(dtypes.Uint32, dtypes.Int64, dtypes.Uint64)
	}
	return types.SetWith(dtypes.Uint64)
}

// BinCount counts the number of occurrences of each value in the vector x of non-negative integers.
//
// The output is a vector of length max(x)+1, or minLength if larger. If weights (a vector with the same length
// as x) is given, the output holds the sum of the weights of each value, as Float64. Otherwise, the counts are
// Int32 or Int64, following the platform's pointer width. Set minLength to 0 if not needed, and weights to nil.
//
// The length of the output is only known at execution time. The length of x and weights, and the sign of the
// values of x, are checked at execution time.
func BinCount(x, weights *Node, minLength int) *Node {
	op := backends.BinCountOp{MinLength: minLength}
	if weights == nil {
		return newNode(x.Graph(), op, x)
	}
	return newNode(x.Graph(), op, x, weights)
}

func buildBinCount(g *Graph, op backends.Op, inputs []*Node) OutputType {
	x := inputs[0]
	if !isIntegerDType(x.DType()) {
		typeErrorf("%s: input must be integers, got %s", op, x.DType())
	}
	if x.Rank() != 1 {
		shapeErrorf("%s: input must be a vector, got %s", op, x.outputType)
	}
	if unsupported := unsupportedCountDTypes(g.capabilities.IntBits); unsupported.Has(x.DType()) {
		typeErrorf("%s: input dtype %s is not supported on a %d-bit platform (unsupported: %v)",
			op, x.DType(), g.capabilities.IntBits, types.SortedKeys(unsupported))
	}
	if op.(backends.BinCountOp).MinLength < 0 {
		shapeErrorf("%s: minlength must be non-negative", op)
	}
	dtype := dtypes.Int64
	if g.capabilities.PointerBits == 32 {
		dtype = dtypes.Int32
	}
	if len(inputs) == 2 {
		weights := inputs[1]
		if weights.Rank() != 1 {
			shapeErrorf("%s: weights must be a vector, got %s", op, weights.outputType)
		}
		if !shapes.IsRealNumeric(weights.DType()) {
			typeErrorf("%s: weights must be real numbers, got %s", op, weights.DType())
		}
		if _, ok := mergeDims(x.outputType.Dimensions[0], weights.outputType.Dimensions[0]); !ok {
			shapeErrorf("%s: weights have %d elements, input has %d", op,
				weights.outputType.Dimensions[0], x.outputType.Dimensions[0])
		}
		dtype = dtypes.Float64
	}
	return OutputType{DType: dtype, Dimensions: []int{UnknownDim}, Broadcastable: []bool{false}}
}

// inferBinCountShape returns the expression max(max(x)+1, minLength).
func inferBinCountShape(node *Node) SymbolicShape {
	x := node.inputNodes[0]
	g := x.Graph()
	length := Add(ReduceAllMax(ConvertDType(x, dtypes.Int64)), Scalar(g, dtypes.Int64, 1))
	minLength := Static(node.op.(backends.BinCountOp).MinLength)
	return SymbolicShape{MaxDim(Expr(length), minLength)}
}

func binCountVJP(node, _ *Node) []Grad {
	if node.DType() == dtypes.Float64 {
		grads := []Grad{gradNotImplemented("gradient of weighted BinCount")}
		if len(node.inputNodes) == 2 {
			grads = append(grads, gradNotImplemented("gradient of weighted BinCount"))
		}
		return grads
	}
	grads := make([]Grad, len(node.inputNodes))
	for ii, input := range node.inputNodes {
		grads[ii] = gradValue(ZerosLike(input))
	}
	return grads
}
