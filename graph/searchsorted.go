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
	registerOp(backends.OpTypeSearchsorted, opDef{
		build:      buildSearchsorted,
		inferShape: func(node *Node) SymbolicShape { return InferShape(node.inputNodes[1]) },
		vjp:        searchsortedVJP,
	})
}

// sorterDTypes are the dtypes accepted for the sorter permutation of Searchsorted.
var sorterDTypes = types.SetWith(
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64)

// Searchsorted finds the indices where the elements of v should be inserted into the sorted vector x to
// maintain its order. The output is an Int64 tensor with the dimensions of v.
//
// With SideLeft the first suitable index is returned (x[i-1] < v <= x[i]), with SideRight the last one
// (x[i-1] <= v < x[i]).
//
// sorter is optional (it can be nil): if given, it is the integer permutation that sorts x, and x itself
// doesn't need to be sorted.
//
// If x and v have different dtypes, they are both converted to their common upcast dtype.
func Searchsorted(x, v *Node, side backends.Side, sorter *Node) *Node {
	op := backends.SearchsortedOp{Side: side}
	if !shapes.IsRealNumeric(x.DType()) || !shapes.IsRealNumeric(v.DType()) {
		typeErrorf("%s: sorted array and values must be real numbers, got %s and %s", op, x.DType(), v.DType())
	}
	if x.DType() != v.DType() {
		dtype := shapes.Upcast(x.DType(), v.DType())
		x, v = ConvertDType(x, dtype), ConvertDType(v, dtype)
	}
	if sorter == nil {
		return newNode(x.Graph(), op, x, v)
	}
	return newNode(x.Graph(), op, x, v, sorter)
}

func buildSearchsorted(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	x, v := inputs[0], inputs[1]
	if x.Rank() != 1 {
		shapeErrorf("%s: sorted array must be a vector, got %s", op, x.outputType)
	}
	if x.DType() != v.DType() {
		typeErrorf("%s: sorted array and values must have the same dtype, got %s and %s", op, x.DType(), v.DType())
	}
	if len(inputs) == 3 {
		sorter := inputs[2]
		if sorter.Rank() != 1 {
			shapeErrorf("%s: sorter must be a vector, got %s", op, sorter.outputType)
		}
		if !sorterDTypes.Has(sorter.DType()) {
			typeErrorf("%s: sorter must be an integer vector (one of %v), got %s",
				op, types.SortedKeys(sorterDTypes), sorter.DType())
		}
		if _, ok := mergeDims(x.outputType.Dimensions[0], sorter.outputType.Dimensions[0]); !ok {
			shapeErrorf("%s: sorter has %d elements, sorted array has %d", op,
				sorter.outputType.Dimensions[0], x.outputType.Dimensions[0])
		}
	}
	return OutputType{DType: dtypes.Int64, Dimensions: v.Dims(), Broadcastable: v.Broadcastable()}
}

func searchsortedVJP(node, _ *Node) []Grad {
	grads := []Grad{
		gradNotImplemented("searchsorted indices are piecewise constant with respect to the sorted array"),
		gradNotImplemented("searchsorted indices are piecewise constant with respect to the values"),
	}
	if len(node.inputNodes) == 3 {
		grads = append(grads, gradUndefined("the sorter is an integer permutation"))
	}
	return grads
}
