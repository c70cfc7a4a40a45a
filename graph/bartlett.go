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
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
	registerOp(backends.OpTypeBartlett, opDef{
		build: buildBartlett,
		inferShape: func(node *Node) SymbolicShape {
			return SymbolicShape{MaxDim(Expr(node.inputNodes[0]), Static(0))}
		},
		vjp: func(_, _ *Node) []Grad {
			return []Grad{gradUndefined("the window length is an integer")}
		},
	})
}

// Bartlett returns the Bartlett (triangular) window of length m, a Float64 vector with zeros at both ends.
// m must be an integer scalar, and the window is empty if m <= 0.
func Bartlett(m *Node) *Node {
	return newNode(m.Graph(), backends.BartlettOp{}, m)
}

func buildBartlett(_ *Graph, op backends.Op, inputs []*Node) OutputType {
	m := inputs[0]
	if !m.IsScalar() {
		shapeErrorf("%s: window length must be a scalar, got %s", op, m.outputType)
	}
	if !isIntegerDType(m.DType()) {
		typeErrorf("%s: window length must be an integer, got %s", op, m.DType())
	}
	dim := UnknownDim
	if length, ok := constScalarInt(m); ok {
		dim = max(length, 0)
	}
	return OutputType{DType: dtypes.Float64, Dimensions: []int{dim}, Broadcastable: []bool{false}}
}
