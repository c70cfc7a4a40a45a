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
	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
)

// opDef holds the graph-side capabilities of one operator: validation with type inference, symbolic shape
// inference and its gradient. Execution lives in the backends, keyed by the same backends.OpType.
type opDef struct {
	// build validates the inputs and returns the output type. It must not look at concrete data, other than
	// the values of constants. It panics with ErrType or ErrShape.
	build func(g *Graph, op backends.Op, inputs []*Node) OutputType

	// inferShape returns the symbolic shape of the node output. If nil, the dimensions known in the output type
	// are used, and DimOf expressions for the others.
	inferShape func(node *Node) SymbolicShape

	// vjp returns the gradient with respect to each input, given the gradient with respect to the output.
	// If nil, the gradient is not implemented.
	vjp VJP

	// isView returns whether the output of the op shares the storage of its first input.
	isView func(op backends.Op) bool
}

// opDefs is the table of operator definitions, indexed by backends.OpType.
var opDefs [backends.OpTypeLast]opDef

// registerOp is called during package initialization by each op's file.
func registerOp(opType backends.OpType, def opDef) {
	if opDefs[opType].build != nil {
		exceptions.Panicf("op %s registered twice", opType)
	}
	opDefs[opType] = def
}

func alwaysView(backends.Op) bool { return true }

// HasGradient returns whether the operator type has a gradient definition. Notice that a definition may still
// return Undefined or NotImplemented markers for some inputs or configurations.
func HasGradient(opType backends.OpType) bool {
	return opType > backends.OpTypeInvalid && opType < backends.OpTypeLast && opDefs[opType].vjp != nil
}
