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
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Node is the result of one operation in a Graph: the operator variant, its input nodes and its OutputType.
//
// Nodes are never mutated after creation, and the operator variant (backends.Op) may be shared with other nodes.
type Node struct {
	graph *Graph
	id    int // id within graph.
	op    backends.Op

	// inputNodes are the edges of the computation graph.
	inputNodes []*Node

	outputType OutputType

	// view is set if the output shares the storage of the first input.
	view bool

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// newNode validates the inputs, infers the output type with the op's registered definition and
// registers the new node in the graph.
func newNode(g *Graph, op backends.Op, inputs ...*Node) *Node {
	opType := op.Type()
	if opType <= backends.OpTypeInvalid || opType >= backends.OpTypeLast {
		exceptions.Panicf("invalid op type %s for %s", opType, op)
	}
	def := opDefs[opType]
	if def.build == nil && opType != backends.OpTypeParameter {
		exceptions.Panicf("op %s has no registered definition", opType)
	}
	for ii, input := range inputs {
		if input == nil {
			exceptions.Panicf("%s: input #%d is nil", op, ii)
		}
		if input.graph != g {
			exceptions.Panicf("%s: input #%d is part of a different graph (%q) than the one being built (%q)",
				op, ii, input.graph.name, g.name)
		}
	}
	if !g.capabilities.SupportsOp(opType) {
		typeErrorf("backend %q doesn't support operation %s", g.backend.Name(), opType)
	}

	var outputType OutputType
	if opType == backends.OpTypeParameter {
		outputType = g.parameterTypes[op.(backends.ParameterOp).Name]
	} else {
		outputType = def.build(g, op, inputs)
	}
	if err := outputType.Check(); err != nil {
		panic(errors.WithMessagef(err, "invalid output type inferred for %s", op))
	}
	if !g.capabilities.SupportsDType(outputType.DType) {
		typeErrorf("backend %q doesn't support dtype %s, required by %s", g.backend.Name(), outputType.DType, op)
	}

	node := &Node{
		graph:      g,
		op:         op,
		inputNodes: slices.Clone(inputs),
		outputType: outputType,
	}
	if def.isView != nil {
		node.view = def.isView(op)
	}
	if g.traced {
		node.trace = errors.New("node created here")
	}
	node.id = g.registerNode(node)
	return node
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Id is the unique id of this node within the Graph. Inputs always have smaller ids than their consumers.
func (n *Node) Id() int {
	return n.id
}

// Op returns the operator variant of the node.
func (n *Node) Op() backends.Op { return n.op }

// Type identifies the operation performed by the node.
func (n *Node) Type() backends.OpType {
	if n == nil || n.op == nil {
		return backends.OpTypeInvalid
	}
	return n.op.Type()
}

// OutputType of the node: dtype, dimensions (possibly unknown) and broadcastable pattern.
func (n *Node) OutputType() OutputType { return n.outputType.Clone() }

// DType returns the DType of the node's output.
func (n *Node) DType() dtypes.DType {
	return n.outputType.DType
}

// Rank returns the rank of the node's output.
func (n *Node) Rank() int {
	return n.outputType.Rank()
}

// IsScalar returns whether the node's output is a scalar.
func (n *Node) IsScalar() bool {
	return n.outputType.IsScalar()
}

// Dims returns a copy of the dimensions known at graph building time, with UnknownDim for the others.
func (n *Node) Dims() []int { return slices.Clone(n.outputType.Dimensions) }

// Broadcastable returns a copy of the broadcastable pattern of the node's output.
func (n *Node) Broadcastable() []bool { return slices.Clone(n.outputType.Broadcastable) }

// Inputs are the other nodes that are direct inputNodes to the node.
// This doesn't include static configuration, which is part of the node's Op.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// IsView returns whether the output of the node shares the storage of its first input.
func (n *Node) IsView() bool { return n.view }

// ConstValue returns the value of a Const node, or nil for any other node.
func (n *Node) ConstValue() *tensors.Tensor {
	if constOp, ok := n.op.(backends.ConstantOp); ok {
		return constOp.Value
	}
	return nil
}

// ParameterName returns the parameter name.
// If node is not a parameter, it panics.
func (n *Node) ParameterName() string {
	paramOp, ok := n.op.(backends.ParameterOp)
	if !ok {
		exceptions.Panicf("trying to get ParameterName of a non-parameter node %s", n)
	}
	return paramOp.Name
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by `Graph.SetTraced(true)`.
func (n *Node) Trace() error {
	return n.trace
}

// String implements the `fmt.Stringer` interface.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	inputs := make([]string, len(n.inputNodes))
	for ii, input := range n.inputNodes {
		inputs[ii] = fmt.Sprintf("#%d", input.id)
	}
	str := fmt.Sprintf("#%d %s(%s)", n.id, n.op, strings.Join(inputs, ", "))
	if n.view {
		str += " [View]"
	}
	return fmt.Sprintf("%s -> %s", str, n.outputType)
}
