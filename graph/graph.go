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

// Package graph is used to create, differentiate and run computation graphs of symbolic tensor operators.
//
// A Graph is created for a backends.Backend. Operators (Add, Cumsum, Searchsorted, Repeat, ...) take nodes and
// return new nodes: each Node is the output of one operator, and has a static OutputType. Its dtype and rank are
// known when the graph is built, while some of its dimensions may only be known at execution (see UnknownDim and
// InferShape). Gradient adds the nodes computing gradients, and Exec evaluates the outputs for given parameter
// values.
//
// Building a graph does no computation: it checks dtypes and ranks and infers what it can of the dimensions.
// Dimensions unknown at building time are checked at execution.
//
// ## Errors
//
// Construction errors (wrong dtypes or ranks, required gradients that are undefined or not implemented) are
// raised with panic, wrapping one of ErrType, ErrShape, ErrGradientUndefined or ErrGradientNotImplemented.
// Catch them with exceptions.TryCatch[error]. Errors that depend on the data (e.g. a negative value in
// BinCount) are returned by Exec.Call, wrapping backends.ErrExecution.
package graph

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Graph holds the nodes of a computation, in order of creation.
//
// A Graph is not safe for concurrent building: nodes should be created from one goroutine at a time. Once built,
// it can be executed concurrently by any number of Exec objects.
type Graph struct {
	id           uuid.UUID
	name         string
	backend      backends.Backend
	capabilities backends.Capabilities

	nodes      []*Node
	parameters []*Node

	parameterNameToNode map[string]*Node
	parameterTypes      map[string]OutputType

	traced bool

	scalars scalarCache
}

// NewGraph creates an empty graph whose nodes will be executed by backend.
func NewGraph(backend backends.Backend, name string) *Graph {
	g := &Graph{
		id:                  uuid.New(),
		name:                name,
		backend:             backend,
		capabilities:        backend.Capabilities(),
		parameterNameToNode: make(map[string]*Node),
		parameterTypes:      make(map[string]OutputType),
		scalars:             make(scalarCache),
	}
	klog.V(1).Infof("graph %q (%s) created for backend %q", name, g.id, backend.Name())
	return g
}

// Name given to NewGraph.
func (g *Graph) Name() string { return g.name }

// Id returns the unique identifier of the graph. It keys the backend output caches.
func (g *Graph) Id() uuid.UUID { return g.id }

// Backend this Graph is executed on.
func (g *Graph) Backend() backends.Backend { return g.backend }

// Capabilities of the backend, as seen when the graph was created. It describes the target platform:
// the supported operations and dtypes, and the pointer and integer bit widths.
func (g *Graph) Capabilities() backends.Capabilities { return g.capabilities }

// SetTraced sets whether new nodes record the stack trace of their creation, see Node.Trace.
// Traces are printed when a gradient fails.
func (g *Graph) SetTraced(traced bool) {
	g.traced = traced
}

// registerNode appends node and returns its id.
func (g *Graph) registerNode(node *Node) int {
	g.nodes = append(g.nodes, node)
	return len(g.nodes) - 1
}

// NumNodes returns the number of nodes created so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeById returns the node with the given id.
func (g *Graph) NodeById(id int) *Node {
	if id < 0 || id >= len(g.nodes) {
		exceptions.Panicf("Graph.NodeById(%d): graph %q has %d nodes", id, g.name, len(g.nodes))
	}
	return g.nodes[id]
}

// NumParameters returns the number of parameters.
func (g *Graph) NumParameters() int { return len(g.parameters) }

// ParameterByIndex returns the parameters in order of creation.
func (g *Graph) ParameterByIndex(ii int) *Node { return g.parameters[ii] }

// ParameterByName returns the parameter with the given name, or nil if there is none.
func (g *Graph) ParameterByName(name string) *Node {
	return g.parameterNameToNode[name]
}

// Parameter creates a node whose value is fed at execution (see Exec.Call), and must match type t.
// An empty name is replaced by "p#<index>".
//
// If a parameter with the same name already exists, it is returned instead, as long as it has the same type.
func (g *Graph) Parameter(name string, t OutputType) *Node {
	name = cmp.Or(name, fmt.Sprintf("p#%d", len(g.parameters)))
	if err := t.Check(); err != nil {
		panic(err)
	}
	if node, found := g.parameterNameToNode[name]; found {
		if !node.outputType.Equal(t) {
			exceptions.Panicf("requested parameter %q already exists with a different type:"+
				" requested type %s, previous type %s", name, t, node.outputType)
		}
		return node
	}
	g.parameterTypes[name] = t.Clone()
	node := newNode(g, backends.ParameterOp{Name: name})
	g.parameters = append(g.parameters, node)
	g.parameterNameToNode[name] = node
	return node
}

// String lists the nodes of the graph, one per line.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph %q: %d nodes, %d parameters", g.name, len(g.nodes), len(g.parameters))
	for _, node := range g.nodes {
		fmt.Fprintf(&sb, "\n\t%s", node)
	}
	return sb.String()
}

type scalarKey struct {
	dtype dtypes.DType
	value float64
}

// scalarCache maps scalar constants to their node, so each one is created once per graph.
type scalarCache map[scalarKey]*Node

// getScalarConst returns the constant node for value converted to dtype, creating it on first use.
func (g *Graph) getScalarConst(dtype dtypes.DType, value float64) *Node {
	key := scalarKey{dtype, value}
	if node, found := g.scalars[key]; found {
		return node
	}
	node := Const(g, tensors.FromFloat64s(dtype, []float64{value}))
	g.scalars[key] = node
	return node
}
