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
	"os"
	"slices"

	. "github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/pkg/errors"
)

// Gradient implements reverse-mode automatic differentiation: starting from the root (the output whose
// gradient is requested) the nodes are visited in reverse order of creation, and each node's VJP (Vector
// Jacobian Product) maps the accumulated adjoint of its output to the adjoints of its inputs. See the Jax
// Autodiff Cookbook (https://jax.readthedocs.io/en/latest/notebooks/autodiff_cookbook.html) for an introduction.
//
// Only nodes the root depends on ("included"), and that lie on a path from one of the selected gradient nodes
// to the root ("useful"), are visited. A VJP may return a marker instead of a value for an input: the input is
// disconnected, or its gradient is undefined or not implemented. Undefined and not implemented markers only
// fail the Gradient call when they are on a useful path.

// GradKind is the kind of gradient returned by a VJP for one input.
type GradKind int

const (
	// GradValue is a regular gradient, given by Grad.Value.
	GradValue GradKind = iota

	// GradDisconnected means the output doesn't depend (differentiably) on the input, e.g. the shape of Reshape.
	GradDisconnected

	// GradUndefined means the gradient is mathematically undefined, e.g. with respect to an integer index.
	GradUndefined

	// GradNotImplemented means the gradient exists but is not implemented.
	GradNotImplemented
)

// String implements fmt.Stringer.
func (k GradKind) String() string {
	switch k {
	case GradValue:
		return "Value"
	case GradDisconnected:
		return "Disconnected"
	case GradUndefined:
		return "Undefined"
	case GradNotImplemented:
		return "NotImplemented"
	}
	return fmt.Sprintf("GradKind(%d)", int(k))
}

// Grad is the gradient with respect to one input of a node: either a Value or a marker.
type Grad struct {
	Kind  GradKind
	Value *Node

	// Reason is an optional description for Undefined and NotImplemented markers.
	Reason string
}

func gradValue(value *Node) Grad { return Grad{Kind: GradValue, Value: value} }

func disconnected() Grad { return Grad{Kind: GradDisconnected} }

func gradUndefined(reason string) Grad { return Grad{Kind: GradUndefined, Reason: reason} }

func gradNotImplemented(reason string) Grad { return Grad{Kind: GradNotImplemented, Reason: reason} }

// VJP returns the $v \dot Jacobian$ of the given `node`, with respect to each of its inputNodes (given
// by `node.Inputs()`).
//
// Args:
//
//	node: node for which we are calculating the backward gradient.
//	v: gradient of what we care about with the respect to the output of `node`, also known as the
//	   adjoint. It has the same type as the output of node.
//
// Returns:
//
//	One Grad per input of node: the gradient with respect to the input (with the same dtype and rank as the
//	input), or a marker.
type VJP func(node, v *Node) []Grad

func disconnectedVJP(node, _ *Node) []Grad {
	grads := make([]Grad, len(node.inputNodes))
	for ii := range grads {
		grads[ii] = disconnected()
	}
	return grads
}

// reverseGraph holds the state of a Gradient call for each node of the graph, indexed by node id.
type reverseGraph struct {
	nodes []reverseNode
}

type reverseNode struct {
	// included nodes are the ones the root depends on.
	included bool

	// useful nodes are included nodes on a path from one of the selected gradient nodes to the root. Only
	// their adjoints are computed.
	useful bool

	// adjoint is the gradient of the root with respect to the output of the node: the sum of the VJPs
	// back-propagated by all its consumers.
	adjoint *Node

	// reached is set when a consumer back-propagated a gradient value to a node with a non-differentiable dtype
	// (integers or bool). Those nodes don't accumulate values, but their VJP is still called with zeros, so
	// markers of their own inputs are reported.
	reached bool
}

// newReverseGraph marks the included and useful nodes. Node ids are a topological order, so one backward
// pass finds the included nodes and one forward pass the useful ones.
func newReverseGraph(g *Graph, root *Node, gradientNodes []*Node) *reverseGraph {
	rg := &reverseGraph{nodes: make([]reverseNode, len(g.nodes))}
	rg.nodes[root.id].included = true
	for id := root.id; id >= 0; id-- {
		if !rg.nodes[id].included {
			continue
		}
		for _, input := range g.nodes[id].inputNodes {
			rg.nodes[input.id].included = true
		}
	}

	selected := make([]bool, len(g.nodes))
	for _, node := range gradientNodes {
		selected[node.id] = true
	}
	for id := 0; id <= root.id; id++ {
		rNode := &rg.nodes[id]
		if !rNode.included {
			continue
		}
		rNode.useful = selected[id] || slices.ContainsFunc(g.nodes[id].inputNodes, func(input *Node) bool {
			return rg.nodes[input.id].useful
		})
	}
	return rg
}

// needsGradient returns whether the adjoint of node is needed.
func (rg *reverseGraph) needsGradient(node *Node) bool {
	rNode := &rg.nodes[node.id]
	return rNode.included && rNode.useful
}

// Gradient returns the gradients of output with respect to each of the gradientNodes, as new nodes.
// The output must be a real floating point scalar.
//
// If a gradient required by one of the gradientNodes is undefined or not implemented, it panics with an error
// wrapping ErrGradientUndefined or ErrGradientNotImplemented. Gradient nodes with no path from the output,
// or with an integer dtype, get zeros.
func Gradient(output *Node, gradientNodes ...*Node) []*Node {
	g := output.Graph()
	for ii, node := range gradientNodes {
		if node == nil || node.Graph() != g {
			Panicf("Gradient: gradient node #%d is nil or from a different graph", ii)
		}
	}
	if !output.IsScalar() || !shapes.IsFloat(output.DType()) {
		Panicf("only gradients of a real floating point scalar with respect to tensors are accepted, not jacobians, "+
			"got output of type %s", output.outputType)
	}

	rg := newReverseGraph(g, output, gradientNodes)
	rg.nodes[output.id].adjoint = ScalarLike(output, 1)

	// When a node is visited, all its consumers (created after it) have already added their VJPs to its adjoint.
	for id := output.id; id >= 0; id-- {
		node := g.nodes[id]
		if !rg.needsGradient(node) || !slices.ContainsFunc(node.inputNodes, rg.needsGradient) {
			continue
		}
		rNode := &rg.nodes[id]
		v := rNode.adjoint
		if v == nil {
			if !rNode.reached {
				continue
			}
			v = ZerosLike(node)
		}

		var inputGrads []Grad
		if vjpFn := opDefs[node.Type()].vjp; vjpFn != nil {
			inputGrads = vjpFn(node, v)
		} else {
			inputGrads = make([]Grad, len(node.inputNodes))
			for ii := range inputGrads {
				inputGrads[ii] = gradNotImplemented(fmt.Sprintf("no gradient defined for %s", node.Type()))
			}
		}
		if len(inputGrads) != len(node.inputNodes) {
			Panicf("VJP(%s) returned %d gradients for %d inputs", node, len(inputGrads), len(node.inputNodes))
		}

		for ii, input := range node.inputNodes {
			if !rg.needsGradient(input) {
				continue
			}
			grad := inputGrads[ii]
			switch grad.Kind {
			case GradDisconnected:
				continue
			case GradUndefined:
				printTrace(node)
				panic(errors.Wrapf(ErrGradientUndefined, "gradient of %s with respect to input #%d (%s) is undefined: %s",
					node, ii, input, grad.Reason))
			case GradNotImplemented:
				printTrace(node)
				panic(errors.Wrapf(ErrGradientNotImplemented,
					"gradient of %s with respect to input #%d (%s) is not implemented: %s",
					node, ii, input, grad.Reason))
			}
			if grad.Value == nil {
				Panicf("VJP(%s) returned a nil gradient value for input #%d", node, ii)
			}
			rInput := &rg.nodes[input.id]
			if !differentiable(input.DType()) {
				// Integer and boolean inputs don't receive gradient values.
				rInput.reached = true
				continue
			}
			if err := checkGradType(grad.Value, input); err != nil {
				printTrace(node)
				Panicf("VJP(%s) returned an invalid gradient for input #%d: %v", node, ii, err)
			}
			if rInput.adjoint == nil {
				rInput.adjoint = grad.Value
			} else {
				rInput.adjoint = Add(rInput.adjoint, grad.Value)
			}
		}
	}

	gradients := make([]*Node, len(gradientNodes))
	for ii, node := range gradientNodes {
		if adjoint := rg.nodes[node.id].adjoint; adjoint != nil {
			gradients[ii] = adjoint
		} else {
			gradients[ii] = ZerosLike(node)
		}
	}
	return gradients
}

func printTrace(node *Node) {
	if node.Trace() != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Trace for node in error: %s\n%+v\n\n", node, node.Trace())
	}
}

// checkGradType checks that the gradient has the dtype and rank of the input, and that their known dimensions
// agree.
func checkGradType(grad, input *Node) error {
	if grad.DType() != input.DType() {
		return errors.Errorf("gradient dtype %s doesn't match input dtype %s", grad.DType(), input.DType())
	}
	if grad.Rank() != input.Rank() {
		return errors.Errorf("gradient type %s doesn't match input type %s", grad.outputType, input.outputType)
	}
	for axis, dim := range grad.outputType.Dimensions {
		if _, ok := mergeDims(dim, input.outputType.Dimensions[axis]); !ok {
			return errors.Errorf("gradient type %s doesn't match input type %s", grad.outputType, input.outputType)
		}
	}
	return nil
}
