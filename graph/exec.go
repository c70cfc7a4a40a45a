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
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Exec executes the nodes of a graph required to compute a list of outputs.
//
// Example:
//
//	g := NewGraph(backend, "cumsum")
//	x := g.Parameter("x", MakeType(dtypes.Float64, UnknownDim))
//	exec := NewExec(Cumsum(x, backends.AxisNone))
//	outputs, err := exec.Call([]float64{1, 2, 3})
//
// The inputs of Call are the values of the parameters the outputs depend on, in order of creation
// (see Exec.Parameters).
//
// Each Call evaluates the nodes sequentially, in the order they were created. Calls on the same Exec are
// serialized: the backend may reuse the output buffers of a node between executions, see SetBorrowOutputs.
// Output buffers belong to one Exec, so distinct Execs of the same graph can run concurrently.
type Exec struct {
	id         uuid.UUID
	graph      *Graph
	outputs    []*Node
	nodes      []*Node // Nodes needed to compute the outputs, in topological order.
	parameters []*Node

	borrowOutputs bool

	mu sync.Mutex
}

// NewExec returns an Exec for the given outputs, which must all be from the same graph.
func NewExec(outputs ...*Node) *Exec {
	if len(outputs) == 0 {
		exceptions.Panicf("NewExec requires at least one output")
	}
	g := outputs[0].Graph()
	needed := make([]bool, g.NumNodes())
	var visit func(node *Node)
	visit = func(node *Node) {
		if needed[node.Id()] {
			return
		}
		needed[node.Id()] = true
		for _, input := range node.inputNodes {
			visit(input)
		}
	}
	for ii, output := range outputs {
		if output == nil || output.Graph() != g {
			exceptions.Panicf("NewExec: output #%d is nil or from a different graph", ii)
		}
		visit(output)
	}
	e := &Exec{id: uuid.New(), graph: g, outputs: outputs}
	for id, isNeeded := range needed {
		if !isNeeded {
			continue
		}
		node := g.nodes[id]
		e.nodes = append(e.nodes, node)
		if node.Type() == backends.OpTypeParameter {
			e.parameters = append(e.parameters, node)
		}
	}
	return e
}

// Id identifies the Exec in the backend caches: each Exec owns the output buffers of its nodes.
func (e *Exec) Id() uuid.UUID { return e.id }

// Parameters returns the parameters fed to Call, in order.
func (e *Exec) Parameters() []*Node { return e.parameters }

// SetBorrowOutputs configures whether Call returns output tensors borrowed from the backend output caches.
// Borrowed tensors are overwritten by the next Call. The default is false: borrowed outputs are cloned.
// It returns the Exec itself, so calls can be chained.
func (e *Exec) SetBorrowOutputs(borrow bool) *Exec {
	e.borrowOutputs = borrow
	return e
}

// Call executes the graph with the given parameter values, and returns one tensor per output.
//
// Inputs can be *tensors.Tensor or anything accepted by tensors.FromAnyValue. All of them are checked against
// the parameters types before execution, and all mismatches are reported together.
//
// Outputs of operations that return a view of their input (see Node.IsView) share the storage of that input.
func (e *Exec) Call(inputs ...any) ([]*tensors.Tensor, error) {
	if len(inputs) != len(e.parameters) {
		return nil, errors.Errorf("graph %q requires %d parameters, %d given to Call()",
			e.graph.name, len(e.parameters), len(inputs))
	}
	values := make(map[int]*tensors.Tensor, len(e.nodes))
	var err error
	for ii, param := range e.parameters {
		var t *tensors.Tensor
		convErr := exceptions.TryCatch[error](func() { t = tensors.FromAnyValue(inputs[ii]) })
		if convErr != nil {
			err = multierr.Append(err, errors.WithMessagef(convErr, "parameter %q", param.ParameterName()))
			continue
		}
		if matchErr := param.outputType.Matches(t.Shape()); matchErr != nil {
			err = multierr.Append(err, errors.WithMessagef(matchErr, "parameter %q", param.ParameterName()))
			continue
		}
		values[param.Id()] = t
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	backend := e.graph.backend
	borrowed := make(map[int]bool)
	for _, node := range e.nodes {
		if node.Type() == backends.OpTypeParameter {
			continue
		}
		nodeInputs := make([]*tensors.Tensor, len(node.inputNodes))
		for ii, input := range node.inputNodes {
			nodeInputs[ii] = values[input.Id()]
		}
		key := backends.NodeKey{Graph: e.graph.id, Exec: e.id, Node: node.id}
		output, execErr := backend.ExecOp(key, node.op, nodeInputs, node.DType())
		if execErr != nil {
			return nil, errors.WithMessagef(execErr, "executing node %s", node)
		}
		if matchErr := node.outputType.Matches(output.Shape()); matchErr != nil {
			return nil, errors.Wrapf(backends.ErrExecution, "node %s returned an invalid output: %v", node, matchErr)
		}
		if klog.V(2).Enabled() {
			klog.Infof("executed %s: %s", node, output.Shape())
		}
		values[node.id] = output
		switch {
		case output.Ownership() == tensors.Borrowed:
			borrowed[node.id] = true
		case output.IsView():
			for _, input := range node.inputNodes {
				if borrowed[input.id] && output.SharesStorage(values[input.id]) {
					borrowed[node.id] = true
				}
			}
		}
	}

	results := make([]*tensors.Tensor, len(e.outputs))
	for ii, output := range e.outputs {
		results[ii] = values[output.id]
		if borrowed[output.id] && !e.borrowOutputs {
			results[ii] = results[ii].Clone()
		}
	}
	return results, nil
}

// MustCall calls Call and panics if an error happened.
func (e *Exec) MustCall(inputs ...any) []*tensors.Tensor {
	results, err := e.Call(inputs...)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to execute graph %q", e.graph.name))
	}
	return results
}
