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

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/extraops/backends"
	_ "github.com/gomlx/extraops/backends/simplego"
	"github.com/gomlx/extraops/graph"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/stretchr/testify/require"
)

// TestGraphFn should build its own inputs (usually constants), and return both inputs and outputs.
type TestGraphFn func(g *graph.Graph) (inputs, outputs []*graph.Node)

var (
	backendOnce   sync.Once
	cachedBackend backends.Backend
)

// BuildTestBackend sets backends.DefaultConfig to "go" and returns a backend shared by all tests.
// It can be overwritten by the EXTRAOPS_BACKEND environment variable, e.g. "go:native" to test the
// native kernels.
func BuildTestBackend() backends.Backend {
	backends.DefaultConfig = "go"
	backendOnce.Do(func() {
		cachedBackend = backends.New()
		fmt.Printf("Backend: %s\n", cachedBackend.Description())
	})
	return cachedBackend
}

// RunTestGraphFn tests a graph building function graphFn by executing it and comparing
// its output(s) to the values in want, reporting back any errors in t.
//
// A wanted value can be a shapes.Shape, in which case only the shape of the output is checked.
//
// delta is the margin of value on the difference of output and want values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, want []any, delta float64) {
	t.Run(testName, func(t *testing.T) {
		backend := BuildTestBackend()
		g := graph.NewGraph(backend, testName)
		var inputs, outputs []*graph.Node
		require.NotPanicsf(t, func() { inputs, outputs = graphFn(g) }, "%s: failed to build graph", testName)
		require.Equalf(t, len(want), len(outputs), "%s: number of wanted results different from number of outputs",
			testName)

		all := append(append([]*graph.Node{}, inputs...), outputs...)
		exec := graph.NewExec(all...)
		require.Emptyf(t, exec.Parameters(), "%s: graph must not have parameters", testName)
		inputsAndOutputs, err := exec.Call()
		require.NoErrorf(t, err, "%s: failed to execute graph", testName)

		fmt.Printf("\n%s:\n", testName)
		for ii, input := range inputsAndOutputs[:len(inputs)] {
			fmt.Printf("\tInput %d: %s\n", ii, input)
		}
		if len(inputs) > 0 {
			fmt.Printf("\t======\n")
		}
		for ii, output := range inputsAndOutputs[len(inputs):] {
			fmt.Printf("\tOutput %d: %s\n", ii, output)
			if s, ok := want[ii].(shapes.Shape); ok {
				require.Truef(t, s.Equal(output.Shape()), "%s: output #%d has shape %s, wanted %s",
					testName, ii, output.Shape(), s)
				continue
			}
			wantTensor := tensors.FromAnyValue(want[ii])
			require.Truef(t, wantTensor.InDelta(output, delta), "%s: output #%d (%s) doesn't match wanted value %v",
				testName, ii, output, want[ii])
		}
	})
}

// NewBackendWithConfig returns a fresh backend for the given configuration, finalized at the end of the test.
func NewBackendWithConfig(t *testing.T, config string) backends.Backend {
	backend := backends.NewWithConfig(config)
	t.Cleanup(backend.Finalize)
	return backend
}
