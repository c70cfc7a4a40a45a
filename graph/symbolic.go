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
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

type dimKind int

const (
	dimUnknown dimKind = iota
	dimStatic
	dimExpr
)

// Dim is one component of a SymbolicShape: either a static value, an expression (an Int64 scalar node computed
// at execution time), or unknown.
type Dim struct {
	kind  dimKind
	value int
	expr  *Node
}

// Static returns a Dim with a value known at graph building time.
func Static(value int) Dim {
	return Dim{kind: dimStatic, value: value}
}

// Expr returns a Dim computed by the given integer scalar node. Constant nodes are folded into static values,
// and other integer dtypes are converted to Int64.
func Expr(node *Node) Dim {
	if !node.IsScalar() || !isIntegerDType(node.DType()) {
		exceptions.Panicf("symbolic dimension expression must be an integer scalar, got %s", node)
	}
	if value := node.ConstValue(); value != nil {
		return Static(int(value.Int64s()[0]))
	}
	if node.DType() != dtypes.Int64 {
		node = ConvertDType(node, dtypes.Int64)
	}
	return Dim{kind: dimExpr, expr: node}
}

// Unknown returns a Dim that cannot be computed symbolically.
func Unknown() Dim {
	return Dim{}
}

// IsStatic returns whether the value is known at graph building time.
func (d Dim) IsStatic() bool { return d.kind == dimStatic }

// IsExpr returns whether the dimension is computed by a node.
func (d Dim) IsExpr() bool { return d.kind == dimExpr }

// IsUnknown returns whether the dimension cannot be computed.
func (d Dim) IsUnknown() bool { return d.kind == dimUnknown }

// Value returns the static value. It panics if the dimension is not static.
func (d Dim) Value() int {
	if d.kind != dimStatic {
		exceptions.Panicf("Dim.Value() called on non-static dimension %s", d)
	}
	return d.value
}

// ExprNode returns the node computing the dimension, or nil if it is not an expression.
func (d Dim) ExprNode() *Node { return d.expr }

// Node returns an Int64 scalar node with the dimension value. It panics for unknown dimensions.
func (d Dim) Node(g *Graph) *Node {
	switch d.kind {
	case dimStatic:
		return Scalar(g, dtypes.Int64, float64(d.value))
	case dimExpr:
		return d.expr
	}
	exceptions.Panicf("cannot materialize an unknown dimension")
	return nil
}

// String implements fmt.Stringer.
func (d Dim) String() string {
	switch d.kind {
	case dimStatic:
		return fmt.Sprintf("%d", d.value)
	case dimExpr:
		return fmt.Sprintf("expr(#%d)", d.expr.Id())
	}
	return "?"
}

// dimBinaryOp folds static values with foldFn, or builds the node with nodeFn.
func dimBinaryOp(a, b Dim, foldFn func(a, b int) int, nodeFn func(a, b *Node) *Node) Dim {
	if a.IsUnknown() || b.IsUnknown() {
		return Unknown()
	}
	if a.IsStatic() && b.IsStatic() {
		return Static(foldFn(a.value, b.value))
	}
	g := a.expr.Graph()
	if g == nil {
		g = b.expr.Graph()
	}
	return Expr(nodeFn(a.Node(g), b.Node(g)))
}

// Add returns d+other.
func (d Dim) Add(other Dim) Dim {
	return dimBinaryOp(d, other, func(a, b int) int { return a + b }, Add)
}

// Sub returns d-other.
func (d Dim) Sub(other Dim) Dim {
	return dimBinaryOp(d, other, func(a, b int) int { return a - b }, Sub)
}

// Mul returns d*other.
func (d Dim) Mul(other Dim) Dim {
	return dimBinaryOp(d, other, func(a, b int) int { return a * b }, Mul)
}

// MaxDim returns the maximum of a and b.
func MaxDim(a, b Dim) Dim {
	return dimBinaryOp(a, b, func(a, b int) int { return max(a, b) }, Maximum)
}

// ProdDims returns the product of the dimensions, 1 if none is given.
func ProdDims(dims ...Dim) Dim {
	prod := Static(1)
	for _, dim := range dims {
		prod = prod.Mul(dim)
	}
	return prod
}

// SymbolicShape is the shape of a node, where each dimension may be static, an expression or unknown.
type SymbolicShape []Dim

// Static returns the static dimensions, if all of them are static.
func (s SymbolicShape) Static() ([]int, bool) {
	dims := make([]int, len(s))
	for axis, dim := range s {
		if !dim.IsStatic() {
			return nil, false
		}
		dims[axis] = dim.value
	}
	return dims, true
}

// Node materializes the shape as an Int64 vector node. It panics if any dimension is unknown.
func (s SymbolicShape) Node(g *Graph) *Node {
	if dims, ok := s.Static(); ok {
		values := make([]int64, len(dims))
		for axis, dim := range dims {
			values[axis] = int64(dim)
		}
		return Const(g, tensors.FromFlatDataAndDimensions(values, len(values)))
	}
	scalars := make([]*Node, len(s))
	for axis, dim := range s {
		scalars[axis] = dim.Node(g)
	}
	return Stack(scalars...)
}

// String implements fmt.Stringer.
func (s SymbolicShape) String() string {
	parts := make([]string, len(s))
	for axis, dim := range s {
		parts[axis] = dim.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// InferShape returns the symbolic shape of the node's output.
//
// Operators with a shape inference rule express their output dimensions in terms of their inputs, e.g. the
// output length of BinCount is an expression computing max(x)+1. For the others (and for parameters) the
// dimensions known at graph building time are static, and the unknown ones are read from the node itself
// with DimOf.
func InferShape(node *Node) SymbolicShape {
	if inferFn := opDefs[node.Type()].inferShape; inferFn != nil {
		shape := inferFn(node)
		if len(shape) != node.Rank() {
			exceptions.Panicf("shape inference of %s returned rank %d", node, len(shape))
		}
		return shape
	}
	return defaultInferShape(node)
}

func defaultInferShape(node *Node) SymbolicShape {
	shape := make(SymbolicShape, node.Rank())
	for axis, dim := range node.outputType.Dimensions {
		if dim != UnknownDim {
			shape[axis] = Static(dim)
		} else {
			shape[axis] = Expr(DimOf(node, axis))
		}
	}
	return shape
}
