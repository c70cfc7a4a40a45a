package backends

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"

	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Op is an immutable operator variant: its OpType tag plus its configuration.
//
// Variants are comparable Go values, so two variants are interchangeable if and only if they are equal
// (see OpEqual). A single Op can be shared by any number of graph nodes and goroutines.
type Op interface {
	// Type returns the tag of the variant.
	Type() OpType

	// String returns a short description of the variant, including its configuration.
	String() string
}

// OpEqual returns whether two variants have the same kind and configuration.
func OpEqual(a, b Op) bool {
	return a == b
}

// OpHash returns a hash of the variant kind and configuration, consistent with OpEqual.
func OpHash(op Op) uint64 {
	hasher := fnv.New64a()
	_, _ = fmt.Fprintf(hasher, "%T:%+v", op, op)
	return hasher.Sum64()
}

// Axis is an optional axis configuration: either AxisNone, meaning "operate on the flattened input",
// or a specific axis (negative values count from the end).
type Axis struct {
	value int
	set   bool
}

// AxisNone means no axis is given and the operation works over the flattened input.
var AxisNone = Axis{}

// AxisAt returns the Axis configuration for the given axis.
func AxisAt(axis int) Axis {
	return Axis{value: axis, set: true}
}

// IsNone returns whether the axis is AxisNone.
func (a Axis) IsNone() bool { return !a.set }

// Value returns the configured axis (possibly negative). It panics for AxisNone.
func (a Axis) Value() int {
	if !a.set {
		panic(errors.New("Axis.Value() called on AxisNone"))
	}
	return a.value
}

// Normalize returns the non-negative axis for an input of the given rank.
// It returns an error if the axis is out of bounds, and it must not be called on AxisNone.
func (a Axis) Normalize(rank int) (int, error) {
	if !a.set {
		return 0, errors.New("cannot normalize AxisNone")
	}
	return shapes.AdjustAxis(a.value, rank)
}

// String implements fmt.Stringer.
func (a Axis) String() string {
	if !a.set {
		return "None"
	}
	return fmt.Sprintf("%d", a.value)
}

// Side selects which index Searchsorted returns when values are equal to elements of the sorted array.
type Side int

const (
	// SideLeft returns the first suitable index: x[i-1] < v <= x[i].
	SideLeft Side = iota

	// SideRight returns the last suitable index: x[i-1] <= v < x[i].
	SideRight
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// ParseSide converts "left" or "right" to a Side.
func ParseSide(side string) (Side, error) {
	switch strings.ToLower(side) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	}
	return SideLeft, errors.Errorf("invalid value %q for side, it must be 'left' or 'right'", side)
}

// AxesMask is a bit set of axes, used by variants that need a set of axes and must stay comparable.
type AxesMask uint64

// MaxRank supported by variants using AxesMask.
const MaxRank = 64

// MaskOf returns the mask with the given (non-negative) axes set.
func MaskOf(axes ...int) AxesMask {
	var mask AxesMask
	for _, axis := range axes {
		mask |= 1 << uint(axis)
	}
	return mask
}

// Has returns whether axis is in the mask.
func (m AxesMask) Has(axis int) bool { return m&(1<<uint(axis)) != 0 }

// Len returns the number of axes in the mask.
func (m AxesMask) Len() int { return bits.OnesCount64(uint64(m)) }

// Axes returns the sorted list of axes in the mask.
func (m AxesMask) Axes() []int {
	axes := make([]int, 0, m.Len())
	for axis := range MaxRank {
		if m.Has(axis) {
			axes = append(axes, axis)
		}
	}
	return axes
}

// ParameterOp is a graph input, fed at execution time.
type ParameterOp struct {
	Name string
}

func (op ParameterOp) Type() OpType   { return OpTypeParameter }
func (op ParameterOp) String() string { return fmt.Sprintf("Parameter{%q}", op.Name) }

// ConstantOp holds a constant value. Two constants are the same variant only if they hold the same tensor.
type ConstantOp struct {
	Value *tensors.Tensor
}

func (op ConstantOp) Type() OpType   { return OpTypeConstant }
func (op ConstantOp) String() string { return fmt.Sprintf("Constant{%s}", op.Value.Summary(5)) }

// ShapeOfOp returns the dimensions of its input as an Int64 vector.
type ShapeOfOp struct{}

func (op ShapeOfOp) Type() OpType   { return OpTypeShapeOf }
func (op ShapeOfOp) String() string { return "ShapeOf" }

// DimOfOp returns the dimension of one axis of its input as an Int64 scalar.
type DimOfOp struct {
	Axis int
}

func (op DimOfOp) Type() OpType   { return OpTypeDimOf }
func (op DimOfOp) String() string { return fmt.Sprintf("DimOf{%d}", op.Axis) }

// StackOp stacks integer scalars into an Int64 vector.
type StackOp struct{}

func (op StackOp) Type() OpType   { return OpTypeStack }
func (op StackOp) String() string { return "Stack" }

// ReshapeOp reshapes its first input to the dimensions given by its second input, an integer vector.
// The output is a view of the input.
type ReshapeOp struct{}

func (op ReshapeOp) Type() OpType   { return OpTypeReshape }
func (op ReshapeOp) String() string { return "Reshape" }

// ConvertDTypeOp converts its input to DType.
type ConvertDTypeOp struct {
	DType dtypes.DType
}

func (op ConvertDTypeOp) Type() OpType   { return OpTypeConvertDType }
func (op ConvertDTypeOp) String() string { return fmt.Sprintf("ConvertDType{%s}", op.DType) }

// BinaryOp is an element-wise binary operation: Add, Sub, Mul, Div, Maximum or LessThan.
// Operands must have the same dimensions, or one of them must be a scalar.
type BinaryOp struct {
	Kind OpType
}

func (op BinaryOp) Type() OpType   { return op.Kind }
func (op BinaryOp) String() string { return op.Kind.String() }

// WhereOp selects element-wise between its second and third inputs, according to its first (boolean) input.
type WhereOp struct{}

func (op WhereOp) Type() OpType   { return OpTypeWhere }
func (op WhereOp) String() string { return "Where" }

// ReduceOp reduces the Axes of its input, with Kind either OpTypeReduceSum or OpTypeReduceMax.
type ReduceOp struct {
	Kind OpType
	Axes AxesMask
}

func (op ReduceOp) Type() OpType   { return op.Kind }
func (op ReduceOp) String() string { return fmt.Sprintf("%s{%v}", op.Kind, op.Axes.Axes()) }

// ReverseOp reverses the order of the elements along Axis.
type ReverseOp struct {
	Axis int
}

func (op ReverseOp) Type() OpType   { return OpTypeReverse }
func (op ReverseOp) String() string { return fmt.Sprintf("Reverse{%d}", op.Axis) }

// ConcatenateOp concatenates its inputs along Axis.
type ConcatenateOp struct {
	Axis int
}

func (op ConcatenateOp) Type() OpType   { return OpTypeConcatenate }
func (op ConcatenateOp) String() string { return fmt.Sprintf("Concatenate{%d}", op.Axis) }

// FillOp creates a tensor with the dimensions given by its first input (an integer vector), filled
// with its second input (a scalar).
type FillOp struct{}

func (op FillOp) Type() OpType   { return OpTypeFill }
func (op FillOp) String() string { return "Fill" }

// DimShuffleOp drops the axes in Drop, which must have dimension 1. The output is a view of the input.
type DimShuffleOp struct {
	Drop AxesMask
}

func (op DimShuffleOp) Type() OpType   { return OpTypeDimShuffle }
func (op DimShuffleOp) String() string { return fmt.Sprintf("DimShuffle{drop=%v}", op.Drop.Axes()) }

// ExtractDiagonalOp returns the main diagonal of a matrix.
type ExtractDiagonalOp struct{}

func (op ExtractDiagonalOp) Type() OpType   { return OpTypeExtractDiagonal }
func (op ExtractDiagonalOp) String() string { return "ExtractDiagonal" }

// SearchsortedOp finds, for each element of v (second input), the insertion index in the sorted vector x
// (first input) that keeps it sorted. An optional third input holds the permutation (sorter) that sorts x.
type SearchsortedOp struct {
	Side Side
}

func (op SearchsortedOp) Type() OpType   { return OpTypeSearchsorted }
func (op SearchsortedOp) String() string { return fmt.Sprintf("Searchsorted{%s}", op.Side) }

// CumulativeOp is the cumulative sum (Kind == OpTypeCumsum) or product (Kind == OpTypeCumprod)
// along Axis. With AxisNone the input is flattened first.
type CumulativeOp struct {
	Kind OpType
	Axis Axis
}

func (op CumulativeOp) Type() OpType   { return op.Kind }
func (op CumulativeOp) String() string { return fmt.Sprintf("%s{%s}", op.Kind, op.Axis) }

// DiffOp is the N-th order discrete difference along Axis.
type DiffOp struct {
	N    int
	Axis int
}

func (op DiffOp) Type() OpType   { return OpTypeDiff }
func (op DiffOp) String() string { return fmt.Sprintf("Diff{n=%d, axis=%d}", op.N, op.Axis) }

// BinCountOp counts occurrences of each non-negative integer of its first input, optionally weighted
// by its second input. MinLength is the minimum length of the output, 0 if not given.
type BinCountOp struct {
	MinLength int
}

func (op BinCountOp) Type() OpType   { return OpTypeBinCount }
func (op BinCountOp) String() string { return fmt.Sprintf("BinCount{minlength=%d}", op.MinLength) }

// RepeatOp repeats the elements of its first input by the number of times given in its second input,
// along Axis. With AxisNone the input is flattened first.
type RepeatOp struct {
	Axis Axis
}

func (op RepeatOp) Type() OpType   { return OpTypeRepeat }
func (op RepeatOp) String() string { return fmt.Sprintf("Repeat{axis=%s}", op.Axis) }

// BartlettOp generates the Bartlett (triangular) window of length M (its scalar input).
type BartlettOp struct{}

func (op BartlettOp) Type() OpType   { return OpTypeBartlett }
func (op BartlettOp) String() string { return "Bartlett" }

// FillDiagonalOp returns a copy of its first input with the main diagonal set to its second (scalar) input.
type FillDiagonalOp struct{}

func (op FillDiagonalOp) Type() OpType   { return OpTypeFillDiagonal }
func (op FillDiagonalOp) String() string { return "FillDiagonal" }
