package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/graph"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	"k8s.io/klog/v2"
)

// Program is a small graph described in a HCL file:
//
//	input "x" {
//	  dtype = "float64"
//	  value = [1, 2, 3]
//	}
//	op "cs" {
//	  kind   = "cumsum"
//	  inputs = ["x"]
//	  axis   = 0
//	}
//	output = ["cs"]
//	grad   = { of = "cs", wrt = ["x"] }
//
// Inputs become graph parameters, fed with their values at execution. Ops are built in order, and can only
// refer to inputs and ops defined before them.
type Program struct {
	Inputs  []*InputBlock  `hcl:"input,block"`
	Ops     []*OpBlock     `hcl:"op,block"`
	Outputs []string       `hcl:"output"`
	Grad    hcl.Expression `hcl:"grad,optional"`
}

// InputBlock defines a named input. Dims is optional: by default it is taken from the nesting of Value.
type InputBlock struct {
	Name  string    `hcl:"name,label"`
	DType string    `hcl:"dtype"`
	Dims  []int     `hcl:"dims,optional"`
	Value cty.Value `hcl:"value"`
}

// OpBlock defines a named operation. Which attributes are used depends on Kind.
type OpBlock struct {
	Name      string   `hcl:"name,label"`
	Kind      string   `hcl:"kind"`
	Inputs    []string `hcl:"inputs,optional"`
	Axis      *int     `hcl:"axis,optional"`
	N         *int     `hcl:"n,optional"`
	Side      *string  `hcl:"side,optional"`
	MinLength *int     `hcl:"minlength,optional"`
	DType     *string  `hcl:"dtype,optional"`
	Value     *float64 `hcl:"value,optional"`
}

// GradSpec requests the gradient of the sum of the node Of with respect to the nodes in Wrt.
type GradSpec struct {
	Of  string   `cty:"of"`
	Wrt []string `cty:"wrt"`
}

var gradSpecType = cty.Object(map[string]cty.Type{
	"of":  cty.String,
	"wrt": cty.List(cty.String),
})

// Result is one named output of a program.
type Result struct {
	Name   string
	Tensor *tensors.Tensor
}

// ParseProgram parses the program in src. filename is only used for error messages.
func ParseProgram(src []byte, filename string) (*Program, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decodeProgram(file)
}

// LoadProgram reads and parses the program file in path.
func LoadProgram(path string) (*Program, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}
	return decodeProgram(file)
}

func decodeProgram(file *hcl.File) (*Program, error) {
	p := &Program{}
	if diags := gohcl.DecodeBody(file.Body, nil, p); diags.HasErrors() {
		return nil, diags
	}
	if len(p.Outputs) == 0 {
		return nil, errors.New("program has no outputs")
	}
	return p, nil
}

// GradSpec returns the gradient request of the program, or nil if there is none.
func (p *Program) GradSpec() (*GradSpec, error) {
	if p.Grad == nil {
		return nil, nil
	}
	value, diags := p.Grad.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if value.IsNull() {
		return nil, nil
	}
	value, err := convert.Convert(value, gradSpecType)
	if err != nil {
		return nil, errors.Wrap(err, "grad must be an object { of = string, wrt = [strings] }")
	}
	gradSpec := &GradSpec{}
	if err := gocty.FromCtyValue(value, gradSpec); err != nil {
		return nil, errors.Wrap(err, "decoding grad")
	}
	return gradSpec, nil
}

// Run builds the program graph in the given backend, executes it and returns its outputs, followed by
// the requested gradients (named "d<of>/d<wrt>").
func (p *Program) Run(backend backends.Backend) ([]Result, error) {
	var (
		exec   *graph.Exec
		names  []string
		values []*tensors.Tensor
	)
	err := exceptions.TryCatch[error](func() {
		exec, names, values = p.build(backend)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "building program")
	}
	feed := make([]any, len(exec.Parameters()))
	for ii, param := range exec.Parameters() {
		idx := slices.IndexFunc(p.Inputs, func(in *InputBlock) bool { return in.Name == param.ParameterName() })
		feed[ii] = values[idx]
	}
	outputs, err := exec.Call(feed...)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(outputs))
	for ii, output := range outputs {
		results[ii] = Result{Name: names[ii], Tensor: output}
	}
	return results, nil
}

// build creates the graph and returns its Exec, the names of its outputs and the values of the program inputs.
// Errors are thrown as panics.
func (p *Program) build(backend backends.Backend) (exec *graph.Exec, names []string, values []*tensors.Tensor) {
	g := graph.NewGraph(backend, "program")
	nodes := make(map[string]*graph.Node)
	define := func(name string, node *graph.Node) {
		if _, found := nodes[name]; found {
			exceptions.Panicf("%q defined more than once", name)
		}
		nodes[name] = node
	}

	values = make([]*tensors.Tensor, len(p.Inputs))
	for ii, input := range p.Inputs {
		values[ii] = must.M1(input.tensor())
		define(input.Name, g.Parameter(input.Name, graph.TypeOfShape(values[ii].Shape())))
	}
	for _, op := range p.Ops {
		inputs := make([]*graph.Node, len(op.Inputs))
		for ii, name := range op.Inputs {
			node, found := nodes[name]
			if !found {
				exceptions.Panicf("op %q: unknown input %q", op.Name, name)
			}
			inputs[ii] = node
		}
		node := op.build(g, inputs)
		klog.V(1).Infof("op %q: %s", op.Name, node)
		define(op.Name, node)
	}

	var outputs []*graph.Node
	for _, name := range p.Outputs {
		node, found := nodes[name]
		if !found {
			exceptions.Panicf("unknown output %q", name)
		}
		outputs = append(outputs, node)
		names = append(names, name)
	}

	gradSpec := must.M1(p.GradSpec())
	if gradSpec != nil {
		of, found := nodes[gradSpec.Of]
		if !found {
			exceptions.Panicf("grad: unknown node %q", gradSpec.Of)
		}
		wrt := make([]*graph.Node, len(gradSpec.Wrt))
		for ii, name := range gradSpec.Wrt {
			if wrt[ii], found = nodes[name]; !found {
				exceptions.Panicf("grad: unknown node %q", name)
			}
			names = append(names, fmt.Sprintf("d%s/d%s", gradSpec.Of, name))
		}
		outputs = append(outputs, graph.Gradient(graph.ReduceAllSum(of), wrt...)...)
	}
	exec = graph.NewExec(outputs...)
	return
}

// parseDType accepts the dtype names in any case, e.g. "float32" or "Float32".
func parseDType(name string) (dtypes.DType, error) {
	for _, dtype := range []dtypes.DType{
		dtypes.Bool, dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
		dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64, dtypes.Float32, dtypes.Float64,
	} {
		if strings.EqualFold(dtype.String(), name) {
			return dtype, nil
		}
	}
	return dtypes.InvalidDType, errors.Errorf("unknown or unsupported dtype %q", name)
}

// tensor converts the input value to a tensor.
func (in *InputBlock) tensor() (*tensors.Tensor, error) {
	dtype, err := parseDType(in.DType)
	if err != nil {
		return nil, errors.WithMessagef(err, "input %q", in.Name)
	}
	flat, dims, err := flattenValue(in.Value)
	if err != nil {
		return nil, errors.WithMessagef(err, "input %q", in.Name)
	}
	if in.Dims != nil {
		size := 1
		for _, dim := range in.Dims {
			size *= dim
		}
		if size != len(flat) {
			return nil, errors.Errorf("input %q: dims %v require %d values, got %d", in.Name, in.Dims, size, len(flat))
		}
		dims = in.Dims
	}
	return tensors.FromFloat64s(dtype, flat, dims...), nil
}

// flattenValue returns the numbers in a possibly nested list of numbers (or bools), and the dimensions of the
// nesting. All lists at the same depth must have the same length.
func flattenValue(value cty.Value) (flat []float64, dims []int, err error) {
	var visit func(v cty.Value, depth int) error
	visit = func(v cty.Value, depth int) error {
		if v.IsNull() || !v.IsKnown() {
			return errors.New("values must be known and non-null")
		}
		ty := v.Type()
		switch {
		case ty == cty.Number:
			if depth != len(dims) {
				return errors.New("ragged value")
			}
			f, _ := v.AsBigFloat().Float64()
			flat = append(flat, f)
		case ty == cty.Bool:
			if depth != len(dims) {
				return errors.New("ragged value")
			}
			if v.True() {
				flat = append(flat, 1)
			} else {
				flat = append(flat, 0)
			}
		case ty.IsListType() || ty.IsTupleType():
			length := v.LengthInt()
			switch {
			case depth == len(dims) && len(flat) == 0:
				dims = append(dims, length)
			case depth >= len(dims) || dims[depth] != length:
				return errors.New("ragged value")
			}
			for it := v.ElementIterator(); it.Next(); {
				_, element := it.Element()
				if err := visit(element, depth+1); err != nil {
					return err
				}
			}
		default:
			return errors.Errorf("unsupported value type %s", ty.FriendlyName())
		}
		return nil
	}
	err = visit(value, 0)
	return
}

// build creates the node for the op, and panics with an error if the op is invalid.
func (op *OpBlock) build(g *graph.Graph, inputs []*graph.Node) *graph.Node {
	requireInputs := func(counts ...int) {
		if !slices.Contains(counts, len(inputs)) {
			exceptions.Panicf("op %q (%s) takes %v inputs, got %d", op.Name, op.Kind, counts, len(inputs))
		}
	}
	axis := backends.AxisNone
	if op.Axis != nil {
		axis = backends.AxisAt(*op.Axis)
	}

	switch strings.ToLower(op.Kind) {
	case "scalar":
		requireInputs(0)
		if op.DType == nil || op.Value == nil {
			exceptions.Panicf("op %q (scalar) requires dtype and value", op.Name)
		}
		return graph.Scalar(g, must.M1(parseDType(*op.DType)), *op.Value)
	case "add":
		requireInputs(2)
		return graph.Add(inputs[0], inputs[1])
	case "sub":
		requireInputs(2)
		return graph.Sub(inputs[0], inputs[1])
	case "mul":
		requireInputs(2)
		return graph.Mul(inputs[0], inputs[1])
	case "reduce_sum":
		requireInputs(1)
		if op.Axis == nil {
			return graph.ReduceAllSum(inputs[0])
		}
		return graph.ReduceSum(inputs[0], *op.Axis)
	case "searchsorted":
		requireInputs(2, 3)
		side := backends.SideLeft
		if op.Side != nil {
			side = must.M1(backends.ParseSide(*op.Side))
		}
		var sorter *graph.Node
		if len(inputs) == 3 {
			sorter = inputs[2]
		}
		return graph.Searchsorted(inputs[0], inputs[1], side, sorter)
	case "cumsum":
		requireInputs(1)
		return graph.Cumsum(inputs[0], axis)
	case "cumprod":
		requireInputs(1)
		return graph.Cumprod(inputs[0], axis)
	case "diff":
		requireInputs(1)
		n, diffAxis := 1, -1
		if op.N != nil {
			n = *op.N
		}
		if op.Axis != nil {
			diffAxis = *op.Axis
		}
		return graph.Diff(inputs[0], n, diffAxis)
	case "bincount":
		requireInputs(1, 2)
		var weights *graph.Node
		if len(inputs) == 2 {
			weights = inputs[1]
		}
		minLength := 0
		if op.MinLength != nil {
			minLength = *op.MinLength
		}
		return graph.BinCount(inputs[0], weights, minLength)
	case "squeeze":
		requireInputs(1)
		return graph.Squeeze(inputs[0])
	case "repeat":
		requireInputs(2)
		return graph.Repeat(inputs[0], inputs[1], axis)
	case "bartlett":
		requireInputs(1)
		return graph.Bartlett(inputs[0])
	case "fill_diagonal":
		requireInputs(2)
		return graph.FillDiagonal(inputs[0], inputs[1])
	}
	exceptions.Panicf("op %q: unknown kind %q", op.Name, op.Kind)
	return nil
}
