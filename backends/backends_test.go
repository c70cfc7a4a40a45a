package backends

import (
	"testing"

	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpType(t *testing.T) {
	assert.Equal(t, "Searchsorted", OpTypeSearchsorted.String())
	assert.Equal(t, "FillDiagonal", OpTypeFillDiagonal.String())
	opType, err := OpTypeString("cumprod")
	require.NoError(t, err)
	assert.Equal(t, OpTypeCumprod, opType)
	_, err = OpTypeString("NotAnOp")
	require.Error(t, err)
	assert.Len(t, OpTypeValues(), int(OpTypeLast)+1)
}

func TestOpEqualAndHash(t *testing.T) {
	cases := []struct {
		a, b  Op
		equal bool
	}{
		{SearchsortedOp{Side: SideLeft}, SearchsortedOp{Side: SideLeft}, true},
		{SearchsortedOp{Side: SideLeft}, SearchsortedOp{Side: SideRight}, false},
		{CumulativeOp{Kind: OpTypeCumsum, Axis: AxisAt(0)}, CumulativeOp{Kind: OpTypeCumsum, Axis: AxisAt(0)}, true},
		{CumulativeOp{Kind: OpTypeCumsum, Axis: AxisAt(0)}, CumulativeOp{Kind: OpTypeCumprod, Axis: AxisAt(0)}, false},
		{CumulativeOp{Kind: OpTypeCumsum, Axis: AxisNone}, CumulativeOp{Kind: OpTypeCumsum, Axis: AxisAt(0)}, false},
		{DiffOp{N: 1, Axis: -1}, DiffOp{N: 1, Axis: -1}, true},
		{DiffOp{N: 1, Axis: -1}, DiffOp{N: 2, Axis: -1}, false},
		{BinCountOp{MinLength: 3}, BinCountOp{MinLength: 3}, true},
		{RepeatOp{Axis: AxisNone}, RepeatOp{Axis: AxisNone}, true},
		{BartlettOp{}, BartlettOp{}, true},
		{BartlettOp{}, FillDiagonalOp{}, false},
		{ReduceOp{Kind: OpTypeReduceSum, Axes: MaskOf(0, 2)}, ReduceOp{Kind: OpTypeReduceSum, Axes: MaskOf(2, 0)}, true},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.equal, OpEqual(tc.a, tc.b), "OpEqual(%s, %s)", tc.a, tc.b)
		if tc.equal {
			require.Equalf(t, OpHash(tc.a), OpHash(tc.b), "OpHash(%s) != OpHash(%s)", tc.a, tc.b)
		}
	}

	value := tensors.FromValue([]float64{1, 2})
	require.True(t, OpEqual(ConstantOp{Value: value}, ConstantOp{Value: value}))
	require.False(t, OpEqual(ConstantOp{Value: value}, ConstantOp{Value: value.Clone()}))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "Searchsorted{right}", SearchsortedOp{Side: SideRight}.String())
	assert.Equal(t, "Cumsum{None}", CumulativeOp{Kind: OpTypeCumsum, Axis: AxisNone}.String())
	assert.Equal(t, "Cumprod{-1}", CumulativeOp{Kind: OpTypeCumprod, Axis: AxisAt(-1)}.String())
	assert.Equal(t, "Diff{n=2, axis=0}", DiffOp{N: 2, Axis: 0}.String())
	assert.Equal(t, "ReduceSum{[0 2]}", ReduceOp{Kind: OpTypeReduceSum, Axes: MaskOf(0, 2)}.String())
}

func TestAxis(t *testing.T) {
	require.True(t, AxisNone.IsNone())
	require.False(t, AxisAt(0).IsNone())
	require.Panics(t, func() { _ = AxisNone.Value() })
	axis, err := AxisAt(-1).Normalize(3)
	require.NoError(t, err)
	require.Equal(t, 2, axis)
	_, err = AxisAt(3).Normalize(3)
	require.Error(t, err)
	_, err = AxisNone.Normalize(3)
	require.Error(t, err)

	mask := MaskOf(1, 3)
	require.True(t, mask.Has(3))
	require.False(t, mask.Has(0))
	require.Equal(t, []int{1, 3}, mask.Axes())
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide("Right")
	require.NoError(t, err)
	require.Equal(t, SideRight, side)
	_, err = ParseSide("middle")
	require.Error(t, err)
}

type fakeBackend struct{ config string }

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Description() string { return "fake:" + b.config }

func (b *fakeBackend) Capabilities() Capabilities { return Capabilities{} }

func (b *fakeBackend) Finalize() {}

func (b *fakeBackend) ExecOp(_ NodeKey, _ Op, _ []*tensors.Tensor, _ dtypes.DType) (*tensors.Tensor, error) {
	return nil, ErrExecution
}

func TestRegistry(t *testing.T) {
	Register("fake", func(config string) Backend { return &fakeBackend{config: config} })
	require.Contains(t, Registered(), "fake")

	backend := NewWithConfig("fake:a,b")
	require.Equal(t, "fake:a,b", backend.Description())
	backend = NewWithConfig("fake")
	require.Equal(t, "fake:", backend.Description())
	require.Panics(t, func() { _ = NewWithConfig("unknown:x") })

	t.Setenv(EnvBackend, "fake:env")
	require.Equal(t, "fake:env", New().Description())

	name, config := SplitConfig("go:native")
	require.Equal(t, "go", name)
	require.Equal(t, "native", config)
}

func TestCapabilitiesClone(t *testing.T) {
	c := Capabilities{
		Operations:    map[OpType]bool{OpTypeCumsum: true},
		DTypes:        map[dtypes.DType]bool{dtypes.Float64: true},
		PointerBits:   64,
		IntBits:       64,
		NativeKernels: map[OpType]bool{OpTypeCumsum: true},
	}
	c2 := c.Clone()
	c2.Operations[OpTypeCumprod] = true
	require.False(t, c.SupportsOp(OpTypeCumprod))
	require.True(t, c2.SupportsOp(OpTypeCumprod))
	require.True(t, c2.SupportsDType(dtypes.Float64))
	require.Equal(t, 64, c2.PointerBits)
	require.True(t, HostPointerBits == 32 || HostPointerBits == 64)
}
