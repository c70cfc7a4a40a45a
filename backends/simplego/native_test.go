package simplego

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomTensor returns a tensor with small random integer values, so results are exact for all dtypes.
func randomTensor(rng *rand.Rand, dtype dtypes.DType, dims ...int) *tensors.Tensor {
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	values := make([]float64, size)
	for ii := range values {
		values[ii] = float64(rng.IntN(4) + 1)
	}
	return tensors.FromFloat64s(dtype, values, dims...)
}

func TestNativeEquivalence(t *testing.T) {
	reference, nativeBackend := New(""), New("native")
	rng := rand.New(rand.NewPCG(42, 0))
	dtypesToTest := []dtypes.DType{dtypes.Int8, dtypes.Uint16, dtypes.Int32, dtypes.Int64, dtypes.Float32,
		dtypes.Float64, dtypes.Complex64, dtypes.Complex128}
	shapesToTest := [][]int{{5}, {2, 3}, {3, 1, 4}, {2, 0, 2}}
	for _, dtype := range dtypesToTest {
		for _, dims := range shapesToTest {
			x := randomTensor(rng, dtype, dims...)
			axes := []backends.Axis{backends.AxisNone}
			for axis := range dims {
				axes = append(axes, backends.AxisAt(axis), backends.AxisAt(axis-len(dims)))
			}
			for _, kind := range []backends.OpType{backends.OpTypeCumsum, backends.OpTypeCumprod} {
				for _, axis := range axes {
					op := backends.CumulativeOp{Kind: kind, Axis: axis}
					want := execOp(t, reference, op, dtype, x)
					got := execOp(t, nativeBackend, op, dtype, x)
					require.Truef(t, want.Equal(got), "%s of %s: native %s, reference %s", op, x.Shape(), got, want)
				}
			}
		}

		if dtype == dtypes.Complex64 || dtype == dtypes.Complex128 {
			continue
		}
		sorted := randomTensor(rng, dtype, 10)
		values := tensors.FromFloat64s(dtype, slices.Sorted(slices.Values(sorted.Float64s())), 10)
		queries := randomTensor(rng, dtype, 3, 4)
		for _, side := range []backends.Side{backends.SideLeft, backends.SideRight} {
			op := backends.SearchsortedOp{Side: side}
			want := execOp(t, reference, op, dtypes.Int64, values, queries)
			got := execOp(t, nativeBackend, op, dtypes.Int64, values, queries)
			require.Truef(t, want.Equal(got), "%s: native %s, reference %s", op, got, want)
		}
	}
	assert.Greater(t, nativeBackend.Kernels().Compilations(), 0)
	assert.Equal(t, 0, reference.Kernels().Compilations())
}

func TestNativeOutputReuse(t *testing.T) {
	backend := New("native")
	key := testKey()
	op := backends.CumulativeOp{Kind: backends.OpTypeCumsum, Axis: backends.AxisAt(0)}
	exec := func(x *tensors.Tensor) *tensors.Tensor {
		output, err := backend.ExecOp(key, op, []*tensors.Tensor{x}, x.DType())
		require.NoError(t, err)
		return output
	}
	first := exec(tensors.FromValue([]float32{1, 2, 3}))
	assert.Equal(t, tensors.Borrowed, first.Ownership())
	assert.Equal(t, []float32{1, 3, 6}, first.Value())
	firstValue := first.Clone()

	// Same dtype and dimensions: the buffer is reused, and fully overwritten.
	second := exec(tensors.FromValue([]float32{0, 0, 1}))
	assert.True(t, second.SharesStorage(first))
	assert.Equal(t, []float32{0, 0, 1}, second.Value())
	assert.Equal(t, []float32{1, 3, 6}, firstValue.Value())
	slot := backend.Outputs().Slot(key)
	assert.Equal(t, 1, slot.Allocations())

	// Different dimensions: reallocated.
	third := exec(tensors.FromValue([]float32{1, 1}))
	assert.False(t, third.SharesStorage(second))
	assert.Equal(t, []float32{1, 2}, third.Value())
	assert.Equal(t, 2, slot.Allocations())
	assert.Equal(t, 1, backend.Kernels().Len())

	// Without reuse every execution returns an owned tensor.
	backend = New("native,noreuse")
	first = exec(tensors.FromValue([]float32{1, 2, 3}))
	second = exec(tensors.FromValue([]float32{1, 2, 3}))
	assert.Equal(t, tensors.Owned, first.Ownership())
	assert.False(t, second.SharesStorage(first))
}

func TestNativeParallel(t *testing.T) {
	reference := New("")
	rng := rand.New(rand.NewPCG(7, 0))
	x := randomTensor(rng, dtypes.Float64, 64, 300, 2)
	sorted := tensors.FromFloat64s(dtypes.Int32, slices.Sorted(slices.Values(randomTensor(rng, dtypes.Int32, 100).Float64s())), 100)
	queries := randomTensor(rng, dtypes.Int32, 5000)
	for _, config := range []string{"native,parallelism=0", "native,parallelism=4", "native,parallelism=-1"} {
		t.Run(config, func(t *testing.T) {
			backend := New(config)
			for _, axis := range []backends.Axis{backends.AxisAt(0), backends.AxisAt(1), backends.AxisAt(2)} {
				op := backends.CumulativeOp{Kind: backends.OpTypeCumsum, Axis: axis}
				want := execOp(t, reference, op, dtypes.Float64, x)
				got := execOp(t, backend, op, dtypes.Float64, x)
				require.Truef(t, want.Equal(got), "%s of %s differs from the reference", op, x.Shape())
			}
			op := backends.SearchsortedOp{Side: backends.SideRight}
			want := execOp(t, reference, op, dtypes.Int64, sorted, queries)
			got := execOp(t, backend, op, dtypes.Int64, sorted, queries)
			require.True(t, want.Equal(got))
		})
	}
}
