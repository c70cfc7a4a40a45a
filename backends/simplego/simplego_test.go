package simplego

import (
	"runtime"
	"testing"

	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.False(t, c.Native)
	assert.True(t, c.Reuse)

	c, err = ParseConfig("native, noreuse,bits=32")
	require.NoError(t, err)
	assert.Equal(t, Config{Native: true, Reuse: false, PointerBits: 32, Parallelism: runtime.NumCPU()}, c)

	c, err = ParseConfig("parallelism=0")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Parallelism)
	c, err = ParseConfig("parallelism=-1")
	require.NoError(t, err)
	assert.Equal(t, -1, c.Parallelism)
	_, err = ParseConfig("parallelism=-2")
	require.Error(t, err)

	_, err = ParseConfig("bits=16")
	require.Error(t, err)
	_, err = ParseConfig("turbo")
	require.Error(t, err)
	require.Panics(t, func() { New("turbo") })
}

func TestCapabilities(t *testing.T) {
	caps := New("bits=32").Capabilities()
	assert.Equal(t, 32, caps.PointerBits)
	assert.Equal(t, 32, caps.IntBits)
	for opType := backends.OpTypeInvalid + 1; opType < backends.OpTypeLast; opType++ {
		assert.Truef(t, caps.SupportsOp(opType), "op %s should be supported", opType)
	}
	assert.True(t, caps.SupportsDType(dtypes.BFloat16))
	assert.Empty(t, caps.NativeKernels)

	caps = New("native").Capabilities()
	assert.Equal(t, backends.HostPointerBits, caps.PointerBits)
	assert.True(t, caps.NativeKernels[backends.OpTypeCumsum])
	assert.True(t, caps.NativeKernels[backends.OpTypeCumprod])
	assert.True(t, caps.NativeKernels[backends.OpTypeSearchsorted])
	assert.False(t, caps.NativeKernels[backends.OpTypeDiff])
}

func TestRegistered(t *testing.T) {
	b := backends.NewWithConfig("go:native")
	require.Equal(t, BackendName, b.Name())
	assert.True(t, b.(*Backend).Config().Native)
}

func testKey() backends.NodeKey {
	return backends.NodeKey{Graph: uuid.New()}
}

// execOp executes op with a fresh node key and requires it to succeed.
func execOp(t *testing.T, backend *Backend, op backends.Op, outputDType dtypes.DType, inputs ...*tensors.Tensor) *tensors.Tensor {
	t.Helper()
	output, err := backend.ExecOp(testKey(), op, inputs, outputDType)
	require.NoError(t, err)
	require.NotNil(t, output)
	return output
}

// execOpErr executes op and requires it to fail with backends.ErrExecution.
func execOpErr(t *testing.T, backend *Backend, op backends.Op, outputDType dtypes.DType, inputs ...*tensors.Tensor) error {
	t.Helper()
	_, err := backend.ExecOp(testKey(), op, inputs, outputDType)
	require.Error(t, err)
	require.ErrorIs(t, err, backends.ErrExecution)
	return err
}

func TestFinalize(t *testing.T) {
	backend := New("")
	backend.Finalize()
	_, err := backend.ExecOp(testKey(), backends.StackOp{}, []*tensors.Tensor{tensors.FromScalar(int64(1))}, dtypes.Int64)
	require.Error(t, err)
}
