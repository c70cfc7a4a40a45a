package simplego

import (
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/backends/native"
	"github.com/gomlx/gopjrt/dtypes"
)

// supportedDTypes are the dtypes every reference executor accepts, subject to the constraints of each operator.
var supportedDTypes = []dtypes.DType{
	dtypes.Bool,
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64,
	dtypes.Complex64, dtypes.Complex128,
}

func newCapabilities(config Config) backends.Capabilities {
	c := backends.Capabilities{
		Operations:    make(map[backends.OpType]bool),
		DTypes:        make(map[dtypes.DType]bool),
		PointerBits:   config.PointerBits,
		IntBits:       backends.HostIntBits,
		NativeKernels: make(map[backends.OpType]bool),
	}
	if c.PointerBits == 0 {
		c.PointerBits = backends.HostPointerBits
	}
	if config.PointerBits != 0 && config.PointerBits != backends.HostPointerBits {
		// Emulated platform: its default integer has the width of its pointers.
		c.IntBits = config.PointerBits
	}
	for opType := backends.OpTypeInvalid + 1; opType < backends.OpTypeLast; opType++ {
		c.Operations[opType] = nodeExecutors[opType] != nil
	}
	for _, dtype := range supportedDTypes {
		c.DTypes[dtype] = true
	}
	if config.Native {
		for _, opType := range native.Registered() {
			c.NativeKernels[opType] = true
		}
	}
	return c
}
