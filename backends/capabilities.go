package backends

import (
	"maps"
	"strconv"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
)

// Capabilities holds mappings of what is supported by a backend, and the description of the platform
// it executes on.
//
// The graph package validates operators against the Capabilities of the backend the graph is built for,
// so platform dependent rules (like the dtypes accepted by BinCount) fail when the graph is built.
type Capabilities struct {
	// Operations supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Operations map[OpType]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool

	// PointerBits is the width in bits of a pointer sized integer (C's intptr_t) on the platform.
	PointerBits int

	// IntBits is the width in bits of the platform default integer.
	IntBits int

	// NativeKernels lists the operations for which the backend compiles specialized native kernels.
	NativeKernels map[OpType]bool
}

// HostPointerBits is the pointer width of the platform this program is running on.
const HostPointerBits = int(unsafe.Sizeof(uintptr(0))) * 8

// HostIntBits is the width of Go's int on the platform this program is running on.
const HostIntBits = strconv.IntSize

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	c2 := c
	c2.Operations = make(map[OpType]bool, len(c.Operations))
	maps.Copy(c2.Operations, c.Operations)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	c2.NativeKernels = make(map[OpType]bool, len(c.NativeKernels))
	maps.Copy(c2.NativeKernels, c.NativeKernels)
	return c2
}

// SupportsOp returns whether the operation is listed as supported.
func (c Capabilities) SupportsOp(opType OpType) bool {
	return c.Operations[opType]
}

// SupportsDType returns whether the dtype is listed as supported.
func (c Capabilities) SupportsDType(dtype dtypes.DType) bool {
	return c.DTypes[dtype]
}
