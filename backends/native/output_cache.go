package native

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/internal/workerspool"
	"github.com/gomlx/extraops/types/shapes"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OutputSlot holds the output buffer of one node between executions.
type OutputSlot struct {
	mu          sync.Mutex
	tensor      *tensors.Tensor
	reuse       bool
	allocations int
	workers     *workerspool.Pool
}

// NewOutputSlot returns an empty slot. If reuse is false, every call to Ensure allocates a new buffer.
func NewOutputSlot(reuse bool) *OutputSlot {
	return &OutputSlot{reuse: reuse}
}

// Ensure returns a buffer with the given dtype and dimensions: the previous buffer if it matches exactly,
// or a newly allocated one otherwise.
//
// Allocation failures are returned as backends.ErrExecution.
func (s *OutputSlot) Ensure(dtype dtypes.DType, dimensions ...int) (output *tensors.Tensor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dim := range dimensions {
		if dim < 0 {
			return nil, errors.Wrapf(backends.ErrExecution, "cannot allocate output with negative dimension %v", dimensions)
		}
	}
	shape := shapes.Make(dtype, dimensions...)
	if s.reuse && s.tensor != nil && s.tensor.Shape().Equal(shape) {
		klog.V(2).Infof("native: reusing output buffer %s", shape)
		return s.tensor, nil
	}
	output, err = Allocate(shape)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("native: allocated output buffer %s (%s)", shape, humanize.Bytes(uint64(shape.Memory())))
	s.allocations++
	if s.reuse {
		s.tensor = output
	}
	return output, nil
}

// Workers returns the pool kernels use to split their work. It may be nil, in which case kernels run
// sequentially.
func (s *OutputSlot) Workers() *workerspool.Pool { return s.workers }

// Allocations returns how many buffers the slot allocated.
func (s *OutputSlot) Allocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocations
}

// Allocate returns a zero initialized tensor of the given shape. Allocation panics (e.g. size out of range)
// are returned as backends.ErrExecution.
func Allocate(shape shapes.Shape) (output *tensors.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(backends.ErrExecution, "failed to allocate output %s: %v", shape, r)
		}
	}()
	output = tensors.FromShape(shape)
	return
}

// OutputCache holds one OutputSlot per backends.NodeKey: each executor of a graph has its own slots. It is safe
// for concurrent use.
type OutputCache struct {
	mu      sync.Mutex
	slots   map[backends.NodeKey]*OutputSlot
	reuse   bool
	workers *workerspool.Pool
}

// NewOutputCache returns an empty cache. If reuse is false, the slots always allocate new buffers.
func NewOutputCache(reuse bool) *OutputCache {
	return &OutputCache{slots: make(map[backends.NodeKey]*OutputSlot), reuse: reuse}
}

// Slot returns the slot for the given node, creating it if needed.
func (c *OutputCache) Slot(key backends.NodeKey) *OutputSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, found := c.slots[key]
	if !found {
		slot = NewOutputSlot(c.reuse)
		slot.workers = c.workers
		c.slots[key] = slot
	}
	return slot
}

// SetWorkers sets the pool used by the kernels writing to the slots created from now on.
func (c *OutputCache) SetWorkers(workers *workerspool.Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workers = workers
}

// Len returns the number of slots in the cache.
func (c *OutputCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Reset drops all slots and their buffers.
func (c *OutputCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.slots)
}
