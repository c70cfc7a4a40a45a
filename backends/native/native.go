// Package native holds the native kernels: implementations of operator variants specialized at
// emission time for the dtypes and ranks of their inputs.
//
// Emitters are registered per OpType with a version token (see RegisterEmitter). Compiled kernels are
// cached by KernelCache, and a cached kernel is recompiled whenever the registered version of its
// emitter changes. Kernels write their output to an OutputSlot, which reuses the buffer of a previous
// execution of the same node if the dtype and dimensions match.
package native

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrUnsupported is returned by emitters that have no specialization for the given input types.
// Callers are expected to fall back to a reference implementation.
var ErrUnsupported = errors.New("no native kernel for input types")

// InputType is what a kernel is specialized for: the dtype and rank of each input.
type InputType struct {
	DType dtypes.DType
	Rank  int
}

// String implements fmt.Stringer.
func (t InputType) String() string {
	return fmt.Sprintf("%s/%d", t.DType, t.Rank)
}

// InputTypesOf returns the InputType of each of the given tensors.
func InputTypesOf(inputs []*tensors.Tensor) []InputType {
	types := make([]InputType, len(inputs))
	for ii, input := range inputs {
		types[ii] = InputType{DType: input.DType(), Rank: input.Rank()}
	}
	return types
}

func inputTypesKey(inputTypes []InputType) string {
	parts := make([]string, len(inputTypes))
	for ii, t := range inputTypes {
		parts[ii] = t.String()
	}
	return strings.Join(parts, ",")
}

// RunFn executes a compiled kernel. It must take its output from slot and write every element of it.
type RunFn func(inputs []*tensors.Tensor, slot *OutputSlot) (*tensors.Tensor, error)

// Emitter compiles a kernel for op, specialized for the given input types.
// It returns an error wrapping ErrUnsupported if it has no specialization for them.
type Emitter func(op backends.Op, inputTypes []InputType) (RunFn, error)

type emitterEntry struct {
	version int
	emit    Emitter
}

var (
	emittersMu sync.RWMutex
	emitters   = make(map[backends.OpType]emitterEntry)
)

// RegisterEmitter registers the emitter of native kernels for opType, with its version token.
//
// Registering a new emitter for an opType invalidates the kernels compiled with the previous one. The
// version must not decrease.
func RegisterEmitter(opType backends.OpType, version int, emitter Emitter) {
	emittersMu.Lock()
	defer emittersMu.Unlock()
	if previous, found := emitters[opType]; found && version < previous.version {
		exceptions.Panicf("native.RegisterEmitter(%s): version %d is older than the registered version %d",
			opType, version, previous.version)
	}
	emitters[opType] = emitterEntry{version: version, emit: emitter}
}

func lookupEmitter(opType backends.OpType) (emitterEntry, bool) {
	emittersMu.RLock()
	defer emittersMu.RUnlock()
	entry, found := emitters[opType]
	return entry, found
}

// HasEmitter returns whether there is a native emitter for opType.
func HasEmitter(opType backends.OpType) bool {
	_, found := lookupEmitter(opType)
	return found
}

// Version returns the version token of the emitter registered for opType.
func Version(opType backends.OpType) (version int, found bool) {
	entry, found := lookupEmitter(opType)
	return entry.version, found
}

// Registered returns the ops with a registered emitter, sorted.
func Registered() []backends.OpType {
	emittersMu.RLock()
	defer emittersMu.RUnlock()
	ops := make([]backends.OpType, 0, len(emitters))
	for opType := range emitters {
		ops = append(ops, opType)
	}
	slices.Sort(ops)
	return ops
}

// Kernel is a native kernel compiled for one operator variant and one set of input types.
type Kernel struct {
	op         backends.Op
	inputTypes []InputType
	version    int
	run        RunFn
}

// Op returns the variant the kernel was compiled for.
func (k *Kernel) Op() backends.Op { return k.op }

// Version returns the version of the emitter that compiled the kernel.
func (k *Kernel) Version() int { return k.version }

// Run executes the kernel. The inputs must match the input types the kernel was compiled for.
//
// If slot reuses buffers, the returned tensor is marked as tensors.Borrowed.
func (k *Kernel) Run(inputs []*tensors.Tensor, slot *OutputSlot) (*tensors.Tensor, error) {
	if len(inputs) != len(k.inputTypes) {
		return nil, errors.Wrapf(backends.ErrExecution, "kernel %s compiled for %d inputs, got %d",
			k.op, len(k.inputTypes), len(inputs))
	}
	for ii, input := range inputs {
		if input.DType() != k.inputTypes[ii].DType || input.Rank() != k.inputTypes[ii].Rank {
			return nil, errors.Wrapf(backends.ErrExecution, "kernel %s compiled for input #%d of type %s, got %s",
				k.op, ii, k.inputTypes[ii], input.Shape())
		}
	}
	output, err := k.run(inputs, slot)
	if err != nil {
		return nil, err
	}
	if slot.reuse {
		output = tensors.NewBorrowed(output)
	}
	return output, nil
}

// Emit compiles a kernel for op and the given input types, with the currently registered emitter.
func Emit(op backends.Op, inputTypes []InputType) (*Kernel, error) {
	entry, found := lookupEmitter(op.Type())
	if !found {
		return nil, errors.Wrapf(ErrUnsupported, "no native emitter registered for %s", op.Type())
	}
	run, err := entry.emit(op, inputTypes)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		op:         op,
		inputTypes: slices.Clone(inputTypes),
		version:    entry.version,
		run:        run,
	}, nil
}

type kernelKey struct {
	op         backends.Op
	inputTypes string
}

// KernelCache caches compiled kernels by (variant, input dtypes, input ranks).
// It is safe for concurrent use.
type KernelCache struct {
	mu           sync.Mutex
	kernels      map[kernelKey]*Kernel
	compilations int
}

// NewKernelCache returns an empty KernelCache.
func NewKernelCache() *KernelCache {
	return &KernelCache{kernels: make(map[kernelKey]*Kernel)}
}

// Get returns the cached kernel for op and inputTypes, compiling it if it is not cached or if it was
// compiled with a different version of the emitter.
func (c *KernelCache) Get(op backends.Op, inputTypes []InputType) (*Kernel, error) {
	key := kernelKey{op: op, inputTypes: inputTypesKey(inputTypes)}
	c.mu.Lock()
	defer c.mu.Unlock()
	kernel, found := c.kernels[key]
	if found {
		version, _ := Version(op.Type())
		if kernel.version == version {
			return kernel, nil
		}
		klog.Warningf("native: kernel for %s (%s) compiled with version %d, emitter is now version %d: recompiling",
			op, key.inputTypes, kernel.version, version)
		delete(c.kernels, key)
	}
	kernel, err := Emit(op, inputTypes)
	if err != nil {
		return nil, err
	}
	c.compilations++
	klog.V(1).Infof("native: compiled kernel for %s (%s), version %d", op, key.inputTypes, kernel.version)
	c.kernels[key] = kernel
	return kernel, nil
}

// Len returns the number of cached kernels.
func (c *KernelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.kernels)
}

// Compilations returns the number of kernels compiled by the cache so far.
func (c *KernelCache) Compilations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compilations
}
