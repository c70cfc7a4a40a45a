// Package simplego implements a simple and very portable backend in pure Go.
//
// Every operator variant has a reference executor (see nodeExecutors). With the "native" configuration,
// the operators that have a native emitter (see package native) are executed by specialized kernels,
// whose outputs are kept in a per-node output cache and reused across executions.
package simplego

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/backends"
	"github.com/gomlx/extraops/backends/native"
	"github.com/gomlx/extraops/internal/workerspool"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Registers the various generics function instances.
//go:generate go run ../../internal/cmd/simplego_dispatcher

// BackendName to be used in EXTRAOPS_BACKEND to specify this backend.
const BackendName = "go"

// Registers New() as the default constructor for "go" backend.
func init() {
	backends.Register(BackendName, func(config string) backends.Backend { return New(config) })
}

// Config of the SimpleGo backend.
type Config struct {
	// Native enables the native kernels, for the operators that have one.
	Native bool

	// Reuse output buffers of native kernels across executions of the same node.
	Reuse bool

	// PointerBits overrides the pointer width of the platform described in the Capabilities. It is used
	// to check platform dependent rules (e.g. BinCount dtypes) for another platform.
	PointerBits int

	// Parallelism is the maximum number of extra goroutines a native kernel uses to split its work.
	// 0 disables parallelism, and -1 makes it unlimited.
	Parallelism int
}

// DefaultConfig is the configuration for an empty configuration string.
func DefaultConfig() Config {
	return Config{Reuse: true, PointerBits: backends.HostPointerBits, Parallelism: runtime.NumCPU()}
}

// ParseConfig parses a comma separated list of options:
//
//   - "native": enable native kernels.
//   - "noreuse": disable the reuse of native kernels output buffers.
//   - "bits=32" or "bits=64": the pointer width of the platform.
//   - "parallelism=N": the parallelism of the native kernels, 0 to disable it and -1 for unlimited.
func ParseConfig(config string) (Config, error) {
	c := DefaultConfig()
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "native":
			c.Native = true
		case part == "noreuse":
			c.Reuse = false
		case strings.HasPrefix(part, "bits="):
			bits, err := strconv.Atoi(strings.TrimPrefix(part, "bits="))
			if err != nil || (bits != 32 && bits != 64) {
				return c, errors.Errorf("invalid %q in simplego config %q: bits must be 32 or 64", part, config)
			}
			c.PointerBits = bits
		case strings.HasPrefix(part, "parallelism="):
			parallelism, err := strconv.Atoi(strings.TrimPrefix(part, "parallelism="))
			if err != nil || parallelism < -1 {
				return c, errors.Errorf("invalid %q in simplego config %q: parallelism must be >= -1", part, config)
			}
			c.Parallelism = parallelism
		default:
			return c, errors.Errorf("unknown option %q in simplego config %q", part, config)
		}
	}
	return c, nil
}

// New constructs a new SimpleGo Backend with the given configuration (see ParseConfig).
//
// It panics if the configuration is invalid.
func New(config string) *Backend {
	c, err := ParseConfig(config)
	if err != nil {
		panic(err)
	}
	return NewWithConfig(c)
}

// NewWithConfig constructs a new SimpleGo Backend.
func NewWithConfig(config Config) *Backend {
	b := &Backend{
		config:  config,
		kernels: native.NewKernelCache(),
		outputs: native.NewOutputCache(config.Reuse),
		workers: workerspool.New(config.Parallelism),
	}
	b.outputs.SetWorkers(b.workers)
	b.capabilities = newCapabilities(config)
	klog.V(1).Infof("simplego: new backend with config %+v", config)
	return b
}

// Backend implements the backends.Backend interface.
type Backend struct {
	config       Config
	capabilities backends.Capabilities
	kernels      *native.KernelCache
	outputs      *native.OutputCache
	workers      *workerspool.Pool
	finalized    atomic.Bool
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return BackendName }

// String implement fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	if b.config.Native {
		return "Simple Go Portable Backend (native kernels)"
	}
	return "Simple Go Portable Backend"
}

// Config returns the configuration of the backend.
func (b *Backend) Config() Config { return b.config }

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities {
	return b.capabilities.Clone()
}

// Kernels returns the cache of compiled native kernels.
func (b *Backend) Kernels() *native.KernelCache { return b.kernels }

// Outputs returns the cache of native kernels output buffers.
func (b *Backend) Outputs() *native.OutputCache { return b.outputs }

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.finalized.Store(true)
	b.outputs.Reset()
}

// ExecOp implements backends.Backend.
func (b *Backend) ExecOp(key backends.NodeKey, op backends.Op, inputs []*tensors.Tensor, outputDType dtypes.DType) (
	output *tensors.Tensor, err error) {
	if b.finalized.Load() {
		return nil, errors.Errorf("simplego: backend used after Finalize()")
	}
	opType := op.Type()
	if opType <= backends.OpTypeInvalid || opType >= backends.OpTypeLast {
		return nil, errors.Errorf("simplego: invalid op type %s", opType)
	}
	for ii, input := range inputs {
		if !input.Ok() {
			return nil, errors.Wrapf(backends.ErrExecution, "%s: input #%d is invalid", op, ii)
		}
	}

	if b.config.Native && native.HasEmitter(opType) {
		var nativeErr error
		err = exceptions.TryCatch[error](func() { output, nativeErr = b.execNative(key, op, inputs) })
		if err == nil {
			err = nativeErr
		}
		if err == nil {
			return output, nil
		}
		if !errors.Is(err, native.ErrUnsupported) {
			return nil, asExecutionError(op, err)
		}
		klog.V(2).Infof("simplego: %s falling back to reference executor: %v", op, err)
	}

	executor := nodeExecutors[opType]
	if executor == nil {
		return nil, errors.Wrapf(backends.ErrExecution, "simplego: op %s not implemented", op)
	}
	klog.V(2).Infof("simplego: executing %s on %d inputs", op, len(inputs))
	err = exceptions.TryCatch[error](func() { output = executor(b, op, inputs, outputDType) })
	if err != nil {
		return nil, asExecutionError(op, err)
	}
	return output, nil
}

func (b *Backend) execNative(key backends.NodeKey, op backends.Op, inputs []*tensors.Tensor) (*tensors.Tensor, error) {
	kernel, err := b.kernels.Get(op, native.InputTypesOf(inputs))
	if err != nil {
		return nil, err
	}
	return kernel.Run(inputs, b.outputs.Slot(key))
}

// asExecutionError makes sure err wraps backends.ErrExecution.
func asExecutionError(op backends.Op, err error) error {
	if errors.Is(err, backends.ErrExecution) {
		return err
	}
	return errors.Wrapf(backends.ErrExecution, "%s: %v", op, err)
}
