// Package backends defines the interface to a computation executor and the operator variants it executes.
//
// The graph package builds graphs of nodes whose operators are the variants (Op) defined here, and
// executes them one node at a time through Backend.ExecOp.
//
// Backends register themselves (see Register) and are selected with New, using the EXTRAOPS_BACKEND
// environment variable or DefaultConfig.
package backends

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/extraops/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrExecution is the error kind for failures detected when executing an operator on concrete values,
// e.g., a negative value given to BinCount or mismatched dimensions only known at execution time.
var ErrExecution = errors.New("execution error")

// NodeKey identifies one node of one graph, as executed by one executor. Backends key per-node state, like
// cached output buffers, with it. Distinct executors of the same graph use distinct keys, so they never share
// that state.
type NodeKey struct {
	Graph uuid.UUID
	Exec  uuid.UUID
	Node  int
}

// Backend executes operator variants on concrete tensors.
type Backend interface {
	// Name under which the backend is registered, e.g. "go".
	Name() string

	// Description includes the name and the configuration of the backend.
	Description() string

	// Capabilities describes the supported operations and dtypes, and the platform the backend runs on.
	Capabilities() Capabilities

	// ExecOp executes op on the given inputs, producing an output of outputDType.
	//
	// The returned tensor may be a view of one of the inputs (see tensors.View) or borrowed from an
	// output cache keyed by key (see tensors.Borrowed).
	// Errors on the values are returned wrapping ErrExecution.
	ExecOp(key NodeKey, op Op, inputs []*tensors.Tensor, outputDType dtypes.DType) (*tensors.Tensor, error)

	// Finalize releases the caches of the backend. It must not be used afterwards.
	Finalize()
}

// Constructor creates a Backend from its configuration, which may be empty.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register makes a backend available to New and NewWithConfig under name. It is not safe for concurrent
// use, and is usually called from an init function.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// Registered returns the sorted names of the registered backends.
func Registered() []string {
	return slices.Sorted(maps.Keys(registeredConstructors))
}

// DefaultConfig is used by New when $EXTRAOPS_BACKEND is not set. See NewWithConfig for its format.
var DefaultConfig string

// EnvBackend is the environment variable that selects the backend configuration used by New.
const EnvBackend = "EXTRAOPS_BACKEND"

// New creates the backend configured by $EXTRAOPS_BACKEND if it is set, or else by DefaultConfig.
// An empty configuration selects the first registered backend. It panics if no backend was registered.
func New() Backend {
	if config, found := os.LookupEnv(EnvBackend); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig creates a backend from a "<backend_name>:<backend_configuration>" string, e.g.
// "go:native,noreuse". The configuration part is backend specific.
//
// An empty backend name selects the first registered backend. A config without ":" is a backend name if
// one is registered with that name, and otherwise the configuration of the first registered backend.
// It panics if the backend is not registered.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends -- maybe import the default one with import _ "github.com/gomlx/extraops/backends/simplego"?`)
	}
	backendName, backendConfig := SplitConfig(config)
	if _, found := registeredConstructors[backendName]; !found && !strings.Contains(config, ":") {
		backendName, backendConfig = firstRegistered, config
	}
	if backendName == "" {
		backendName = firstRegistered
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("backend %q (config %q) is not registered, registered backends are %v",
			backendName, config, Registered())
	}
	return constructor(backendConfig)
}

// SplitConfig splits a "<backend_name>:<backend_configuration>" string. A config without ":" is taken as
// a backend name.
func SplitConfig(config string) (backendName, backendConfig string) {
	if idx := strings.Index(config, ":"); idx != -1 {
		return config[:idx], config[idx+1:]
	}
	return config, ""
}
