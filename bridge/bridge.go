// Package bridge drives bytecode execution for the runtime. A Bridge takes
// exclusive use of the execution context, state manager, storage backend and
// gas tracker for one call and turns the run into an ExecutionResult.
package bridge

import (
	"fmt"
	"strings"

	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/clydemeng/yulvm/tracing"
)

// EngineInterpreter is the in-process interpreter engine.
const EngineInterpreter = "interpreter"

// Bridge is the single execution entry point consumed by the runtime.
type Bridge interface {
	// Engine returns a short name identifying the backend.
	Engine() string

	// Execute runs the initialized context to completion. Errors returned
	// here are setup failures; anything that goes wrong while instructions
	// run is reported through the result's exception.
	Execute(ctx *vm.ExecutionContext, st *state.Manager, sto storage.Backend, gas *vm.GasTracker) (*types.ExecutionResult, error)
}

// Options configures a bridge.
type Options struct {
	Hooks *tracing.Hooks
}

// New returns the bridge registered under engine. The empty name selects the
// interpreter.
func New(engine string, opts Options) (Bridge, error) {
	switch strings.ToLower(engine) {
	case "", EngineInterpreter:
		return NewInterpreter(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", types.ErrConfiguration, engine)
	}
}
