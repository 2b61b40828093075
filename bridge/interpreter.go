package bridge

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/log"
)

// Interpreter executes bytecode in process by stepping the execution context
// and charging every instruction's static cost before it runs.
type Interpreter struct {
	hooks *tracing.Hooks
	log   log.Logger
}

// NewInterpreter returns an interpreter bridge.
func NewInterpreter(opts Options) *Interpreter {
	return &Interpreter{
		hooks: opts.Hooks,
		log:   log.New("component", "bridge", "engine", EngineInterpreter),
	}
}

// Engine returns EngineInterpreter.
func (in *Interpreter) Engine() string { return EngineInterpreter }

// fault records where a run stopped on an error.
type fault struct {
	ip  uint32
	op  vm.OpCode
	err error
}

// Execute runs ctx to completion against st and sto. State mutations made
// by a failed or reverted run are rolled back and its storage writes are
// dropped; the result still lists every change recorded while it ran.
func (in *Interpreter) Execute(ctx *vm.ExecutionContext, st *state.Manager, sto storage.Backend, gas *vm.GasTracker) (*types.ExecutionResult, error) {
	s, err := in.Begin(ctx, st, sto, gas)
	if err != nil {
		return nil, err
	}
	s.run()
	return s.Finish()
}

func formatStep(rec vm.StepRecord, used uint64) string {
	top := "-"
	if n := len(rec.Stack); n > 0 {
		top = rec.Stack[n-1].String()
	}
	return fmt.Sprintf("%05d %-14s depth=%-4d top=%s gas=%d", rec.IP, rec.Mnemonic, len(rec.Stack), top, used)
}
