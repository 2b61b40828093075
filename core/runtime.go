// Package core composes the stack machine, gas tracker and state manager
// with a storage backend and a VM bridge into a contract runtime.
package core

import (
	"fmt"

	"github.com/clydemeng/yulvm/abi"
	"github.com/clydemeng/yulvm/bridge"
	"github.com/clydemeng/yulvm/config"
	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// Runtime owns one execution context, gas tracker and state manager. It is
// not safe for concurrent use; independent runtimes share nothing.
type Runtime struct {
	cfg config.Config

	ctx   *vm.ExecutionContext
	gas   *vm.GasTracker
	state *state.Manager

	storage storage.Backend
	bridge  bridge.Bridge

	block     types.BlockNumber
	timestamp types.Timestamp

	session *bridge.Session // program loaded for stepping, if any

	log log.Logger
}

// NewRuntime validates cfg and wires the runtime around the given storage
// backend and bridge.
func NewRuntime(cfg config.Config, sto storage.Backend, br bridge.Bridge) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sto == nil {
		return nil, fmt.Errorf("%w: nil storage backend", types.ErrConfiguration)
	}
	if br == nil {
		return nil, fmt.Errorf("%w: nil bridge", types.ErrConfiguration)
	}
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: cfg.GasLimit, StrictOpcodes: cfg.StrictOpcodes})
	ctx.EnableDebugging(cfg.Debug)
	r := &Runtime{
		cfg:     cfg,
		ctx:     ctx,
		gas:     vm.NewGasTracker(cfg.BaseGasCost, cfg.GasCosts),
		state:   state.New(),
		storage: sto,
		bridge:  br,
		log:     log.New("component", "runtime", "engine", br.Engine()),
	}
	return r, nil
}

// SetBlockContext sets the block number and timestamp seen by NUMBER and
// TIMESTAMP.
func (r *Runtime) SetBlockContext(number types.BlockNumber, ts types.Timestamp) {
	r.block, r.timestamp = number, ts
}

// SetHooks installs state tracing hooks.
func (r *Runtime) SetHooks(hooks *tracing.Hooks) { r.state.SetHooks(hooks) }

// Load initializes the context with code and input, resets gas and opens a
// bridge session without running anything. Step and RunToBreakpoint then
// advance the program with storage, balances and logs available, and Finish
// settles it. Loading again or running anything else aborts the previous
// session.
func (r *Runtime) Load(code, input []byte) error {
	r.prepare(vm.CallMetadata{Caller: r.cfg.DeployerAddress()}, code, input)
	dbg, ok := r.bridge.(bridge.Debugger)
	if !ok {
		return fmt.Errorf("%w: engine %s cannot step", types.ErrInvalidOperation, r.bridge.Engine())
	}
	s, err := dbg.Begin(r.ctx, r.state, r.storage, r.gas)
	if err != nil {
		return err
	}
	r.session = s
	return nil
}

// abortSession drops an unfinished stepping session.
func (r *Runtime) abortSession() {
	if r.session == nil {
		return
	}
	if err := r.session.Abort(); err != nil {
		r.log.Warn("Failed to abort debug session", "err", err)
	}
	r.session = nil
}

func (r *Runtime) prepare(meta vm.CallMetadata, code, input []byte) {
	r.abortSession()
	r.ctx.Initialize(code, input)
	meta.Block = r.block
	meta.Timestamp = r.timestamp
	meta.GasLimit = types.Gas(r.ctx.GasLimit())
	r.ctx.SetMetadata(meta)
	r.gas.Reset(r.ctx.GasLimit())
}

func (r *Runtime) run(meta vm.CallMetadata, code, input []byte) (*types.ExecutionResult, error) {
	r.prepare(meta, code, input)
	return r.bridge.Execute(r.ctx, r.state, r.storage, r.gas)
}

// Execute runs code with input as the empty account identity. Its storage
// is separate from every named account, the zero address included.
func (r *Runtime) Execute(code, input []byte) (*types.ExecutionResult, error) {
	return r.run(vm.CallMetadata{Caller: r.cfg.DeployerAddress()}, code, input)
}

// ExecuteAt runs code as the account addr, moving value from the deployer
// to addr first. The value transfer is undone if the run fails.
func (r *Runtime) ExecuteAt(addr types.Address, code, input []byte, value types.Balance) (*types.ExecutionResult, error) {
	return r.executeFrom(r.cfg.DeployerAddress(), addr, code, input, value)
}

func (r *Runtime) executeFrom(caller, addr types.Address, code, input []byte, value types.Balance) (*types.ExecutionResult, error) {
	r.abortSession()
	meta := vm.CallMetadata{Address: addr, Caller: caller, Value: value}
	if value == 0 {
		return r.run(meta, code, input)
	}
	snap := r.state.CreateSnapshot("call value")
	defer r.state.DiscardSnapshot(snap)
	if err := r.state.Transfer(caller, addr, value); err != nil {
		return nil, err
	}
	res, err := r.run(meta, code, input)
	if err != nil || !res.Success {
		if rerr := r.state.RevertToSnapshot(snap); rerr != nil {
			return nil, rerr
		}
	}
	return res, err
}

// DeployContract creates a contract from code and returns the new address,
// derived from the deployer and its nonce. When ctorArgs is non-empty the
// code then runs once as the constructor with ctorArgs as input; with no
// arguments nothing executes and the result only carries the base cost and
// the account changes of the deployment. The code is stored before the
// constructor runs; a failing constructor leaves it in place unless
// RollbackFailedDeploy is set.
func (r *Runtime) DeployContract(code, ctorArgs []byte) (types.Address, *types.ExecutionResult, error) {
	return r.deploy(r.cfg.DeployerAddress(), code, ctorArgs)
}

func (r *Runtime) deploy(deployer types.Address, code, ctorArgs []byte) (types.Address, *types.ExecutionResult, error) {
	r.abortSession()
	mark := r.state.ChangeLogLen()
	nonce := r.state.IncrementNonce(deployer, tracing.NonceChangeContractCreator)
	addr := types.AddressFromCommon(crypto.CreateAddress(deployer.Common(), nonce))

	snap := -1
	if r.cfg.RollbackFailedDeploy {
		snap = r.state.CreateSnapshot("deploy " + addr.String())
		defer r.state.DiscardSnapshot(snap)
	}
	r.state.SetCode(addr, code)
	if len(ctorArgs) == 0 {
		r.gas.Reset(r.ctx.GasLimit())
		r.log.Debug("Deployed contract", "addr", addr, "deployer", deployer, "nonce", nonce, "size", len(code))
		return addr, &types.ExecutionResult{
			Success:      true,
			GasUsed:      r.gas.Used(),
			GasLimit:     r.gas.Limit(),
			StateChanges: r.state.ChangesSince(mark),
		}, nil
	}

	res, err := r.run(vm.CallMetadata{Address: addr, Caller: deployer}, code, ctorArgs)
	if err == nil && res.Success {
		r.log.Debug("Deployed contract", "addr", addr, "deployer", deployer, "nonce", nonce, "size", len(code), "gas", res.GasUsed)
		return addr, res, nil
	}
	if snap >= 0 {
		if rerr := r.state.RevertToSnapshot(snap); rerr != nil {
			return addr, res, rerr
		}
	}
	if err != nil {
		return addr, nil, err
	}
	r.log.Debug("Contract constructor failed", "addr", addr, "err", res.Exception, "rollback", snap >= 0)
	return addr, res, &types.RuntimeError{Kind: types.KindExecution, Err: res.Exception}
}

// CallFunction executes code with call data built from signature and args.
func (r *Runtime) CallFunction(code []byte, signature string, args ...types.RuntimeValue) (*types.ExecutionResult, error) {
	data, err := abi.EncodeCall(signature, args...)
	if err != nil {
		return nil, err
	}
	return r.Execute(code, data)
}

// CallContract calls a deployed contract by address.
func (r *Runtime) CallContract(addr types.Address, signature string, args ...types.RuntimeValue) (*types.ExecutionResult, error) {
	code := r.state.GetCode(addr)
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no code at %s", types.ErrInvalidOperation, addr)
	}
	data, err := abi.EncodeCall(signature, args...)
	if err != nil {
		return nil, err
	}
	return r.ExecuteAt(addr, code, data, 0)
}

// GetStateSnapshot captures the current state.
func (r *Runtime) GetStateSnapshot(description string) *state.Snapshot {
	snap, _ := r.state.Snapshot(r.state.CreateSnapshot(description))
	return snap
}

// RestoreState rolls the state back to snap.
func (r *Runtime) RestoreState(snap *state.Snapshot) {
	r.state.RestoreSnapshot(snap)
}

// DiscardSnapshot releases a snapshot taken with GetStateSnapshot. Snapshots
// are full copies of the account map and are kept until discarded.
func (r *Runtime) DiscardSnapshot(snap *state.Snapshot) {
	r.state.DiscardSnapshot(snap.ID())
}

// EnableDebugging toggles step tracing and breakpoint checks.
func (r *Runtime) EnableDebugging(on bool) { r.ctx.EnableDebugging(on) }

func (r *Runtime) SetBreakpoint(ip uint32)    { r.ctx.SetBreakpoint(ip) }
func (r *Runtime) RemoveBreakpoint(ip uint32) { r.ctx.RemoveBreakpoint(ip) }

// Step executes one instruction of the loaded program, charging its static
// cost.
func (r *Runtime) Step() (vm.StepRecord, error) {
	if r.session == nil {
		return vm.StepRecord{}, errNoProgram
	}
	return r.session.Step()
}

// RunToBreakpoint resumes the loaded program until it halts, fails or hits a
// breakpoint.
func (r *Runtime) RunToBreakpoint() ([]vm.StepRecord, error) {
	if r.session == nil {
		return nil, errNoProgram
	}
	return r.session.RunToBreakpoint()
}

// Finish settles the loaded program into a result, committing its storage
// writes if it did not fail, and closes the session.
func (r *Runtime) Finish() (*types.ExecutionResult, error) {
	if r.session == nil {
		return nil, errNoProgram
	}
	s := r.session
	r.session = nil
	return s.Finish()
}

var errNoProgram = fmt.Errorf("%w: no program loaded", types.ErrInvalidOperation)

func (r *Runtime) Config() config.Config         { return r.cfg }
func (r *Runtime) State() *state.Manager         { return r.state }
func (r *Runtime) Context() *vm.ExecutionContext { return r.ctx }
func (r *Runtime) Gas() *vm.GasTracker           { return r.gas }
func (r *Runtime) Storage() storage.Backend      { return r.storage }
func (r *Runtime) Bridge() bridge.Bridge         { return r.bridge }
