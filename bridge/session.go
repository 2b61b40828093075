package bridge

import (
	"errors"
	"fmt"

	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
)

// Debugger is implemented by bridges that can pause a run between
// instructions.
type Debugger interface {
	Begin(ctx *vm.ExecutionContext, st *state.Manager, sto storage.Backend, gas *vm.GasTracker) (*Session, error)
}

// errSessionClosed is returned by a session after Finish or Abort.
var errSessionClosed = fmt.Errorf("%w: session closed", types.ErrBridge)

// Session is one execution of the program loaded in a context. It owns the
// host and the entry snapshot from Begin until Finish or Abort, so stepping
// sees storage, balances and logs exactly as a full Execute would.
type Session struct {
	in  *Interpreter
	ctx *vm.ExecutionContext
	st  *state.Manager
	gas *vm.GasTracker

	host  *host
	snap  int
	mark  int
	trace []string
	fault *fault

	closed bool
}

// Begin installs a host over st and sto and snapshots the state for the
// program loaded in ctx.
func (in *Interpreter) Begin(ctx *vm.ExecutionContext, st *state.Manager, sto storage.Backend, gas *vm.GasTracker) (*Session, error) {
	switch {
	case ctx == nil:
		return nil, fmt.Errorf("%w: nil execution context", types.ErrBridge)
	case st == nil:
		return nil, fmt.Errorf("%w: nil state manager", types.ErrBridge)
	case sto == nil:
		return nil, fmt.Errorf("%w: nil storage backend", types.ErrBridge)
	case gas == nil:
		return nil, fmt.Errorf("%w: nil gas tracker", types.ErrBridge)
	}
	s := &Session{
		in:   in,
		ctx:  ctx,
		st:   st,
		gas:  gas,
		host: newHost(ctx.Metadata().Address, st, sto, gas, in.hooks),
		snap: st.CreateSnapshot("bridge-execute"),
		mark: st.ChangeLogLen(),
	}
	ctx.SetHost(s.host)
	return s, nil
}

// Done reports whether the program halted or faulted.
func (s *Session) Done() bool { return s.fault != nil || s.ctx.Halted() }

// advance charges the static cost of op and executes it. With record set
// the step goes through ctx.Step and its record is returned.
func (s *Session) advance(op vm.OpCode, cost uint64, record bool) (vm.StepRecord, error) {
	var (
		ip    = s.ctx.IP()
		hooks = s.in.hooks
		rec   vm.StepRecord
	)
	if hooks != nil && hooks.OnStep != nil {
		hooks.OnStep(ip, byte(op), cost, s.ctx.CallDepth())
	}
	err := s.gas.ConsumeGas(op.String(), &cost)
	if err == nil {
		if record {
			rec, err = s.ctx.Step()
		} else {
			err = s.ctx.Advance()
		}
	}
	if err != nil {
		if hooks != nil && hooks.OnFault != nil {
			hooks.OnFault(ip, byte(op), err)
		}
		s.fault = &fault{ip: ip, op: op, err: err}
		return rec, err
	}
	instructionCounter.Inc(1)
	return rec, nil
}

// run executes until the program halts or faults. Step records are rendered
// into the trace when debugging is enabled.
func (s *Session) run() {
	for s.fault == nil {
		op, cost, ok := s.ctx.Next()
		if !ok {
			return
		}
		debug := s.ctx.Debugging()
		rec, err := s.advance(op, cost, debug)
		if debug && rec.Mnemonic != "" {
			s.trace = append(s.trace, formatStep(rec, s.gas.Used()))
		}
		if err != nil {
			return
		}
	}
}

// Step executes one instruction. Once the program has halted it returns a
// halted record without charging gas.
func (s *Session) Step() (vm.StepRecord, error) {
	switch {
	case s.closed:
		return vm.StepRecord{}, errSessionClosed
	case s.fault != nil:
		return vm.StepRecord{}, s.fault.err
	}
	op, cost, ok := s.ctx.Next()
	if !ok {
		return s.ctx.Step()
	}
	return s.advance(op, cost, true)
}

// RunToBreakpoint executes at least one instruction and keeps going until
// the program halts, faults, or reaches a breakpoint.
func (s *Session) RunToBreakpoint() ([]vm.StepRecord, error) {
	var records []vm.StepRecord
	for first := true; first || !s.ctx.AtBreakpoint(); first = false {
		switch {
		case s.closed:
			return records, errSessionClosed
		case s.fault != nil:
			return records, s.fault.err
		}
		op, cost, ok := s.ctx.Next()
		if !ok {
			break
		}
		rec, err := s.advance(op, cost, true)
		if rec.Mnemonic != "" {
			records = append(records, rec)
		}
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

// Finish settles the session into a result. Storage writes are committed
// and logs kept only when the program halted without fault or revert;
// otherwise the state goes back to the entry snapshot. A program stopped
// before halting counts as a success up to the current instruction.
func (s *Session) Finish() (*types.ExecutionResult, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	defer s.close()

	result := &types.ExecutionResult{
		GasLimit:     s.gas.Limit(),
		StateChanges: s.st.ChangesSince(s.mark),
		StackTrace:   s.trace,
	}
	switch f := s.fault; {
	case f != nil:
		if errors.Is(f.err, types.ErrOutOfGas) {
			s.gas.Exhaust()
		}
		result.Exception = &types.Exception{
			Kind:    types.KindOf(f.err),
			Message: f.err.Error(),
			IP:      f.ip,
			Opcode:  f.op.String(),
		}
	case s.ctx.Reverted():
		result.ReturnData = s.ctx.ReturnData()
		result.Exception = &types.Exception{
			Kind:    types.KindExecution,
			Message: "execution reverted",
			IP:      s.ctx.IP(),
			Opcode:  vm.REVERT.String(),
		}
	default:
		if err := s.host.flush(); err != nil {
			result.Exception = &types.Exception{Kind: types.KindOf(err), Message: err.Error(), IP: s.ctx.IP()}
			break
		}
		result.Success = true
		result.ReturnData = s.ctx.ReturnData()
		result.Logs = s.host.logs
	}
	if !result.Success {
		failureCounter.Inc(1)
		if err := s.st.RevertToSnapshot(s.snap); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrBridge, err)
		}
		s.in.log.Debug("Execution failed", "addr", s.host.addr, "err", result.Exception)
	}
	result.GasUsed = s.gas.Used()
	return result, nil
}

// Abort drops the session's storage writes and rolls the state back to the
// entry snapshot.
func (s *Session) Abort() error {
	if s.closed {
		return nil
	}
	defer s.close()
	if err := s.st.RevertToSnapshot(s.snap); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBridge, err)
	}
	return nil
}

func (s *Session) close() {
	s.closed = true
	s.ctx.SetHost(nil)
	s.st.DiscardSnapshot(s.snap)
}
