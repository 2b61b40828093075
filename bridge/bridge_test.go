package bridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/common"
)

// Simple runtime with read/write to storage slot0: empty calldata returns
// slot0, otherwise the first calldata word is stored there.
var rwRuntime = common.FromHex("3615600c57600035600055005b60005460005260206000f3")

var (
	user     = types.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	contract = types.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type env struct {
	st  *state.Manager
	sto *storage.Manager
	gas *vm.GasTracker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sto, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { sto.Close() })
	return &env{st: state.New(), sto: sto, gas: vm.NewGasTracker(vm.DefaultBaseGas, nil)}
}

func (e *env) run(t *testing.T, b Bridge, code, input []byte, limit uint64, debug bool) *types.ExecutionResult {
	t.Helper()
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: limit, StrictOpcodes: true})
	ctx.EnableDebugging(debug)
	ctx.Initialize(code, input)
	ctx.SetMetadata(vm.CallMetadata{Address: contract, Caller: user, GasLimit: types.Gas(limit)})
	e.gas.Reset(limit)
	res, err := b.Execute(ctx, e.st, e.sto, e.gas)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	return res
}

func word(v byte) []byte {
	w := make([]byte, 32)
	w[31] = v
	return w
}

func TestNewEngine(t *testing.T) {
	b, err := New("", Options{})
	if err != nil {
		t.Fatalf("default engine: %v", err)
	}
	if b.Engine() != EngineInterpreter {
		t.Fatalf("engine = %q, want %q", b.Engine(), EngineInterpreter)
	}
	if _, err := New("wasm", Options{}); !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("unknown engine error = %v, want configuration error", err)
	}
}

func TestSetupErrors(t *testing.T) {
	e := newEnv(t)
	b := NewInterpreter(Options{})
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: 100})
	cases := []struct {
		name string
		err  error
	}{
		{"nil context", func() error { _, err := b.Execute(nil, e.st, e.sto, e.gas); return err }()},
		{"nil state", func() error { _, err := b.Execute(ctx, nil, e.sto, e.gas); return err }()},
		{"nil storage", func() error { _, err := b.Execute(ctx, e.st, nil, e.gas); return err }()},
		{"nil gas", func() error { _, err := b.Execute(ctx, e.st, e.sto, nil); return err }()},
	}
	for _, c := range cases {
		if !errors.Is(c.err, types.ErrBridge) {
			t.Fatalf("%s: error = %v, want bridge error", c.name, c.err)
		}
	}
}

func TestStorageReadWrite(t *testing.T) {
	e := newEnv(t)
	b := NewInterpreter(Options{})

	// 1. Read slot0 (should be 0)
	res := e.run(t, b, rwRuntime, nil, 1_000_000, false)
	if !res.Success {
		t.Fatalf("initial read failed: %v", res.Err())
	}
	if string(res.ReturnData) != string(word(0)) {
		t.Fatalf("expected zero, got %x", res.ReturnData)
	}

	// 2. Store 99
	res = e.run(t, b, rwRuntime, word(99), 1_000_000, false)
	if !res.Success {
		t.Fatalf("write failed: %v", res.Err())
	}
	if want := vm.DefaultBaseGas + 26 + vm.DefaultGasCosts()[vm.GasOpSstore]; res.GasUsed != want {
		t.Fatalf("gas used = %d, want %d", res.GasUsed, want)
	}
	if len(res.StateChanges) != 1 || res.StateChanges[0].Kind != types.ChangeStorage {
		t.Fatalf("expected one storage change, got %+v", res.StateChanges)
	}
	stored, ok, err := e.sto.Get(contract, common.Hash{}.Bytes())
	if err != nil || !ok {
		t.Fatalf("slot0 not flushed: ok=%v err=%v", ok, err)
	}
	if common.BytesToHash(stored) != common.BytesToHash([]byte{99}) {
		t.Fatalf("slot0 = %x, want 99", stored)
	}

	// 3. Read again, expect 99
	res = e.run(t, b, rwRuntime, nil, 1_000_000, false)
	if !res.Success || res.ReturnData[31] != 99 {
		t.Fatalf("expected 99, got %x (err %v)", res.ReturnData, res.Err())
	}
}

func TestRevertDiscardsOverlay(t *testing.T) {
	e := newEnv(t)
	b := NewInterpreter(Options{})

	// SSTORE(0, 0x2a) then REVERT(0, 0)
	code := common.FromHex("602a60005560006000fd")
	res := e.run(t, b, code, nil, 1_000_000, false)
	if res.Success || !res.Reverted() {
		t.Fatalf("expected revert, got %+v", res.Exception)
	}
	if len(res.StateChanges) != 1 {
		t.Fatalf("changes recorded before the revert must be reported, got %d", len(res.StateChanges))
	}
	if _, ok, _ := e.sto.Get(contract, common.Hash{}.Bytes()); ok {
		t.Fatalf("reverted write reached storage")
	}
	if e.sto.WriteCount() != 0 {
		t.Fatalf("write count = %d, want 0", e.sto.WriteCount())
	}
	if e.st.Exists(contract) {
		t.Fatalf("state mutation survived revert")
	}
	if len(e.st.Snapshots()) != 0 {
		t.Fatalf("bridge leaked %d snapshots", len(e.st.Snapshots()))
	}
}

func TestOutOfGasExhausts(t *testing.T) {
	e := newEnv(t)
	b := NewInterpreter(Options{})

	limit := vm.DefaultBaseGas + 10
	res := e.run(t, b, rwRuntime, word(1), limit, false)
	if res.Success {
		t.Fatalf("expected out of gas")
	}
	if res.Exception.Kind != types.KindOutOfGas {
		t.Fatalf("exception kind = %v, want out of gas", res.Exception.Kind)
	}
	if res.Exception.Opcode != "JUMPI" || res.Exception.IP != 4 {
		t.Fatalf("fault at %d (%s), want 4 (JUMPI)", res.Exception.IP, res.Exception.Opcode)
	}
	if res.GasUsed != limit {
		t.Fatalf("gas used = %d, want %d", res.GasUsed, limit)
	}
}

func TestLogsAndHooks(t *testing.T) {
	e := newEnv(t)
	var (
		steps  int
		logged []*types.LogEntry
	)
	b := NewInterpreter(Options{Hooks: &tracing.Hooks{
		OnStep: func(uint32, byte, uint64, int) { steps++ },
		OnLog:  func(l *types.LogEntry) { logged = append(logged, l) },
	}})

	// LOG1(offset 0, size 0, topic 0xff); STOP
	res := e.run(t, b, common.FromHex("60ff60006000a100"), nil, 1_000_000, true)
	if !res.Success {
		t.Fatalf("log program failed: %v", res.Err())
	}
	if len(res.Logs) != 1 || len(logged) != 1 {
		t.Fatalf("expected one log, got %d (hook %d)", len(res.Logs), len(logged))
	}
	if res.Logs[0].Address != contract || res.Logs[0].Topics[0] != common.BytesToHash([]byte{0xff}) {
		t.Fatalf("unexpected log %+v", res.Logs[0])
	}
	if steps != 5 || len(res.StackTrace) != 5 {
		t.Fatalf("steps = %d, trace = %d, want 5", steps, len(res.StackTrace))
	}
}

func TestFaultHook(t *testing.T) {
	e := newEnv(t)
	var faults []error
	b := NewInterpreter(Options{Hooks: &tracing.Hooks{
		OnFault: func(_ uint32, _ byte, err error) { faults = append(faults, err) },
	}})
	res := e.run(t, b, []byte{byte(vm.INVALID)}, nil, 1_000, false)
	if res.Success || res.Exception.Kind != types.KindInvalidOperation {
		t.Fatalf("expected invalid operation, got %+v", res.Exception)
	}
	if len(faults) != 1 {
		t.Fatalf("fault hook fired %d times", len(faults))
	}
}

func TestSessionRunToBreakpoint(t *testing.T) {
	e := newEnv(t)
	e.gas.Reset(1_000)
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: 1_000})
	// PUSH1 1, PUSH1 2, ADD, STOP
	ctx.Initialize(common.FromHex("600160020100"), nil)
	ctx.EnableDebugging(true)
	ctx.SetBreakpoint(4)

	s, err := NewInterpreter(Options{}).Begin(ctx, e.st, e.sto, e.gas)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	recs, err := s.RunToBreakpoint()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(recs) != 2 || ctx.IP() != 4 {
		t.Fatalf("stopped at %d after %d steps, want 4 after 2", ctx.IP(), len(recs))
	}
	recs, err = s.RunToBreakpoint()
	if err != nil || !ctx.Halted() || len(recs) != 2 {
		t.Fatalf("resume: halted=%v steps=%d err=%v", ctx.Halted(), len(recs), err)
	}
	if !s.Done() {
		t.Fatalf("session not done after halt")
	}
}

func TestSessionStepsStorage(t *testing.T) {
	e := newEnv(t)
	if err := e.sto.Set(contract, common.Hash{}.Bytes(), word(7)); err != nil {
		t.Fatal(err)
	}
	e.gas.Reset(1_000)
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: 1_000, StrictOpcodes: true})
	// PUSH1 0, SLOAD, STOP
	ctx.Initialize(common.FromHex("60005400"), nil)
	ctx.SetMetadata(vm.CallMetadata{Address: contract, Caller: user, GasLimit: 1_000})

	s, err := NewInterpreter(Options{}).Begin(ctx, e.st, e.sto, e.gas)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := s.Step(); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	before := e.gas.Used()
	rec, err := s.Step()
	if err != nil {
		t.Fatalf("sload without host: %v", err)
	}
	sload := vm.DefaultGasCosts()[vm.GasOpSload]
	if got := e.gas.Used() - before; got < sload {
		t.Fatalf("sload charged %d, want at least %d", got, sload)
	}
	if w := rec.Stack[0].Word(); w[31] != 7 {
		t.Fatalf("sload pushed %x, want 7", w)
	}
	res, err := s.Finish()
	if err != nil || !res.Success {
		t.Fatalf("finish: res=%+v err=%v", res, err)
	}
	if res.GasUsed != e.gas.Used() {
		t.Fatalf("gas used = %d, tracker = %d", res.GasUsed, e.gas.Used())
	}
	if _, err := s.Step(); !errors.Is(err, types.ErrBridge) {
		t.Fatalf("step after finish = %v, want bridge error", err)
	}
	if len(e.st.Snapshots()) != 0 {
		t.Fatalf("session leaked %d snapshots", len(e.st.Snapshots()))
	}
}

func TestSessionAbortDropsWrites(t *testing.T) {
	e := newEnv(t)
	e.gas.Reset(1_000_000)
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: 1_000_000, StrictOpcodes: true})
	ctx.Initialize(rwRuntime, word(5))
	ctx.SetMetadata(vm.CallMetadata{Address: contract, Caller: user, GasLimit: 1_000_000})

	s, err := NewInterpreter(Options{}).Begin(ctx, e.st, e.sto, e.gas)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	for !s.Done() {
		if _, err := s.Step(); err != nil {
			t.Fatalf("step failed: %v", err)
		}
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if _, ok, _ := e.sto.Get(contract, common.Hash{}.Bytes()); ok {
		t.Fatalf("aborted write reached storage")
	}
	if e.st.Exists(contract) || len(e.st.Snapshots()) != 0 {
		t.Fatalf("abort left state behind")
	}
}

// failingBatch accepts single writes but rejects every batch.
type failingBatch struct {
	*storage.Manager
}

func (failingBatch) SetBatch(types.Address, []storage.Write) error {
	return fmt.Errorf("%w: disk full", types.ErrStorage)
}

func TestFlushFailureLeavesNoSlots(t *testing.T) {
	e := newEnv(t)
	b := NewInterpreter(Options{})

	// SSTORE(0, 1) SSTORE(1, 2) STOP
	code := common.FromHex("600160005560026001550000")
	ctx := vm.NewExecutionContext(vm.Config{GasLimit: 1_000_000, StrictOpcodes: true})
	ctx.Initialize(code, nil)
	ctx.SetMetadata(vm.CallMetadata{Address: contract, Caller: user, GasLimit: 1_000_000})
	e.gas.Reset(1_000_000)

	res, err := b.Execute(ctx, e.st, failingBatch{e.sto}, e.gas)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Success || res.Exception.Kind != types.KindStorage {
		t.Fatalf("expected storage failure, got %+v", res.Exception)
	}
	for _, slot := range []common.Hash{{}, common.BytesToHash([]byte{1})} {
		if _, ok, _ := e.sto.Get(contract, slot[:]); ok {
			t.Fatalf("slot %x persisted after failed flush", slot)
		}
	}
	if e.sto.WriteCount() != 0 || e.st.Exists(contract) {
		t.Fatalf("failed flush left writes=%d exists=%v", e.sto.WriteCount(), e.st.Exists(contract))
	}
}

func TestPrefetchWarmsStorage(t *testing.T) {
	e := newEnv(t)
	if err := e.sto.Set(contract, common.Hash{}.Bytes(), []byte{7}); err != nil {
		t.Fatal(err)
	}
	keys := []BatchKey{{Address: contract}, {Address: user, Slot: common.Hash{1}}}
	if err := Prefetch(e.sto, keys); err != nil {
		t.Fatalf("prefetch failed: %v", err)
	}
	if e.sto.ReadCount() != 0 {
		t.Fatalf("prefetch counted %d reads", e.sto.ReadCount())
	}
}
