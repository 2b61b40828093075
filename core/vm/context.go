package vm

import (
	"fmt"
	"slices"

	"github.com/clydemeng/yulvm/core/types"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/willf/bitset"
)

// Config holds the execution context settings.
type Config struct {
	GasLimit      uint64
	StrictOpcodes bool // fail on undefined opcodes instead of skipping them
}

// StepRecord describes one executed instruction.
type StepRecord struct {
	IP       uint32
	Opcode   OpCode
	Mnemonic string
	Stack    []StackItem
	GasUsed  uint64 // static cost of the instruction
	Halted   bool
}

// ExecutionContext is the stack machine. It owns the bytecode, instruction
// pointer, operand stack, memory and call frames of one run. It is not safe
// for concurrent use.
type ExecutionContext struct {
	cfg   Config
	table *JumpTable

	code      []byte
	input     []byte
	jumpdests *bitset.BitSet
	ip        uint32

	stack  *Stack
	memory *Memory
	frames []CallFrame

	instructions  uint64
	maxStackDepth int

	breakpoints mapset.Set[uint32]
	debugging   bool

	meta       CallMetadata
	host       Host
	returnData []byte
	reverted   bool
}

// NewExecutionContext returns an empty context. Initialize must be called
// before stepping.
func NewExecutionContext(cfg Config) *ExecutionContext {
	return &ExecutionContext{
		cfg:         cfg,
		table:       instructionSet(cfg.StrictOpcodes),
		stack:       newStack(),
		memory:      newMemory(),
		breakpoints: mapset.NewThreadUnsafeSet[uint32](),
	}
}

// Initialize loads code and input and resets all per-run state. Breakpoints
// and the debugging flag survive.
func (c *ExecutionContext) Initialize(code, input []byte) {
	c.code = code
	c.input = input
	c.jumpdests = jumpdestAnalysis(code)
	c.ip = 0
	c.stack.reset()
	c.memory.reset()
	c.frames = c.frames[:0]
	c.instructions = 0
	c.maxStackDepth = 0
	c.returnData = nil
	c.reverted = false
}

// SetMetadata installs the call envelope read by environment opcodes.
func (c *ExecutionContext) SetMetadata(meta CallMetadata) { c.meta = meta }

// SetHost installs the host used by storage, balance, log and transfer
// instructions. A nil host disables them.
func (c *ExecutionContext) SetHost(h Host) { c.host = h }

// Next returns the opcode at the instruction pointer and its static cost.
// ok is false once the context has halted.
func (c *ExecutionContext) Next() (op OpCode, cost uint64, ok bool) {
	if c.Halted() {
		return STOP, 0, false
	}
	op = OpCode(c.code[c.ip])
	return op, c.table[op].constantGas, true
}

// Step executes exactly one instruction. At or past the end of code it
// returns a halted record without touching any state. Gas is not charged
// here; the driver charges the static cost reported by Next.
func (c *ExecutionContext) Step() (StepRecord, error) {
	if c.Halted() {
		return StepRecord{IP: c.ip, Opcode: STOP, Mnemonic: STOP.String(), Stack: c.stack.snapshot(), Halted: true}, nil
	}
	ip := c.ip
	op := OpCode(c.code[ip])
	rec := StepRecord{IP: ip, Opcode: op, Mnemonic: op.String(), GasUsed: c.table[op].constantGas}
	err := c.Advance()
	rec.Stack = c.stack.snapshot()
	rec.Halted = c.Halted()
	return rec, err
}

// Advance executes one instruction without building a step record.
func (c *ExecutionContext) Advance() error {
	if c.Halted() {
		return nil
	}
	op := c.table[c.code[c.ip]]
	if c.stack.len() < op.minStack {
		return fmt.Errorf("%w: stack underflow (%d < %d) at ip %d", types.ErrExecution, c.stack.len(), op.minStack, c.ip)
	}
	next, err := op.execute(c.ip, c)
	if err != nil {
		return err
	}
	c.ip = next
	c.instructions++
	c.trackDepth()
	return nil
}

func (c *ExecutionContext) trackDepth() {
	if n := c.stack.len(); n > c.maxStackDepth {
		c.maxStackDepth = n
	}
}

// PushStack pushes item, failing on stack overflow.
func (c *ExecutionContext) PushStack(item StackItem) error {
	if err := c.stack.push(item); err != nil {
		return err
	}
	c.trackDepth()
	return nil
}

// PopStack removes and returns the top item.
func (c *ExecutionContext) PopStack() (StackItem, error) { return c.stack.pop() }

// PeekStack returns the top item without removing it.
func (c *ExecutionContext) PeekStack() (StackItem, error) { return c.stack.peek() }

// ReadMemory copies [offset, offset+size) out of memory.
func (c *ExecutionContext) ReadMemory(offset, size uint64) ([]byte, error) {
	return c.memory.GetCopy(offset, size)
}

// WriteMemory writes data at offset, growing memory as needed.
func (c *ExecutionContext) WriteMemory(offset uint64, data []byte) error {
	return c.memory.Set(offset, data)
}

// CallFunction enters a subroutine at target. The return address is the
// instruction after the current one.
func (c *ExecutionContext) CallFunction(target uint32, name string) error {
	if uint64(target) > uint64(len(c.code)) {
		return fmt.Errorf("%w: call target %d outside code (len %d)", types.ErrExecution, target, len(c.code))
	}
	if err := c.pushFrame(c.ip+1, target, name); err != nil {
		return err
	}
	c.ip = target
	return nil
}

// ReturnFromFunction leaves the current subroutine, restoring the return
// address and truncating the operand stack to the frame's base.
func (c *ExecutionContext) ReturnFromFunction() error {
	frame, err := c.popFrame()
	if err != nil {
		return err
	}
	c.ip = min(frame.ReturnIP, uint32(len(c.code)))
	return nil
}

func (c *ExecutionContext) pushFrame(ret, target uint32, name string) error {
	if len(c.frames) >= CallFrameLimit {
		return fmt.Errorf("%w: %w: call depth limit %d reached at target %d", types.ErrExecution, types.ErrStackOverflow, CallFrameLimit, target)
	}
	c.frames = append(c.frames, CallFrame{
		ReturnIP:  ret,
		Function:  name,
		Locals:    make(map[string]StackItem),
		StackBase: c.stack.len(),
	})
	return nil
}

func (c *ExecutionContext) popFrame() (CallFrame, error) {
	if len(c.frames) == 0 {
		return CallFrame{}, fmt.Errorf("%w: return with no active call frame", types.ErrExecution)
	}
	frame := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.stack.truncate(frame.StackBase)
	return frame, nil
}

// CurrentFrame returns the innermost call frame, if any.
func (c *ExecutionContext) CurrentFrame() (*CallFrame, bool) {
	if len(c.frames) == 0 {
		return nil, false
	}
	return &c.frames[len(c.frames)-1], true
}

// EnableDebugging turns step records and breakpoints on or off.
func (c *ExecutionContext) EnableDebugging(on bool) { c.debugging = on }

// Debugging reports whether debugging is on.
func (c *ExecutionContext) Debugging() bool { return c.debugging }

// Breakpoints are instruction addresses; they only stop execution while
// debugging is on.
func (c *ExecutionContext) SetBreakpoint(ip uint32)      { c.breakpoints.Add(ip) }
func (c *ExecutionContext) RemoveBreakpoint(ip uint32)   { c.breakpoints.Remove(ip) }
func (c *ExecutionContext) HasBreakpoint(ip uint32) bool { return c.breakpoints.Contains(ip) }
func (c *ExecutionContext) ClearBreakpoints()            { c.breakpoints.Clear() }

// Breakpoints returns the breakpoint addresses in ascending order.
func (c *ExecutionContext) Breakpoints() []uint32 {
	out := c.breakpoints.ToSlice()
	slices.Sort(out)
	return out
}

// AtBreakpoint reports whether debugging is on and the instruction pointer
// sits on a breakpoint.
func (c *ExecutionContext) AtBreakpoint() bool {
	return c.debugging && c.breakpoints.Contains(c.ip)
}

// Accessors. Stack returns a copy with the bottom item first.
func (c *ExecutionContext) Config() Config           { return c.cfg }
func (c *ExecutionContext) GasLimit() uint64         { return c.cfg.GasLimit }
func (c *ExecutionContext) SetGasLimit(limit uint64) { c.cfg.GasLimit = limit }
func (c *ExecutionContext) Metadata() CallMetadata   { return c.meta }
func (c *ExecutionContext) Code() []byte             { return c.code }
func (c *ExecutionContext) Input() []byte            { return c.input }
func (c *ExecutionContext) IP() uint32               { return c.ip }
func (c *ExecutionContext) StackLen() int            { return c.stack.len() }
func (c *ExecutionContext) Stack() []StackItem       { return c.stack.snapshot() }
func (c *ExecutionContext) MemorySize() int          { return c.memory.Len() }
func (c *ExecutionContext) InstructionCount() uint64 { return c.instructions }
func (c *ExecutionContext) MaxStackDepth() int       { return c.maxStackDepth }
func (c *ExecutionContext) CallDepth() int           { return len(c.frames) }
func (c *ExecutionContext) Reverted() bool           { return c.reverted }

// ReturnData is the output recorded by RETURN or REVERT.
func (c *ExecutionContext) ReturnData() []byte { return c.returnData }

// Halted reports whether the instruction pointer reached the end of code.
func (c *ExecutionContext) Halted() bool { return uint64(c.ip) >= uint64(len(c.code)) }
