package vm

// CallFrameLimit bounds the number of nested subroutine calls.
const CallFrameLimit = 1024

// CallFrame is pushed on every subroutine call and popped on return.
// StackBase is the operand stack depth at call time; returning truncates the
// stack back to it so a callee cannot leak values into the caller.
type CallFrame struct {
	ReturnIP  uint32
	Function  string
	Locals    map[string]StackItem
	StackBase int
}
