package vm

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
)

// StackLimit bounds the operand stack.
const StackLimit = 2048

// Stack is the bounded operand stack. A failed push leaves it untouched.
type Stack struct {
	data []StackItem
}

func newStack() *Stack {
	return &Stack{data: make([]StackItem, 0, 16)}
}

func (st *Stack) push(item StackItem) error {
	if len(st.data) >= StackLimit {
		return fmt.Errorf("%w: operand stack limit %d reached", types.ErrStackOverflow, StackLimit)
	}
	st.data = append(st.data, item)
	return nil
}

func (st *Stack) pop() (StackItem, error) {
	if len(st.data) == 0 {
		return StackItem{}, fmt.Errorf("%w: stack underflow", types.ErrExecution)
	}
	item := st.data[len(st.data)-1]
	st.data[len(st.data)-1] = StackItem{}
	st.data = st.data[:len(st.data)-1]
	return item, nil
}

// popN pops n items, top first. Nothing is popped when fewer than n are
// available.
func (st *Stack) popN(n int) ([]StackItem, error) {
	if len(st.data) < n {
		return nil, fmt.Errorf("%w: stack underflow (%d < %d)", types.ErrExecution, len(st.data), n)
	}
	out := make([]StackItem, n)
	for i := 0; i < n; i++ {
		out[i] = st.data[len(st.data)-1-i]
	}
	st.data = st.data[:len(st.data)-n]
	return out, nil
}

func (st *Stack) peek() (StackItem, error) {
	if len(st.data) == 0 {
		return StackItem{}, fmt.Errorf("%w: peek on empty stack", types.ErrExecution)
	}
	return st.data[len(st.data)-1], nil
}

// dup copies the n'th item from the top (1-based) onto the top.
func (st *Stack) dup(n int) error {
	if len(st.data) < n {
		return fmt.Errorf("%w: stack underflow (%d < %d)", types.ErrExecution, len(st.data), n)
	}
	return st.push(st.data[len(st.data)-n].Copy())
}

// swap exchanges the top with the (n+1)'th item.
func (st *Stack) swap(n int) error {
	if len(st.data) < n+1 {
		return fmt.Errorf("%w: stack underflow (%d < %d)", types.ErrExecution, len(st.data), n+1)
	}
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
	return nil
}

// truncate drops everything above depth.
func (st *Stack) truncate(depth int) {
	if depth < len(st.data) {
		for i := depth; i < len(st.data); i++ {
			st.data[i] = StackItem{}
		}
		st.data = st.data[:depth]
	}
}

func (st *Stack) len() int { return len(st.data) }

func (st *Stack) reset() { st.truncate(0) }

// snapshot returns a deep copy, bottom first.
func (st *Stack) snapshot() []StackItem {
	out := make([]StackItem, len(st.data))
	for i, item := range st.data {
		out[i] = item.Copy()
	}
	return out
}
