package vm

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
)

// MemoryLimit caps linear memory so a single write at a huge offset cannot
// exhaust the host.
const MemoryLimit = 32 * 1024 * 1024

// Memory is byte-addressable linear memory that grows on write.
type Memory struct {
	store []byte
}

func newMemory() *Memory {
	return &Memory{}
}

// Set writes data at offset, zero-filling any gap.
func (m *Memory) Set(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	end := offset + uint64(len(data))
	if end < offset || end > MemoryLimit {
		return fmt.Errorf("%w: memory write [%d, +%d) exceeds limit %d", types.ErrExecution, offset, len(data), MemoryLimit)
	}
	if end > uint64(len(m.store)) {
		m.resize(end)
	}
	copy(m.store[offset:end], data)
	return nil
}

// GetCopy returns a copy of [offset, offset+size). The window must lie within
// the current memory.
func (m *Memory) GetCopy(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	end := offset + size
	if end < offset || end > uint64(len(m.store)) {
		return nil, fmt.Errorf("%w: memory read [%d, +%d) out of bounds (size %d)", types.ErrExecution, offset, size, len(m.store))
	}
	out := make([]byte, size)
	copy(out, m.store[offset:end])
	return out, nil
}

func (m *Memory) resize(size uint64) {
	if uint64(cap(m.store)) >= size {
		old := len(m.store)
		m.store = m.store[:size]
		clear(m.store[old:])
		return
	}
	grown := make([]byte, size, size+size/4)
	copy(grown, m.store)
	m.store = grown
}

// Len returns the current memory size.
func (m *Memory) Len() int { return len(m.store) }

// Data exposes the backing slice for debugging output.
func (m *Memory) Data() []byte { return m.store }

func (m *Memory) reset() { m.store = m.store[:0] }
