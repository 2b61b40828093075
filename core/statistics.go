package core

import "github.com/clydemeng/yulvm/core/state"

// Statistics is a read-side join over the runtime's components.
type Statistics struct {
	GasUsed       uint64
	GasLimit      uint64
	Instructions  uint64
	MaxStackDepth int
	StorageReads  uint64
	StorageWrites uint64
	StateChanges  uint64
	Accounts      state.Statistics
}

// Statistics reports counters as of the last execution.
func (r *Runtime) Statistics() Statistics {
	return Statistics{
		GasUsed:       r.gas.Used(),
		GasLimit:      r.gas.Limit(),
		Instructions:  r.ctx.InstructionCount(),
		MaxStackDepth: r.ctx.MaxStackDepth(),
		StorageReads:  r.storage.ReadCount(),
		StorageWrites: r.storage.WriteCount(),
		StateChanges:  r.state.ChangeCount(),
		Accounts:      r.state.Statistics(),
	}
}
