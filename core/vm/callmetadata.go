package vm

import "github.com/clydemeng/yulvm/core/types"

// CallMetadata carries the envelope of one run: who is executing, on whose
// behalf, with what value and in which block. It is installed on the
// execution context before Initialize and read by the environment opcodes
// and the host adapter.
type CallMetadata struct {
	Address   types.Address // account whose code is running
	Caller    types.Address
	Value     types.Balance
	Block     types.BlockNumber
	Timestamp types.Timestamp
	GasLimit  types.Gas // informational; the gas tracker is authoritative
}
