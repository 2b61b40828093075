package tracing

import (
	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

type (
	// StepHook is invoked before each instruction is executed.
	StepHook = func(ip uint32, op byte, cost uint64, depth int)

	// FaultHook is invoked when an instruction fails.
	FaultHook = func(ip uint32, op byte, err error)

	BalanceChangeHook = func(addr types.Address, prev, next uint64, reason BalanceChangeReason)

	NonceChangeHook = func(addr types.Address, prev, next uint64, reason NonceChangeReason)

	// CodeChangeHook is invoked when an account's code is replaced.
	CodeChangeHook = func(addr types.Address, prevHash, codeHash common.Hash, code []byte)

	StorageChangeHook = func(addr types.Address, slot, prev, next common.Hash)

	LogHook = func(log *types.LogEntry)
)

// Hooks groups the optional callbacks a debugger or tracer can install.
// Any nil field is skipped.
type Hooks struct {
	OnStep          StepHook
	OnFault         FaultHook
	OnBalanceChange BalanceChangeHook
	OnNonceChange   NonceChangeHook
	OnCodeChange    CodeChangeHook
	OnStorageChange StorageChangeHook
	OnLog           LogHook
}
