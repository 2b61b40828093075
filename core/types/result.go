package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChangeKind tags a StateChange.
type ChangeKind uint8

const (
	ChangeBalance ChangeKind = iota
	ChangeNonce
	ChangeCode
	ChangeCreation
	ChangeDeletion
	ChangeStorage
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeBalance:
		return "balance"
	case ChangeNonce:
		return "nonce"
	case ChangeCode:
		return "code"
	case ChangeCreation:
		return "creation"
	case ChangeDeletion:
		return "deletion"
	case ChangeStorage:
		return "storage"
	}
	return "unknown"
}

// StateChange is an append-only audit record of one state mutation.
type StateChange struct {
	Kind     ChangeKind
	Address  Address
	Key      []byte // storage changes only
	OldValue []byte // nil when there was no previous value
	NewValue []byte
}

// LogEntry is emitted by the LOG family of instructions.
type LogEntry struct {
	Address Address
	Topics  []common.Hash
	Data    []byte
}

// Exception describes the failure that ended an execution.
type Exception struct {
	Kind    ErrorKind
	Message string
	IP      uint32
	Opcode  string
}

func (e *Exception) Error() string {
	if e.Opcode != "" {
		return fmt.Sprintf("%s at ip %d (%s): %s", e.Kind, e.IP, e.Opcode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is match the kind's sentinel.
func (e *Exception) Unwrap() error { return e.Kind.Sentinel() }

// ExecutionResult is assembled once per execute call and never mutated
// afterwards.
type ExecutionResult struct {
	Success      bool
	ReturnData   []byte
	GasUsed      uint64
	GasLimit     uint64
	Exception    *Exception
	StateChanges []StateChange
	Logs         []LogEntry
	StackTrace   []string
}

// GasEfficiency is the share of the gas limit that was consumed.
func (r *ExecutionResult) GasEfficiency() float64 {
	if r.GasLimit == 0 {
		return 0
	}
	return float64(r.GasUsed) / float64(r.GasLimit)
}

// Reverted reports whether the call ended with an explicit REVERT.
func (r *ExecutionResult) Reverted() bool {
	return !r.Success && r.Exception != nil && r.Exception.Kind == KindExecution && r.Exception.Opcode == "REVERT"
}

// Err returns the exception as an error, or nil for successful results.
func (r *ExecutionResult) Err() error {
	if r.Exception == nil {
		return nil
	}
	return r.Exception
}
