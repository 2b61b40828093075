package core

import (
	"errors"

	"github.com/clydemeng/yulvm/core/types"
)

// Transaction is a single call or contract creation submitted to a runtime.
type Transaction struct {
	From     types.Address
	To       *types.Address // nil creates a contract from Data
	Data     []byte
	Args     []byte // constructor input for creations; empty skips the constructor
	Value    types.Balance
	GasLimit uint64 // zero keeps the runtime's limit
}

// Receipt records the outcome of one transaction.
type Receipt struct {
	TxIndex           int
	ContractAddress   types.Address // set for contract creations
	Result            *types.ExecutionResult
	CumulativeGasUsed uint64
}

// Success reports whether the transaction executed without exception.
func (r *Receipt) Success() bool { return r.Result != nil && r.Result.Success }

// TxExecutor hides the execution backend behind a common interface so
// transaction processing does not depend on which bridge a runtime uses.
type TxExecutor interface {
	// Engine returns a short identifier of the backing bridge.
	Engine() string

	// ExecuteTx runs tx and returns its receipt. Errors are setup failures;
	// a transaction that runs and fails still yields a receipt.
	ExecuteTx(tx *Transaction, txIdx int) (*Receipt, error)
}

// NewTxExecutor adapts rt to the TxExecutor contract.
func NewTxExecutor(rt *Runtime) TxExecutor {
	return &runtimeExecutor{rt: rt}
}

// runtimeExecutor bridges a Runtime to the TxExecutor interface.
type runtimeExecutor struct {
	rt *Runtime
}

func (e *runtimeExecutor) Engine() string { return e.rt.bridge.Engine() }

func (e *runtimeExecutor) ExecuteTx(tx *Transaction, txIdx int) (*Receipt, error) {
	rt := e.rt
	if tx.GasLimit > 0 {
		prev := rt.ctx.GasLimit()
		rt.ctx.SetGasLimit(tx.GasLimit)
		defer rt.ctx.SetGasLimit(prev)
	}
	receipt := &Receipt{TxIndex: txIdx}

	if tx.To == nil {
		addr, res, err := rt.deploy(tx.From, tx.Data, tx.Args)
		var rerr *types.RuntimeError
		if err != nil && !(errors.As(err, &rerr) && res != nil) {
			return nil, err
		}
		receipt.ContractAddress, receipt.Result = addr, res
		return receipt, nil
	}

	code := rt.state.GetCode(*tx.To)
	if len(code) == 0 {
		// Plain value transfer.
		rt.abortSession()
		if err := rt.state.Transfer(tx.From, *tx.To, tx.Value); err != nil {
			return nil, err
		}
		rt.gas.Reset(rt.ctx.GasLimit())
		receipt.Result = &types.ExecutionResult{
			Success:  true,
			GasUsed:  rt.gas.Used(),
			GasLimit: rt.gas.Limit(),
		}
		return receipt, nil
	}
	res, err := rt.executeFrom(tx.From, *tx.To, code, tx.Data, tx.Value)
	if err != nil {
		return nil, err
	}
	receipt.Result = res
	return receipt, nil
}
