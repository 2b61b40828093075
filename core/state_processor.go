package core

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// ProcessResult aggregates the outcome of a batch of transactions.
type ProcessResult struct {
	Receipts []*Receipt
	Logs     []types.LogEntry
	GasUsed  uint64
}

// StateProcessor applies ordered transaction batches through a TxExecutor.
type StateProcessor struct {
	exec TxExecutor
}

// NewStateProcessor initialises a new StateProcessor.
func NewStateProcessor(exec TxExecutor) *StateProcessor {
	return &StateProcessor{exec: exec}
}

// Process runs txs in order and returns their receipts and logs. A
// transaction that fails during execution is recorded in its receipt; a
// setup failure aborts the batch.
func (p *StateProcessor) Process(txs []*Transaction) (*ProcessResult, error) {
	var (
		receipts = make([]*Receipt, 0, len(txs))
		allLogs  []types.LogEntry
		usedGas  uint64
	)
	for i, tx := range txs {
		receipt, err := p.exec.ExecuteTx(tx, i)
		if err != nil {
			return nil, fmt.Errorf("could not apply tx %d: %w", i, err)
		}
		usedGas += receipt.Result.GasUsed
		receipt.CumulativeGasUsed = usedGas
		receipts = append(receipts, receipt)
		allLogs = append(allLogs, receipt.Result.Logs...)
	}
	log.Debug("Processed transactions", "engine", p.exec.Engine(), "txs", len(txs), "gas", usedGas, "logs", len(allLogs))
	return &ProcessResult{
		Receipts: receipts,
		Logs:     allLogs,
		GasUsed:  usedGas,
	}, nil
}
