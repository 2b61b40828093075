package state

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/common"
)

// StateBatch is a list of changes applied together. Atomic batches are
// all-or-nothing; non-atomic batches apply what they can and skip failures.
type StateBatch struct {
	Changes []types.StateChange
	Atomic  bool
}

// ExecuteBatch applies the batch. An atomic batch restores its starting
// snapshot and returns the first error; a non-atomic batch only logs
// failing changes and always succeeds.
func (m *Manager) ExecuteBatch(batch StateBatch) error {
	if !batch.Atomic {
		for i, change := range batch.Changes {
			if err := m.applyChange(change); err != nil {
				m.logger.Warn("Skipped failing batch change", "index", i, "kind", change.Kind, "addr", change.Address, "err", err)
			}
		}
		return nil
	}
	snap := m.CreateSnapshot("atomic batch")
	defer m.DiscardSnapshot(snap)
	for i, change := range batch.Changes {
		if err := m.applyChange(change); err != nil {
			if rerr := m.RevertToSnapshot(snap); rerr != nil {
				return rerr
			}
			return fmt.Errorf("batch change %d (%s %s): %w", i, change.Kind, change.Address, err)
		}
	}
	return nil
}

func decodeAmount(change types.StateChange) (uint64, error) {
	v, err := types.DecodeUint64(change.NewValue)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrState, err)
	}
	return v, nil
}

// applyChange dispatches a single change by kind.
func (m *Manager) applyChange(change types.StateChange) error {
	switch change.Kind {
	case types.ChangeBalance:
		v, err := decodeAmount(change)
		if err != nil {
			return err
		}
		m.setBalance(change.Address, types.Balance(v), tracing.BalanceChangeBatch)
	case types.ChangeNonce:
		v, err := decodeAmount(change)
		if err != nil {
			return err
		}
		m.setNonce(change.Address, v, tracing.NonceChangeBatch)
	case types.ChangeCode:
		m.SetCode(change.Address, change.NewValue)
	case types.ChangeCreation:
		var balance uint64
		if len(change.NewValue) > 0 {
			v, err := decodeAmount(change)
			if err != nil {
				return err
			}
			balance = v
		}
		return m.CreateAccount(change.Address, types.Balance(balance))
	case types.ChangeDeletion:
		m.DeleteAccount(change.Address)
	case types.ChangeStorage:
		if len(change.Key) > common.HashLength || len(change.NewValue) > common.HashLength || len(change.OldValue) > common.HashLength {
			return fmt.Errorf("%w: storage change for %s wider than a word", types.ErrState, change.Address)
		}
		m.RecordStorageWrite(change.Address, common.BytesToHash(change.Key), common.BytesToHash(change.OldValue), common.BytesToHash(change.NewValue))
	default:
		return fmt.Errorf("%w: unknown change kind %d", types.ErrState, change.Kind)
	}
	return nil
}
