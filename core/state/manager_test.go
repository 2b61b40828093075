package state

import (
	"testing"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = types.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = types.HexToAddress("0x00000000000000000000000000000000000ca201")
)

func TestImplicitAccounts(t *testing.T) {
	m := New()
	require.Zero(t, m.GetBalance(alice))
	require.Zero(t, m.GetNonce(alice))
	require.Nil(t, m.GetCode(alice))
	require.False(t, m.Exists(alice))

	m.SetNonce(alice, 3)
	require.True(t, m.Exists(alice))
	require.Equal(t, uint64(3), m.GetNonce(alice))
	require.Equal(t, uint64(1), m.ChangeCount())
}

func TestEveryMutationLogsOneChange(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 10))
	m.SetBalance(alice, 20)
	m.SetNonce(alice, 1)
	m.SetCode(bob, []byte{0x60, 0x00})
	m.RecordStorageWrite(bob, common.Hash{1}, common.Hash{}, common.Hash{2})
	m.DeleteAccount(alice)
	m.DeleteAccount(carol) // unknown: no-op

	changes := m.Changes()
	require.Len(t, changes, 6)
	require.Equal(t, uint64(6), m.ChangeCount())

	kinds := make([]types.ChangeKind, len(changes))
	for i, c := range changes {
		kinds[i] = c.Kind
	}
	require.Equal(t, []types.ChangeKind{
		types.ChangeCreation, types.ChangeBalance, types.ChangeNonce,
		types.ChangeCode, types.ChangeStorage, types.ChangeDeletion,
	}, kinds)

	require.Equal(t, types.EncodeUint64(10), changes[1].OldValue)
	require.Equal(t, types.EncodeUint64(20), changes[1].NewValue)

	m.ClearChanges()
	require.Empty(t, m.Changes())
	require.Equal(t, uint64(6), m.ChangeCount())
}

func TestCreateAccountTwiceFails(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 1000))
	err := m.CreateAccount(alice, 5)
	require.ErrorIs(t, err, types.ErrState)
	require.Equal(t, types.Balance(1000), m.GetBalance(alice))
}

func TestSetCodeHashesContent(t *testing.T) {
	m := New()
	code := common.FromHex("600160020160005260206000f3")
	m.SetCode(alice, code)

	hash := crypto.Keccak256Hash(code)
	require.Equal(t, hash, m.GetCodeHash(alice))
	require.Equal(t, code, m.GetCode(alice))

	got, ok := m.CodeByHash(hash)
	require.True(t, ok)
	require.Equal(t, code, got)

	_, ok = m.CodeByHash(common.Hash{0xde, 0xad})
	require.False(t, ok)

	acct, ok := m.Account(alice)
	require.True(t, ok)
	require.True(t, acct.IsContract())
}

func TestTransferConservesBalance(t *testing.T) {
	amounts := []types.Balance{0, 1, 499, 500}
	for _, amount := range amounts {
		m := New()
		require.NoError(t, m.CreateAccount(alice, 500))
		require.NoError(t, m.CreateAccount(bob, 250))

		require.NoError(t, m.Transfer(alice, bob, amount))
		require.Equal(t, types.Balance(750), m.GetBalance(alice)+m.GetBalance(bob))
		require.Equal(t, 500-amount, m.GetBalance(alice))
		require.Equal(t, 250+amount, m.GetBalance(bob))
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 100))
	require.NoError(t, m.CreateAccount(bob, 7))
	before := m.ChangeCount()

	err := m.Transfer(alice, bob, 101)
	require.ErrorIs(t, err, types.ErrState)
	require.Equal(t, types.Balance(100), m.GetBalance(alice))
	require.Equal(t, types.Balance(7), m.GetBalance(bob))
	require.Equal(t, before, m.ChangeCount())
}

func TestTransferOverflow(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 10))
	require.NoError(t, m.CreateAccount(bob, ^types.Balance(0)))
	require.ErrorIs(t, m.Transfer(alice, bob, 1), types.ErrState)
	require.Equal(t, types.Balance(10), m.GetBalance(alice))
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 1000))
	id := m.CreateSnapshot("before")
	m.SetBalance(alice, 2000)
	m.SetBalance(bob, 5)

	snap, ok := m.Snapshot(id)
	require.True(t, ok)
	require.Equal(t, "before", snap.Description())
	require.Equal(t, types.Balance(1000), snap.Balance(alice))

	mark := m.ChangeLogLen()
	m.RestoreSnapshot(snap)
	require.Equal(t, types.Balance(1000), m.GetBalance(alice))
	require.False(t, m.Exists(bob))

	// Only the two differing balances were logged.
	restored := m.ChangesSince(mark)
	require.Len(t, restored, 2)
	for _, c := range restored {
		require.Equal(t, types.ChangeBalance, c.Kind)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	m := New()
	m.SetCode(alice, []byte{1, 2, 3})
	id := m.CreateSnapshot("code")
	m.SetCode(alice, []byte{9})

	require.NoError(t, m.RevertToSnapshot(id))
	require.Equal(t, []byte{1, 2, 3}, m.GetCode(alice))

	// Mutating live state after a restore must not leak into the snapshot.
	m.SetCode(alice, []byte{7})
	require.NoError(t, m.RevertToSnapshot(id))
	require.Equal(t, []byte{1, 2, 3}, m.GetCode(alice))
}

func TestRevertDropsLaterSnapshots(t *testing.T) {
	m := New()
	first := m.CreateSnapshot("first")
	second := m.CreateSnapshot("second")
	require.NoError(t, m.RevertToSnapshot(first))
	_, ok := m.Snapshot(second)
	require.False(t, ok)
	require.ErrorIs(t, m.RevertToSnapshot(second), types.ErrState)

	m.DiscardSnapshot(first)
	require.Empty(t, m.Snapshots())
}

func batchOf(atomic bool) StateBatch {
	return StateBatch{
		Atomic: atomic,
		Changes: []types.StateChange{
			{Kind: types.ChangeBalance, Address: alice, NewValue: types.EncodeUint64(111)},
			{Kind: types.ChangeBalance, Address: bob, NewValue: []byte{0x01, 0x02}},
			{Kind: types.ChangeNonce, Address: carol, NewValue: types.EncodeUint64(9)},
		},
	}
}

func TestAtomicBatchRollback(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 1))
	require.NoError(t, m.CreateAccount(bob, 2))

	err := m.ExecuteBatch(batchOf(true))
	require.ErrorIs(t, err, types.ErrState)
	require.Equal(t, types.Balance(1), m.GetBalance(alice))
	require.Equal(t, types.Balance(2), m.GetBalance(bob))
	require.Zero(t, m.GetNonce(carol))
	require.False(t, m.Exists(carol))
	require.Empty(t, m.Snapshots())
}

func TestNonAtomicBatchSkipsFailures(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, 1))
	require.NoError(t, m.CreateAccount(bob, 2))

	require.NoError(t, m.ExecuteBatch(batchOf(false)))
	require.Equal(t, types.Balance(111), m.GetBalance(alice))
	require.Equal(t, types.Balance(2), m.GetBalance(bob))
	require.Equal(t, uint64(9), m.GetNonce(carol))
}

func TestBatchCreationAndStorage(t *testing.T) {
	m := New()
	require.NoError(t, m.ExecuteBatch(StateBatch{Atomic: true, Changes: []types.StateChange{
		{Kind: types.ChangeCreation, Address: alice, NewValue: types.EncodeUint64(42)},
		{Kind: types.ChangeCode, Address: alice, NewValue: []byte{0x00}},
		{Kind: types.ChangeStorage, Address: alice, Key: []byte{1}, NewValue: []byte{2}},
	}}))
	require.Equal(t, types.Balance(42), m.GetBalance(alice))
	acct, _ := m.Account(alice)
	require.NotNil(t, acct.StorageRoot)

	err := m.ExecuteBatch(StateBatch{Atomic: true, Changes: []types.StateChange{
		{Kind: types.ChangeCreation, Address: alice},
	}})
	require.ErrorIs(t, err, types.ErrState)
}

func TestStatistics(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateAccount(alice, ^types.Balance(0)))
	require.NoError(t, m.CreateAccount(bob, 1))
	m.SetCode(carol, []byte{0x00})

	stats := m.Statistics()
	require.Equal(t, 3, stats.Accounts)
	require.Equal(t, 1, stats.Contracts)
	require.Equal(t, 2, stats.ExternallyOwned)
	// The total exceeds 64 bits.
	require.Equal(t, "18446744073709551616", stats.TotalBalance.Dec())
}

func TestHooks(t *testing.T) {
	m := New()
	var reasons []tracing.BalanceChangeReason
	m.SetHooks(&tracing.Hooks{
		OnBalanceChange: func(_ types.Address, _, _ uint64, reason tracing.BalanceChangeReason) {
			reasons = append(reasons, reason)
		},
	})
	require.NoError(t, m.CreateAccount(alice, 10))
	require.NoError(t, m.Transfer(alice, bob, 4))
	require.Equal(t, []tracing.BalanceChangeReason{
		tracing.BalanceChangeGenesis, tracing.BalanceChangeTransfer, tracing.BalanceChangeTransfer,
	}, reasons)
}
