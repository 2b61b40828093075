package state

import (
	"fmt"
	"slices"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

const codeCacheSize = 256

// Manager is the authoritative registry of accounts. Every mutation appends
// exactly one StateChange to the change log. A Manager is not safe for
// concurrent use.
type Manager struct {
	accounts    map[types.Address]*Account
	changes     []types.StateChange
	changeCount uint64

	snapshots  []*Snapshot
	nextSnapID int

	codeCache *lru.Cache // code hash -> code
	hooks     *tracing.Hooks
	logger    log.Logger
}

// New returns an empty state manager.
func New() *Manager {
	cache, err := lru.New(codeCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Manager{
		accounts:  make(map[types.Address]*Account),
		codeCache: cache,
		logger:    log.New("component", "state"),
	}
}

// SetHooks installs tracing callbacks. Passing nil removes them.
func (m *Manager) SetHooks(hooks *tracing.Hooks) { m.hooks = hooks }

func (m *Manager) record(change types.StateChange) {
	m.changes = append(m.changes, change)
	m.changeCount++
}

// getOrCreate returns the live account, creating a zero one if unseen.
func (m *Manager) getOrCreate(addr types.Address) *Account {
	acct, ok := m.accounts[addr]
	if !ok {
		acct = newAccount(addr)
		m.accounts[addr] = acct
	}
	return acct
}

// Exists reports whether an account entry is present for addr.
func (m *Manager) Exists(addr types.Address) bool {
	_, ok := m.accounts[addr]
	return ok
}

// Account returns a copy of the account, if present.
func (m *Manager) Account(addr types.Address) (Account, bool) {
	acct, ok := m.accounts[addr]
	if !ok {
		return Account{}, false
	}
	return *acct.deepCopy(), true
}

// Addresses returns all known addresses in sorted order.
func (m *Manager) Addresses() []types.Address {
	out := make([]types.Address, 0, len(m.accounts))
	for addr := range m.accounts {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

// GetBalance returns the balance of addr, zero for unknown accounts.
func (m *Manager) GetBalance(addr types.Address) types.Balance {
	if acct, ok := m.accounts[addr]; ok {
		return acct.Balance
	}
	return 0
}

// SetBalance overwrites the balance of addr, creating the account if needed.
func (m *Manager) SetBalance(addr types.Address, balance types.Balance) {
	m.setBalance(addr, balance, tracing.BalanceChangeDirect)
}

func (m *Manager) setBalance(addr types.Address, balance types.Balance, reason tracing.BalanceChangeReason) {
	acct := m.getOrCreate(addr)
	prev := acct.Balance
	acct.Balance = balance
	m.record(types.StateChange{
		Kind:     types.ChangeBalance,
		Address:  addr,
		OldValue: types.EncodeUint64(uint64(prev)),
		NewValue: types.EncodeUint64(uint64(balance)),
	})
	if m.hooks != nil && m.hooks.OnBalanceChange != nil {
		m.hooks.OnBalanceChange(addr, uint64(prev), uint64(balance), reason)
	}
}

// GetNonce returns the nonce of addr, zero for unknown accounts.
func (m *Manager) GetNonce(addr types.Address) uint64 {
	if acct, ok := m.accounts[addr]; ok {
		return acct.Nonce
	}
	return 0
}

// SetNonce overwrites the nonce of addr, creating the account if needed.
func (m *Manager) SetNonce(addr types.Address, nonce uint64) {
	m.setNonce(addr, nonce, tracing.NonceChangeDirect)
}

func (m *Manager) setNonce(addr types.Address, nonce uint64, reason tracing.NonceChangeReason) {
	acct := m.getOrCreate(addr)
	prev := acct.Nonce
	acct.Nonce = nonce
	m.record(types.StateChange{
		Kind:     types.ChangeNonce,
		Address:  addr,
		OldValue: types.EncodeUint64(prev),
		NewValue: types.EncodeUint64(nonce),
	})
	if m.hooks != nil && m.hooks.OnNonceChange != nil {
		m.hooks.OnNonceChange(addr, prev, nonce, reason)
	}
}

// IncrementNonce bumps the nonce and returns the value it had before.
func (m *Manager) IncrementNonce(addr types.Address, reason tracing.NonceChangeReason) uint64 {
	prev := m.GetNonce(addr)
	m.setNonce(addr, prev+1, reason)
	return prev
}

// GetCode returns a copy of the account code, nil for unknown accounts.
func (m *Manager) GetCode(addr types.Address) []byte {
	if acct, ok := m.accounts[addr]; ok {
		return common.CopyBytes(acct.Code)
	}
	return nil
}

// GetCodeHash returns the Keccak-256 hash of the account code, or the zero
// hash when the account has never had code set.
func (m *Manager) GetCodeHash(addr types.Address) common.Hash {
	if acct, ok := m.accounts[addr]; ok && acct.CodeHash != nil {
		return *acct.CodeHash
	}
	return common.Hash{}
}

// SetCode stores code against addr along with its content hash.
func (m *Manager) SetCode(addr types.Address, code []byte) {
	acct := m.getOrCreate(addr)
	var prevHash common.Hash
	if acct.CodeHash != nil {
		prevHash = *acct.CodeHash
	}
	prev := acct.Code
	hash := crypto.Keccak256Hash(code)
	acct.Code = common.CopyBytes(code)
	acct.CodeHash = &hash
	m.codeCache.Add(hash, acct.Code)

	m.record(types.StateChange{
		Kind:     types.ChangeCode,
		Address:  addr,
		OldValue: prev,
		NewValue: common.CopyBytes(code),
	})
	if m.hooks != nil && m.hooks.OnCodeChange != nil {
		m.hooks.OnCodeChange(addr, prevHash, hash, code)
	}
}

// CodeByHash resolves code by its hash. The returned slice is a copy.
func (m *Manager) CodeByHash(hash common.Hash) ([]byte, bool) {
	if v, ok := m.codeCache.Get(hash); ok {
		return common.CopyBytes(v.([]byte)), true
	}
	for _, acct := range m.accounts {
		if acct.CodeHash != nil && *acct.CodeHash == hash {
			m.codeCache.Add(hash, acct.Code)
			return common.CopyBytes(acct.Code), true
		}
	}
	return nil, false
}

// CreateAccount adds a new account with the given balance. It is the only
// operation that fails when the address already exists.
func (m *Manager) CreateAccount(addr types.Address, balance types.Balance) error {
	if _, ok := m.accounts[addr]; ok {
		return fmt.Errorf("%w: account %s already exists", types.ErrState, addr)
	}
	acct := newAccount(addr)
	acct.Balance = balance
	m.accounts[addr] = acct
	m.record(types.StateChange{
		Kind:     types.ChangeCreation,
		Address:  addr,
		NewValue: types.EncodeUint64(uint64(balance)),
	})
	if m.hooks != nil && m.hooks.OnBalanceChange != nil && balance != 0 {
		m.hooks.OnBalanceChange(addr, 0, uint64(balance), tracing.BalanceChangeGenesis)
	}
	return nil
}

// DeleteAccount removes addr. Deleting an unknown address is a no-op.
func (m *Manager) DeleteAccount(addr types.Address) {
	acct, ok := m.accounts[addr]
	if !ok {
		return
	}
	delete(m.accounts, addr)
	m.record(types.StateChange{
		Kind:     types.ChangeDeletion,
		Address:  addr,
		OldValue: types.EncodeUint64(uint64(acct.Balance)),
	})
	if m.hooks != nil && m.hooks.OnBalanceChange != nil && acct.Balance != 0 {
		m.hooks.OnBalanceChange(addr, uint64(acct.Balance), 0, tracing.BalanceChangeDeletion)
	}
}

// Transfer moves amount from one account to another as two balance updates,
// debit first. The pair is not atomic on its own; wrap it in a snapshot when
// that matters.
func (m *Manager) Transfer(from, to types.Address, amount types.Balance) error {
	fromBal := m.GetBalance(from)
	if fromBal < amount {
		return fmt.Errorf("%w: insufficient balance in %s: have %d, want %d", types.ErrState, from, fromBal, amount)
	}
	if from != to {
		if toBal := m.GetBalance(to); toBal+amount < toBal {
			return fmt.Errorf("%w: balance overflow crediting %s", types.ErrState, to)
		}
	}
	m.setBalance(from, fromBal-amount, tracing.BalanceChangeTransfer)
	m.setBalance(to, m.GetBalance(to)+amount, tracing.BalanceChangeTransfer)
	return nil
}

// RecordStorageWrite logs a contract storage write and advances the
// account's storage-root marker. The slot values themselves live in the
// storage backend.
func (m *Manager) RecordStorageWrite(addr types.Address, key, prev, value common.Hash) {
	acct := m.getOrCreate(addr)
	var root common.Hash
	if acct.StorageRoot != nil {
		root = *acct.StorageRoot
	}
	root = crypto.Keccak256Hash(root[:], key[:], value[:])
	acct.StorageRoot = &root

	m.record(types.StateChange{
		Kind:     types.ChangeStorage,
		Address:  addr,
		Key:      common.CopyBytes(key[:]),
		OldValue: common.CopyBytes(prev[:]),
		NewValue: common.CopyBytes(value[:]),
	})
	if m.hooks != nil && m.hooks.OnStorageChange != nil {
		m.hooks.OnStorageChange(addr, key, prev, value)
	}
}

// Changes returns a copy of the change log.
func (m *Manager) Changes() []types.StateChange {
	return slices.Clone(m.changes)
}

// ChangesSince returns the changes appended after the log held mark entries.
func (m *Manager) ChangesSince(mark int) []types.StateChange {
	if mark >= len(m.changes) {
		return nil
	}
	return slices.Clone(m.changes[mark:])
}

// ChangeLogLen is the current length of the change log.
func (m *Manager) ChangeLogLen() int { return len(m.changes) }

// ChangeCount is the number of mutations since the manager was created. It
// keeps counting across ClearChanges.
func (m *Manager) ChangeCount() uint64 { return m.changeCount }

// ClearChanges empties the change log.
func (m *Manager) ClearChanges() {
	m.changes = nil
}
