package state

import (
	"fmt"
	"slices"
	"time"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/tracing"
)

// Snapshot is an immutable deep copy of the account map.
type Snapshot struct {
	id          int
	timestamp   time.Time
	description string
	accounts    map[types.Address]*Account
}

func (s *Snapshot) ID() int              { return s.id }
func (s *Snapshot) Timestamp() time.Time { return s.timestamp }
func (s *Snapshot) Description() string  { return s.description }
func (s *Snapshot) Len() int             { return len(s.accounts) }

// Balance reads a balance as captured by the snapshot.
func (s *Snapshot) Balance(addr types.Address) types.Balance {
	if acct, ok := s.accounts[addr]; ok {
		return acct.Balance
	}
	return 0
}

func copyAccounts(src map[types.Address]*Account) map[types.Address]*Account {
	out := make(map[types.Address]*Account, len(src))
	for addr, acct := range src {
		out[addr] = acct.deepCopy()
	}
	return out
}

// CreateSnapshot captures the current accounts and returns the snapshot id.
func (m *Manager) CreateSnapshot(description string) int {
	snap := &Snapshot{
		id:          m.nextSnapID,
		timestamp:   time.Now(),
		description: description,
		accounts:    copyAccounts(m.accounts),
	}
	m.nextSnapID++
	m.snapshots = append(m.snapshots, snap)
	m.logger.Debug("Created state snapshot", "id", snap.id, "desc", description, "accounts", len(snap.accounts))
	return snap.id
}

// Snapshot looks up a retained snapshot by id.
func (m *Manager) Snapshot(id int) (*Snapshot, bool) {
	for _, s := range m.snapshots {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// Snapshots returns the retained snapshots, oldest first.
func (m *Manager) Snapshots() []*Snapshot {
	return append([]*Snapshot(nil), m.snapshots...)
}

// RestoreSnapshot replaces the live accounts with a copy of the snapshot.
// A balance change is logged for every address whose balance differs.
func (m *Manager) RestoreSnapshot(snap *Snapshot) {
	live := m.accounts
	m.accounts = copyAccounts(snap.accounts)

	// Addresses are visited in sorted order so the log is deterministic.
	seen := make(map[types.Address]struct{}, len(live)+len(snap.accounts))
	var addrs []types.Address
	for _, set := range []map[types.Address]*Account{live, snap.accounts} {
		for addr := range set {
			if _, ok := seen[addr]; !ok {
				seen[addr] = struct{}{}
				addrs = append(addrs, addr)
			}
		}
	}
	slices.Sort(addrs)
	for _, addr := range addrs {
		var before, after types.Balance
		if acct, ok := live[addr]; ok {
			before = acct.Balance
		}
		after = snap.Balance(addr)
		if before == after {
			continue
		}
		m.record(types.StateChange{
			Kind:     types.ChangeBalance,
			Address:  addr,
			OldValue: types.EncodeUint64(uint64(before)),
			NewValue: types.EncodeUint64(uint64(after)),
		})
		if m.hooks != nil && m.hooks.OnBalanceChange != nil {
			m.hooks.OnBalanceChange(addr, uint64(before), uint64(after), tracing.BalanceChangeSnapshotRestore)
		}
	}
	m.logger.Debug("Restored state snapshot", "id", snap.id, "accounts", len(m.accounts))
}

// RevertToSnapshot restores the snapshot with the given id and drops every
// snapshot taken after it.
func (m *Manager) RevertToSnapshot(id int) error {
	idx := m.snapshotIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: snapshot %d does not exist", types.ErrState, id)
	}
	m.RestoreSnapshot(m.snapshots[idx])
	m.snapshots = m.snapshots[:idx+1]
	return nil
}

// DiscardSnapshot releases a snapshot that is no longer needed.
func (m *Manager) DiscardSnapshot(id int) {
	if idx := m.snapshotIndex(id); idx >= 0 {
		m.snapshots = append(m.snapshots[:idx], m.snapshots[idx+1:]...)
	}
}

func (m *Manager) snapshotIndex(id int) int {
	for i, s := range m.snapshots {
		if s.id == id {
			return i
		}
	}
	return -1
}
