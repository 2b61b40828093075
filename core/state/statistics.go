package state

import "github.com/holiman/uint256"

// Statistics summarises the live accounts.
type Statistics struct {
	Accounts        int
	Contracts       int
	ExternallyOwned int
	TotalBalance    *uint256.Int
}

// Statistics is derived from the live account map on every call.
func (m *Manager) Statistics() Statistics {
	stats := Statistics{TotalBalance: new(uint256.Int)}
	var bal uint256.Int
	for _, acct := range m.accounts {
		stats.Accounts++
		if acct.IsContract() {
			stats.Contracts++
		} else {
			stats.ExternallyOwned++
		}
		stats.TotalBalance.Add(stats.TotalBalance, bal.SetUint64(uint64(acct.Balance)))
	}
	return stats
}
