package state

import (
	"time"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// Account is the state held for one address. An address without an entry
// reads as zero balance, zero nonce and no code.
type Account struct {
	Address     types.Address
	Balance     types.Balance
	Nonce       uint64
	Code        []byte
	CodeHash    *common.Hash
	StorageRoot *common.Hash
	CreatedAt   time.Time
}

func newAccount(addr types.Address) *Account {
	return &Account{Address: addr, CreatedAt: time.Now()}
}

// IsContract reports whether the account carries code.
func (a *Account) IsContract() bool { return len(a.Code) > 0 }

// deepCopy returns an account sharing no memory with a.
func (a *Account) deepCopy() *Account {
	cpy := *a
	if a.Code != nil {
		cpy.Code = common.CopyBytes(a.Code)
	}
	if a.CodeHash != nil {
		h := *a.CodeHash
		cpy.CodeHash = &h
	}
	if a.StorageRoot != nil {
		h := *a.StorageRoot
		cpy.StorageRoot = &h
	}
	return &cpy
}
