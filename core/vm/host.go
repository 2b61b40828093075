package vm

import (
	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// Host gives host-dependent instructions access to accounts, contract
// storage and logs. The bridge installs one per execution; instructions that
// need a host fail with ErrInvalidOperation when none is set.
type Host interface {
	Balance(addr types.Address) (types.Balance, error)
	GetStorage(key common.Hash) (common.Hash, error)
	SetStorage(key, value common.Hash) error
	EmitLog(topics []common.Hash, data []byte) error
	Transfer(to types.Address, amount types.Balance) error

	// UseGas charges units of the named operation cost.
	UseGas(name string, units uint64) error
	GasLeft() uint64
}
