package bridge

import (
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/storage"
	"github.com/ethereum/go-ethereum/common"
)

// BatchKey identifies a contract storage slot to be loaded ahead of
// execution.
type BatchKey struct {
	Address types.Address
	Slot    common.Hash
}

// prefetcher is implemented by backends that can warm their read cache.
type prefetcher interface {
	Prefetch(account types.Address, keys [][]byte) error
}

// Prefetch warms the backend cache for keys. It is a no-op for backends
// without a cache and for an empty key set.
func Prefetch(sto storage.Backend, keys []BatchKey) error {
	pf, ok := sto.(prefetcher)
	if !ok || len(keys) == 0 {
		return nil
	}
	var (
		order  []types.Address
		byAddr = make(map[types.Address][][]byte)
	)
	for _, k := range keys {
		if _, seen := byAddr[k.Address]; !seen {
			order = append(order, k.Address)
		}
		byAddr[k.Address] = append(byAddr[k.Address], common.CopyBytes(k.Slot[:]))
	}
	for _, addr := range order {
		if err := pf.Prefetch(addr, byAddr[addr]); err != nil {
			return err
		}
	}
	return nil
}
