package bridge

import (
	"math/bits"

	"github.com/clydemeng/yulvm/core/state"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/clydemeng/yulvm/tracing"
	"github.com/ethereum/go-ethereum/common"
)

// host serves the host-dependent instructions of one execution. Storage
// writes are buffered in a pending overlay and only reach the backend when
// the run succeeds.
type host struct {
	addr  types.Address
	state *state.Manager
	store storage.Backend
	gas   *vm.GasTracker
	hooks *tracing.Hooks

	pending map[common.Hash]common.Hash
	order   []common.Hash // first-write order of pending slots
	logs    []types.LogEntry
}

func newHost(addr types.Address, st *state.Manager, sto storage.Backend, gas *vm.GasTracker, hooks *tracing.Hooks) *host {
	return &host{
		addr:    addr,
		state:   st,
		store:   sto,
		gas:     gas,
		hooks:   hooks,
		pending: make(map[common.Hash]common.Hash),
	}
}

// UseGas charges units of the named cost.
func (h *host) UseGas(name string, units uint64) error {
	hi, cost := bits.Mul64(h.gas.Cost(name), units)
	if hi != 0 {
		return &types.OutOfGasError{Used: h.gas.Used(), Limit: h.gas.Limit()}
	}
	return h.gas.ConsumeGas(name, &cost)
}

func (h *host) GasLeft() uint64 { return h.gas.Remaining() }

func (h *host) Balance(addr types.Address) (types.Balance, error) {
	if err := h.gas.ConsumeGas(vm.GasOpBalance, nil); err != nil {
		return 0, err
	}
	return h.state.GetBalance(addr), nil
}

// load reads a slot through the overlay without charging gas.
func (h *host) load(key common.Hash) (common.Hash, error) {
	if val, ok := h.pending[key]; ok {
		return val, nil
	}
	overlayMissCounter.Inc(1)
	enc, ok, err := h.store.Get(h.addr, key[:])
	if err != nil || !ok {
		return common.Hash{}, err
	}
	return common.BytesToHash(enc), nil
}

func (h *host) GetStorage(key common.Hash) (common.Hash, error) {
	if err := h.gas.ConsumeGas(vm.GasOpSload, nil); err != nil {
		return common.Hash{}, err
	}
	return h.load(key)
}

func (h *host) SetStorage(key, value common.Hash) error {
	if err := h.gas.ConsumeGas(vm.GasOpSstore, nil); err != nil {
		return err
	}
	prev, err := h.load(key)
	if err != nil {
		return err
	}
	if _, ok := h.pending[key]; !ok {
		h.order = append(h.order, key)
	}
	h.pending[key] = value
	h.state.RecordStorageWrite(h.addr, key, prev, value)
	return nil
}

func (h *host) EmitLog(topics []common.Hash, data []byte) error {
	if err := h.gas.ConsumeGas(vm.GasOpLog, nil); err != nil {
		return err
	}
	if err := h.UseGas(vm.GasOpLogTopic, uint64(len(topics))); err != nil {
		return err
	}
	if err := h.UseGas(vm.GasOpLogData, uint64(len(data))); err != nil {
		return err
	}
	entry := types.LogEntry{
		Address: h.addr,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    common.CopyBytes(data),
	}
	h.logs = append(h.logs, entry)
	if h.hooks != nil && h.hooks.OnLog != nil {
		h.hooks.OnLog(&entry)
	}
	return nil
}

func (h *host) Transfer(to types.Address, amount types.Balance) error {
	if err := h.gas.ConsumeGas(vm.GasOpTransfer, nil); err != nil {
		return err
	}
	return h.state.Transfer(h.addr, to, amount)
}

// flush commits the pending overlay to the backend in one batch, keeping
// first-write order. A failed batch leaves the backend untouched.
func (h *host) flush() error {
	if len(h.order) == 0 {
		return nil
	}
	writes := make([]storage.Write, len(h.order))
	for i, key := range h.order {
		val := h.pending[key]
		writes[i] = storage.Write{Key: key.Bytes(), Value: val.Bytes()}
	}
	if err := h.store.SetBatch(h.addr, writes); err != nil {
		return err
	}
	flushedSlotsCounter.Inc(int64(len(writes)))
	h.pending = make(map[common.Hash]common.Hash)
	h.order = nil
	return nil
}
