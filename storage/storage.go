// Package storage implements the contract storage backend: a key-value store
// keyed by (account, slot) with a read-through cache and access counters.
package storage

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Backend is the storage contract consumed by the runtime.
type Backend interface {
	Get(account types.Address, key []byte) ([]byte, bool, error)
	Set(account types.Address, key, value []byte) error
	SetBatch(account types.Address, writes []Write) error
	ReadCount() uint64
	WriteCount() uint64
}

// Write is one slot update of a batch.
type Write struct {
	Key   []byte
	Value []byte
}

// Backend kinds.
const (
	LevelDB = "leveldb"
	Pebble  = "pebble"
)

// Config selects and sizes the backend. An empty Path keeps everything in
// memory.
type Config struct {
	Backend string `toml:",omitempty"`
	Path    string `toml:",omitempty"`
	CacheMB int    `toml:",omitempty"`
}

// DefaultConfig is an in-memory leveldb store with a small cache.
var DefaultConfig = Config{
	Backend: LevelDB,
	CacheMB: 32,
}

// Manager implements Backend on top of goleveldb or pebble.
type Manager struct {
	kv    kvStore
	cache *fastcache.Cache

	reads  atomic.Uint64
	writes atomic.Uint64

	log log.Logger
}

// Open creates a storage manager for the given configuration.
func Open(cfg Config) (*Manager, error) {
	var (
		kv  kvStore
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", LevelDB:
		kv, err = openLevelDB(cfg.Path)
	case Pebble:
		kv, err = openPebble(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", types.ErrConfiguration, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	cacheMB := cfg.CacheMB
	if cacheMB <= 0 {
		cacheMB = DefaultConfig.CacheMB
	}
	m := &Manager{
		kv:    kv,
		cache: fastcache.New(cacheMB * 1024 * 1024),
		log:   log.New("storage", cfg.Backend, "path", cfg.Path),
	}
	m.log.Debug("Opened contract storage", "cache", common.StorageSize(cacheMB*1024*1024))
	return m, nil
}

// NewMemory opens an in-memory leveldb-backed manager.
func NewMemory() (*Manager, error) {
	return Open(DefaultConfig)
}

// slotPrefix is the uvarint length of the account identity followed by the
// identity itself, so distinct accounts never share a key prefix.
func slotPrefix(account types.Address) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(account))
	out = binary.AppendUvarint(out, uint64(len(account)))
	return append(out, account...)
}

// slotKey is the account prefix followed by the slot key.
func slotKey(account types.Address, key []byte) []byte {
	return append(slotPrefix(account), key...)
}

// Cache entries carry a presence marker so misses can be cached too.
const (
	cacheAbsent  byte = 0
	cachePresent byte = 1
)

func (m *Manager) load(k []byte) ([]byte, bool, error) {
	if enc, ok := m.cache.HasGet(nil, k); ok && len(enc) > 0 {
		cacheHitCounter.Inc(1)
		if enc[0] == cacheAbsent {
			return nil, false, nil
		}
		return enc[1:], true, nil
	}
	cacheMissCounter.Inc(1)
	value, ok, err := m.kv.get(k)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %x: %v", types.ErrStorage, k, err)
	}
	if ok {
		m.cache.Set(k, append([]byte{cachePresent}, value...))
	} else {
		m.cache.Set(k, []byte{cacheAbsent})
	}
	return value, ok, nil
}

// Get reads a slot. The boolean reports whether the slot was ever written.
func (m *Manager) Get(account types.Address, key []byte) ([]byte, bool, error) {
	m.reads.Add(1)
	readCounter.Inc(1)
	return m.load(slotKey(account, key))
}

// Set writes a slot through to the store and the cache.
func (m *Manager) Set(account types.Address, key, value []byte) error {
	k := slotKey(account, key)
	if err := m.kv.put(k, value); err != nil {
		return fmt.Errorf("%w: put %x: %v", types.ErrStorage, k, err)
	}
	m.cache.Set(k, append([]byte{cachePresent}, value...))
	m.writes.Add(1)
	writeCounter.Inc(1)
	return nil
}

// SetBatch writes all slots of account in one atomic backend write. Either
// every slot is stored or none is.
func (m *Manager) SetBatch(account types.Address, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	batch := make([]pair, len(writes))
	for i, w := range writes {
		batch[i] = pair{key: slotKey(account, w.Key), value: w.Value}
	}
	if err := m.kv.write(batch); err != nil {
		return fmt.Errorf("%w: batch write of %d slots for %s: %v", types.ErrStorage, len(batch), account, err)
	}
	for _, p := range batch {
		m.cache.Set(p.key, append([]byte{cachePresent}, p.value...))
	}
	n := uint64(len(batch))
	m.writes.Add(n)
	writeCounter.Inc(int64(n))
	return nil
}

// Prefetch warms the cache for the given slots. It does not count as reads.
func (m *Manager) Prefetch(account types.Address, keys [][]byte) error {
	for _, key := range keys {
		if _, _, err := m.load(slotKey(account, key)); err != nil {
			return err
		}
	}
	return nil
}

// ForEach visits every stored slot of account in key order until fn
// returns false.
func (m *Manager) ForEach(account types.Address, fn func(key, value []byte) bool) error {
	prefix := slotPrefix(account)
	err := m.kv.iterate(prefix, func(k, v []byte) bool {
		return fn(common.CopyBytes(k[len(prefix):]), common.CopyBytes(v))
	})
	if err != nil {
		return fmt.Errorf("%w: iterate %s: %v", types.ErrStorage, account, err)
	}
	return nil
}

// ReadCount is the number of Get calls served since Open.
func (m *Manager) ReadCount() uint64 { return m.reads.Load() }

// WriteCount is the number of slots written since Open, batches included.
func (m *Manager) WriteCount() uint64 { return m.writes.Load() }

// Close releases the cache and the underlying store.
func (m *Manager) Close() error {
	m.cache.Reset()
	if err := m.kv.close(); err != nil {
		return fmt.Errorf("%w: close: %v", types.ErrStorage, err)
	}
	return nil
}
