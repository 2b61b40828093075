package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// pair is one key-value write of a batch.
type pair struct {
	key, value []byte
}

// kvStore is the raw key-value layer under the storage manager.
type kvStore interface {
	get(key []byte) ([]byte, bool, error)
	put(key, value []byte) error
	write(batch []pair) error
	iterate(prefix []byte, fn func(key, value []byte) bool) error
	close() error
}

type levelStore struct {
	db *leveldb.DB
}

// openLevelDB opens a goleveldb store at path, or an in-memory one when path
// is empty.
func openLevelDB(path string) (*levelStore, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &levelStore{db: db}, nil
}

func (s *levelStore) get(key []byte) ([]byte, bool, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *levelStore) put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// write commits the batch in a single leveldb write.
func (s *levelStore) write(batch []pair) error {
	b := new(leveldb.Batch)
	for _, p := range batch {
		b.Put(p.key, p.value)
	}
	return s.db.Write(b, nil)
}

func (s *levelStore) iterate(prefix []byte, fn func(key, value []byte) bool) error {
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

func (s *levelStore) close() error { return s.db.Close() }

type pebbleStore struct {
	db *pebble.DB
}

// openPebble opens a pebble store at path, or one backed by an in-memory
// filesystem when path is empty.
func openPebble(path string) (*pebbleStore, error) {
	opts := &pebble.Options{}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %q: %w", path, err)
	}
	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) get(key []byte) ([]byte, bool, error) {
	dat, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), dat...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *pebbleStore) put(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

func (s *pebbleStore) write(batch []pair) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, p := range batch {
		if err := b.Set(p.key, p.value, nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.NoSync)
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	limit := append([]byte(nil), prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		limit[i]++
		if limit[i] != 0 {
			return limit[:i+1]
		}
	}
	return nil
}

func (s *pebbleStore) iterate(prefix []byte, fn func(key, value []byte) bool) error {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Close()
}

func (s *pebbleStore) close() error { return s.db.Close() }
