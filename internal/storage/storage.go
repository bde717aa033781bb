package storage

import (
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// Reader is the read side shared by Storage and Batch.
type Reader interface {
	// Get returns the value for key, or nil if the key does not exist.
	Get(key []byte) ([]byte, error)
	// IteratePrefix calls fn for each key-value pair under prefix in key order.
	IteratePrefix(prefix []byte, fn func(key, value []byte) error) error
}

// Storage is the ledger's key-value store backed by Pebble.
// All writes go through batches, which commit with Sync. A background
// goroutine also syncs the WAL periodically.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// New opens a Storage instance at the given path.
func New(path string) (*Storage, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(16 << 20), // 16 MB cache
		MemTableSize:                8 << 20,                   // 8 MB memtable
		MemTableStopWritesThreshold: 2,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop()

	return s, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Iterate calls fn for each key-value pair in the database.
// If fn returns an error, iteration stops and the error is returned.
// Keys are visited in lexicographic order.
func (s *Storage) Iterate(fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}

	return walk(iter, fn)
}

// IteratePrefix calls fn for each key-value pair with the given prefix.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(prefixOptions(prefix))
	if err != nil {
		return err
	}

	return walk(iter, fn)
}

// IterateRange calls fn for each key-value pair in [lower, upper).
// A nil upper leaves the range unbounded above.
func (s *Storage) IterateRange(lower, upper []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}

	return walk(iter, fn)
}

// NewBatch opens an indexed batch. Reads through the batch observe its own
// pending writes on top of committed state; nothing written to the batch is
// visible to other readers until Commit.
func (s *Storage) NewBatch() *Batch {
	return &Batch{b: s.db.NewIndexedBatch()}
}

// Close stops the sync goroutine and closes the database.
// It performs a final sync before closing to ensure durability.
func (s *Storage) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.sync(); err != nil {
		return err
	}

	return s.db.Close()
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(defaultSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Storage) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}

// Batch is an atomic write set with read-your-writes semantics.
// A Batch must be either committed or closed; it is not safe for concurrent use.
type Batch struct {
	b    *pebble.Batch
	done bool
}

// Get returns the value for key as seen by the batch, or nil if absent.
func (b *Batch) Get(key []byte) ([]byte, error) {
	value, closer, err := b.b.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Set stages a write.
func (b *Batch) Set(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

// Delete stages a deletion.
func (b *Batch) Delete(key []byte) error {
	return b.b.Delete(key, nil)
}

// IteratePrefix walks keys under prefix, including pending writes.
func (b *Batch) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := b.b.NewIter(prefixOptions(prefix))
	if err != nil {
		return err
	}

	return walk(iter, fn)
}

// Commit applies all staged writes atomically and syncs them.
// The batch cannot be used afterwards.
func (b *Batch) Commit() error {
	if b.done {
		return pebble.ErrClosed
	}
	b.done = true

	defer b.b.Close()

	return b.b.Commit(pebble.Sync)
}

// Close discards the batch if it was not committed. Safe to call twice.
func (b *Batch) Close() {
	if b.done {
		return
	}
	b.done = true

	_ = b.b.Close()
}

// walk drains an iterator through fn and closes it.
func walk(iter *pebble.Iterator, fn func(key, value []byte) error) error {
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixOptions bounds an iterator to keys starting with prefix.
func prefixOptions(prefix []byte) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixUpperBound(prefix),
	}
}

// PrefixUpperBound returns the exclusive upper bound of keys starting with prefix.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func PrefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}
