// Package badger provides a BadgerDB-backed implementation of the vault
// metadata store. All compound operations run inside a single Badger
// transaction, so the invariants the service layer relies on (refcount
// accuracy, one link per user and digest, folder name uniqueness) hold
// under concurrent access.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittovault/internal/logger"
	"github.com/marmos91/dittovault/pkg/vault"
)

// maxTxnRetries bounds the optimistic-concurrency retry loop. Badger
// aborts a transaction with ErrConflict when a concurrently committed
// transaction wrote a key this one read; retrying re-reads fresh state.
const maxTxnRetries = 10

// activitySeqKey names the Badger sequence used to order activity records.
const activitySeqKey = "seq:activity"

// BadgerStoreConfig holds the configuration for a BadgerDB metadata store.
type BadgerStoreConfig struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// InMemory runs the database entirely in memory. Useful for tests.
	InMemory bool

	// SyncWrites forces an fsync after every write. Slower but durable.
	SyncWrites bool
}

// BadgerStore implements vault.MetadataStore on top of BadgerDB.
type BadgerStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	owned bool
}

var _ vault.MetadataStore = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a BadgerDB database at the configured
// path and returns a metadata store backed by it.
func NewBadgerStore(cfg BadgerStoreConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	seq, err := db.GetSequence([]byte(activitySeqKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening activity sequence: %w", err)
	}

	logger.Debug("badger metadata store opened (path=%q, in_memory=%v)", cfg.Path, cfg.InMemory)
	return &BadgerStore{db: db, seq: seq, owned: true}, nil
}

// Close releases the activity sequence and closes the database.
func (s *BadgerStore) Close() error {
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			logger.Warn("releasing activity sequence: %v", err)
		}
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// update runs fn inside a read-write transaction, retrying on optimistic
// concurrency conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			logger.Debug("badger transaction conflict, retrying (attempt %d)", attempt+1)
			continue
		}
		return err
	}
	return &vault.StoreError{
		Code:    vault.CodeConflict,
		Message: "transaction conflict persisted across retries",
	}
}

// view runs fn inside a read-only transaction.
func (s *BadgerStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// encodeSeq renders a sequence number as fixed-width hex so that
// lexicographic key order matches numeric order.
func encodeSeq(seq uint64) string {
	return fmt.Sprintf("%016x", seq)
}

// ============================================================================
// Transaction helpers
// ============================================================================

// getJSON fetches the value at key and unmarshals it into out. Returns
// badger.ErrKeyNotFound unwrapped so callers can map it to domain errors.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals v and stores it at key.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling value for key %q: %w", key, err)
	}
	return txn.Set(key, data)
}

// getBytes fetches the raw value at key.
func getBytes(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// keysWithPrefix collects every key under prefix. Values are not loaded.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// forEachValue iterates every entry under prefix, handing the raw value
// to fn in key order.
func forEachValue(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			return fn(val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func notFoundErr(what, path string) *vault.StoreError {
	return &vault.StoreError{Code: vault.CodeNotFound, Message: what + " not found", Path: path}
}
