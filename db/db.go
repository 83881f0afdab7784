// Package db defines a generic ordered key-value storage abstraction used
// throughout votegraph: the content-addressed object store (package store),
// branch/ref indexes, and any ancillary bookkeeping all sit on top of a
// db.Database rather than a specific storage engine.
package db

import "errors"

// Database backend type identifiers, selected via metadb.New.
const (
	TypePebble  = "pebble"
	TypeLevelDB = "leveldb"
	TypeMongo   = "mongo"
	TypeMemory  = "memory"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by WriteTx.Commit when an optimistic-concurrency
	// check fails: a key read during the transaction was modified by another
	// writer before this transaction committed.
	ErrConflict = errors.New("conflicting transaction")
)

// Options configures a Database backend.
type Options struct {
	// Path is the on-disk directory (pebble, leveldb) or, for mongo, the
	// connection URI. Ignored by the in-memory backend.
	Path string
	// MongoDatabase is the database name to use when Path is a mongo URI.
	MongoDatabase string
}

// Database is a minimal ordered key-value store. Keys are iterated in
// lexicographic byte order, and Iterate supports prefix scans, which is all
// the object store and branch index require.
type Database interface {
	// Get returns the value stored for key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback for every key with the given prefix, in
	// lexicographic order, stripping the prefix from the callback's key
	// argument. Iteration stops early if callback returns false.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
	// WriteTx starts a new read-write transaction.
	WriteTx() WriteTx
	// Compact requests the backend reclaim space from deleted/overwritten
	// keys. A no-op for backends that do not need it.
	Compact() error
	// Close releases any resources held by the backend.
	Close() error
}

// WriteTx is a read-write transaction. Writes are only visible to other
// readers after a successful Commit. Commit fails with ErrConflict if any
// key read or written during the transaction's lifetime was concurrently
// modified outside of it.
type WriteTx interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
	Set(key, value []byte) error
	Delete(key []byte) error
	// Apply copies every key/value written in other into this transaction.
	Apply(other WriteTx) error
	// Commit atomically applies all writes, or fails with ErrConflict.
	Commit() error
	// Discard abandons the transaction. Safe to call after Commit or
	// multiple times.
	Discard()
}

// UnwrapWriteTx returns the underlying concrete WriteTx implementation,
// unwrapping any prefixed/wrapping decorator. Backend implementations that
// need to type-assert another WriteTx (e.g. pebbledb's Apply, which needs
// the other transaction's underlying *pebble.Batch) call this first.
func UnwrapWriteTx(tx WriteTx) WriteTx {
	type unwrapper interface{ Unwrap() WriteTx }
	for {
		u, ok := tx.(unwrapper)
		if !ok {
			return tx
		}
		tx = u.Unwrap()
	}
}
