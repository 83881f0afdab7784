// Package goleveldb implements db.Database on top of syndtr/goleveldb, a
// second embedded on-disk backend alongside pebbledb.
package goleveldb

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vocdoni/votegraph/db"
)

// LevelDB implements db.Database using syndtr/goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

var _ db.Database = (*LevelDB)(nil)

// New opens (creating if necessary) a goleveldb database at opts.Path.
func New(opts db.Options) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(opts.Path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: ldb}, nil
}

func (d *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if errors.IsCorrupted(err) {
		return nil, err
	}
	if err == leveldb.ErrNotFound {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v), nil
}

func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		k := bytes.Clone(iter.Key()[len(prefix):])
		v := bytes.Clone(iter.Value())
		if !callback(k, v) {
			break
		}
	}
	return iter.Error()
}

func (d *LevelDB) WriteTx() db.WriteTx {
	return &writeTx{db: d.db, batch: new(leveldb.Batch), reads: map[string][]byte{}}
}

func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

func (d *LevelDB) Close() error {
	return d.db.Close()
}

// writeTx buffers Set/Delete into a leveldb.Batch and applies it atomically
// on Commit. goleveldb batches are not snapshot-isolated transactions, so
// Get reads straight through to the underlying database, matching the
// pebbledb backend's same documented limitation.
type writeTx struct {
	db        *leveldb.DB
	batch     *leveldb.Batch
	reads     map[string][]byte
	committed bool
}

var _ db.WriteTx = (*writeTx)(nil)

func (tx *writeTx) Get(key []byte) ([]byte, error) {
	v, err := tx.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v), nil
}

func (tx *writeTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := tx.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		k := bytes.Clone(iter.Key()[len(prefix):])
		v := bytes.Clone(iter.Value())
		if !callback(k, v) {
			break
		}
	}
	return iter.Error()
}

func (tx *writeTx) Set(key, value []byte) error {
	tx.batch.Put(key, value)
	return nil
}

func (tx *writeTx) Delete(key []byte) error {
	tx.batch.Delete(key)
	return nil
}

func (tx *writeTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		tx.batch.Put(k, v)
		return true
	})
}

func (tx *writeTx) Commit() error {
	if tx.committed {
		return nil
	}
	tx.committed = true
	return tx.db.Write(tx.batch, nil)
}

func (tx *writeTx) Discard() {
	tx.batch.Reset()
	tx.committed = true
}
