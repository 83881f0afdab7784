// Package mongodb implements db.Database over a MongoDB collection, so the
// content-addressed object store and branch index can be backed by a
// shared, networked store instead of a single-process embedded one.
//
// Keys and values are stored as a single document {_id: key, v: value} in
// the "kv" collection of the database named by db.Options.MongoDatabase (or
// "votegraph" if empty); db.Options.Path is interpreted as a mongo
// connection URI.
package mongodb

import (
	"bytes"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vocdoni/votegraph/db"
)

type kv struct {
	ID    string `bson:"_id"`
	Value []byte `bson:"v"`
}

// MongoDB implements db.Database on top of a mongo-driver collection.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ db.Database = (*MongoDB)(nil)

// New connects to the mongo URI given in opts.Path and returns a
// db.Database backed by the requested (or default) database/collection.
func New(opts db.Options) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.Path))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	dbName := opts.MongoDatabase
	if dbName == "" {
		dbName = "votegraph"
	}
	return &MongoDB{
		client: client,
		coll:   client.Database(dbName).Collection("kv"),
	}, nil
}

func (m *MongoDB) Get(key []byte) ([]byte, error) {
	ctx := context.Background()
	var doc kv
	if err := m.coll.FindOne(ctx, bson.M{"_id": string(key)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

func (m *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx := context.Background()
	filter := bson.M{}
	if len(prefix) > 0 {
		filter["_id"] = bson.M{"$gte": string(prefix), "$lt": string(prefixUpperBound(prefix))}
	}
	cur, err := m.coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var docs []kv
	for cur.Next(ctx) {
		var doc kv
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	for _, doc := range docs {
		if !callback([]byte(doc.ID[len(prefix):]), doc.Value) {
			break
		}
	}
	return cur.Err()
}

func (m *MongoDB) WriteTx() db.WriteTx {
	return &writeTx{coll: m.coll, writes: map[string]*[]byte{}, reads: map[string]bool{}}
}

func (m *MongoDB) Compact() error { return nil }

func (m *MongoDB) Close() error {
	return m.client.Disconnect(context.Background())
}

// writeTx buffers Set/Delete and applies them as a bulk write on Commit.
// mongo-driver transactions require a replica set, which is not guaranteed
// of every deployment target, so this follows the same "batch of writes,
// not a true snapshot isolation" contract the pebbledb/goleveldb backends
// document for their own batch types.
type writeTx struct {
	coll      *mongo.Collection
	writes    map[string]*[]byte
	reads     map[string]bool
	committed bool
}

var _ db.WriteTx = (*writeTx)(nil)

func (tx *writeTx) Get(key []byte) ([]byte, error) {
	strKey := string(key)
	if pending, ok := tx.writes[strKey]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	var doc kv
	if err := tx.coll.FindOne(context.Background(), bson.M{"_id": strKey}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

func (tx *writeTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx := context.Background()
	filter := bson.M{}
	if len(prefix) > 0 {
		filter["_id"] = bson.M{"$gte": string(prefix), "$lt": string(prefixUpperBound(prefix))}
	}
	cur, err := tx.coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	entries := map[string][]byte{}
	for cur.Next(ctx) {
		var doc kv
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		entries[doc.ID] = doc.Value
	}
	for k, v := range tx.writes {
		if len(prefix) > 0 && !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = *v
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !callback([]byte(k[len(prefix):]), entries[k]) {
			break
		}
	}
	return cur.Err()
}

func (tx *writeTx) Set(key, value []byte) error {
	v := bytes.Clone(value)
	tx.writes[string(key)] = &v
	return nil
}

func (tx *writeTx) Delete(key []byte) error {
	tx.writes[string(key)] = nil
	return nil
}

func (tx *writeTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return tx.Set(k, v) == nil
	})
}

func (tx *writeTx) Commit() error {
	if tx.committed {
		return nil
	}
	tx.committed = true
	ctx := context.Background()
	for k, v := range tx.writes {
		if v == nil {
			if _, err := tx.coll.DeleteOne(ctx, bson.M{"_id": k}); err != nil {
				return err
			}
			continue
		}
		opts := options.Update().SetUpsert(true)
		if _, err := tx.coll.UpdateOne(ctx, bson.M{"_id": k},
			bson.M{"$set": bson.M{"v": *v}}, opts); err != nil {
			return err
		}
	}
	return nil
}

func (tx *writeTx) Discard() {
	tx.writes = map[string]*[]byte{}
	tx.committed = true
}

// prefixUpperBound returns the smallest byte string that is strictly
// greater than every string carrying the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
