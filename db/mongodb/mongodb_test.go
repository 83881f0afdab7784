package mongodb

import (
	"os"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/db"
)

// These tests require a live MongoDB instance reachable at $VOTEGRAPH_MONGO_URI;
// they are skipped otherwise since the object store's default backend is
// pebbledb/inmemory and mongo is offered as an optional networked backend.
func testURI(t *testing.T) string {
	uri := os.Getenv("VOTEGRAPH_MONGO_URI")
	if uri == "" {
		t.Skip("VOTEGRAPH_MONGO_URI not set, skipping mongodb integration test")
	}
	return uri
}

func TestGetSetDelete(t *testing.T) {
	c := qt.New(t)
	uri := testURI(t)

	database, err := New(db.Options{Path: uri, MongoDatabase: "votegraph_test"})
	c.Assert(err, qt.IsNil)
	defer database.Close()

	tx := database.WriteTx()
	c.Assert(tx.Set([]byte("a"), []byte("1")), qt.IsNil)
	c.Assert(tx.Commit(), qt.IsNil)

	v, err := database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("1"))

	tx2 := database.WriteTx()
	c.Assert(tx2.Delete([]byte("a")), qt.IsNil)
	c.Assert(tx2.Commit(), qt.IsNil)

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)
}
