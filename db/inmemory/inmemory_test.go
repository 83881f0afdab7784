package inmemory

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/db"
)

func TestGetSetDelete(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{})
	c.Assert(err, qt.IsNil)

	_, err = database.Get([]byte("missing"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)

	tx := database.WriteTx()
	c.Assert(tx.Set([]byte("a"), []byte("1")), qt.IsNil)
	c.Assert(tx.Commit(), qt.IsNil)

	v, err := database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("1"))
}

func TestWriteTxConflict(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{})
	c.Assert(err, qt.IsNil)

	tx1 := database.WriteTx()
	tx2 := database.WriteTx()

	_, err = tx1.Get([]byte("k"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)
	_, err = tx2.Get([]byte("k"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)

	c.Assert(tx1.Set([]byte("k"), []byte("from-tx1")), qt.IsNil)
	c.Assert(tx1.Commit(), qt.IsNil)

	c.Assert(tx2.Set([]byte("k"), []byte("from-tx2")), qt.IsNil)
	c.Assert(tx2.Commit(), qt.Equals, db.ErrConflict)

	v, err := database.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("from-tx1"))
}

func TestIteratePrefix(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{})
	c.Assert(err, qt.IsNil)

	tx := database.WriteTx()
	c.Assert(tx.Set([]byte("b/00/x"), []byte("1")), qt.IsNil)
	c.Assert(tx.Set([]byte("b/01/y"), []byte("2")), qt.IsNil)
	c.Assert(tx.Set([]byte("c/00/z"), []byte("3")), qt.IsNil)
	c.Assert(tx.Commit(), qt.IsNil)

	var got [][]byte
	c.Assert(database.Iterate([]byte("b/"), func(k, v []byte) bool {
		got = append(got, k)
		return true
	}), qt.IsNil)
	c.Assert(got, qt.DeepEquals, [][]byte{[]byte("00/x"), []byte("01/y")})
}
