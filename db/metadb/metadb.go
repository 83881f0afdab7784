// Package metadb selects and constructs a concrete db.Database backend by
// name, so that callers (CLI config loaders, tests) don't need to import
// every backend package directly.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/db/goleveldb"
	"github.com/vocdoni/votegraph/db/inmemory"
	"github.com/vocdoni/votegraph/db/mongodb"
	"github.com/vocdoni/votegraph/db/pebbledb"
)

// New constructs a db.Database of the given type, rooted at dir (for
// embedded backends) or interpreted as a connection URI (for mongo).
func New(typ, dir string) (db.Database, error) {
	var database db.Database
	var err error
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		database, err = pebbledb.New(opts)
	case db.TypeLevelDB:
		database, err = goleveldb.New(opts)
	case db.TypeMongo:
		database, err = mongodb.New(opts)
	case db.TypeMemory:
		database, err = inmemory.New(opts)
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeMongo, db.TypeMemory)
	}
	if err != nil {
		return nil, err
	}
	return database, nil
}

// ForTest returns the backend type to use in tests, overridable via
// $VOTEGRAPH_DB_TYPE, defaulting to an embedded on-disk pebble instance so
// tests exercise the same code path production does.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("VOTEGRAPH_DB_TYPE"), db.TypePebble)
}

// NewTest returns a backend of ForTest()'s type rooted in a temp directory,
// closed automatically when the test finishes.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := database.Close(); err != nil {
			tb.Error(err)
		}
	})
	return database
}
