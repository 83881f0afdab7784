package service

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/address"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/db/inmemory"
	"github.com/vocdoni/votegraph/electionconfig"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/store/memstore"
)

func singleContestElection() fstest.MapFS {
	mapFile := func(contents string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(contents)} }
	return fstest.MapFS{
		"ggo.json": mapFile(`{"kind": "root", "subdir": "root", "address_map": {"kind": "implicit-by-hierarchy"}}`),
		"GGOs/MA/ggo.json": mapFile(`{
			"kind": "state", "subdir": "MA",
			"address_map": {"kind": "implicit-by-hierarchy"},
			"contests": [{"contest_name": "Governor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["A", "B"]}]
		}`),
		"GGOs/MA/GGOs/Cambridge/ggo.json": mapFile(`{
			"kind": "town", "subdir": "Cambridge",
			"address_map": {
				"kind": "unique-ballots",
				"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/", "/GGOs/MA"]}]
			},
			"contests": [{"contest_name": "Mayor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["X", "Y"]}]
		}`),
	}
}

func TestMockElectionCastsBallotsAndRunsJanitor(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	ec, err := electionconfig.Load(singleContestElection())
	c.Assert(err, qt.IsNil)

	cfg := config.Default()

	database, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	s := memstore.New(database)

	pipeline := acceptance.New(s, cfg)
	addr := address.Address{Number: "1", Street: "Main St", Town: "Cambridge", State: "MA"}
	me := NewMockElection(pipeline, ec, cfg, []address.Address{addr})
	me.Interval = 5 * time.Millisecond
	me.JanitorEvery = 2

	c.Assert(me.Start(ctx), qt.IsNil)
	c.Assert(me.Start(ctx), qt.ErrorMatches, "service already running")

	time.Sleep(60 * time.Millisecond)
	me.Stop()

	branches, err := s.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(branches) > 0, qt.IsTrue)
	for _, b := range branches {
		head, err := s.Head(ctx, b)
		c.Assert(err, qt.IsNil)
		c.Assert(head, qt.Not(qt.Equals), store.Digest(""))
	}
}

func TestMockElectionRejectsEmptyAddressList(t *testing.T) {
	c := qt.New(t)
	ec, err := electionconfig.Load(singleContestElection())
	c.Assert(err, qt.IsNil)
	cfg := config.Default()

	database, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	s := memstore.New(database)

	me := NewMockElection(acceptance.New(s, cfg), ec, cfg, nil)
	err = me.Start(context.Background())
	c.Assert(err, qt.ErrorMatches, "mock election: no addresses configured")
}
