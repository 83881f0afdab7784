package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/db/inmemory"
	"github.com/vocdoni/votegraph/merge"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/store/memstore"
)

func seedOutstandingBranches(c *qt.C, s store.Store, uid string, n int) {
	ctx := context.Background()
	sig := store.Signature{Name: "voter", Email: "voter@votegraph", Time: store.DeterministicTimestamp}
	for i := 0; i < n; i++ {
		branch := fmt.Sprintf("CVRs/%s/nonce%02d", uid, i)
		c.Assert(s.CreateBranch(ctx, branch, ""), qt.IsNil)
		tree, err := store.SingleFileTree(ctx, s, []string{"CVRs", uid, "cvr.json"}, []byte(fmt.Sprintf(`{"uid":"%s","ballot":%d}`, uid, i)))
		c.Assert(err, qt.IsNil)
		_, err = s.Commit(ctx, branch, tree, nil, sig, sig, "cast")
		c.Assert(err, qt.IsNil)
	}
}

func TestMergeMonitorServiceStartStopSweepsOutstandingBranches(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	database, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	s := memstore.New(database)

	mainTree, err := store.SingleFileTree(ctx, s, []string{"README"}, []byte("root"))
	c.Assert(err, qt.IsNil)
	sig := store.Signature{Name: "system", Email: "system@votegraph", Time: store.DeterministicTimestamp}
	c.Assert(s.CreateBranch(ctx, "mainline", ""), qt.IsNil)
	_, err = s.Commit(ctx, "mainline", mainTree, nil, sig, sig, "init")
	c.Assert(err, qt.IsNil)

	seedOutstandingBranches(c, s, "0001", 5)

	cfg := config.Default()
	cfg.ContestFileSubdir = "CVRs"
	ctrl := merge.New(s, cfg, "mainline")
	mms := NewMergeMonitor(ctrl, merge.Params{MinimumCastCache: 100, Flush: true})

	c.Assert(mms.Start(ctx, 5*time.Millisecond), qt.IsNil)
	c.Assert(mms.Start(ctx, 5*time.Millisecond), qt.ErrorMatches, "service already running")

	deadline := time.After(2 * time.Second)
	for {
		branches, err := s.ListBranches(ctx)
		c.Assert(err, qt.IsNil)
		if len(branches) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("merge monitor service never merged outstanding branches into mainline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mms.Stop()
	mms.Stop() // idempotent
}
