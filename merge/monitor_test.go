package merge_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/merge"
	"github.com/vocdoni/votegraph/store"
)

func seededController(c *qt.C) (*merge.Controller, store.Store) {
	ctx := context.Background()
	s := newStore(c)

	mainTree, err := store.SingleFileTree(ctx, s, []string{"README"}, []byte("root"))
	c.Assert(err, qt.IsNil)
	sig := store.Signature{Name: "system", Email: "system@votegraph", Time: store.DeterministicTimestamp}
	c.Assert(s.CreateBranch(ctx, "mainline", ""), qt.IsNil)
	_, err = s.Commit(ctx, "mainline", mainTree, nil, sig, sig, "init")
	c.Assert(err, qt.IsNil)

	seedBranches(c, s, "0001", 5)

	cfg := config.Default()
	cfg.ContestFileSubdir = "CVRs"
	return merge.New(s, cfg, "mainline"), s
}

func TestMonitorOndemandSweepMerges(t *testing.T) {
	c := qt.New(t)
	ctrl, s := seededController(c)
	mon := merge.NewMonitor(ctrl, merge.Params{MinimumCastCache: 100, Flush: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx, 0) // interval 0: only on-demand sweeps run
	defer mon.Close()

	mon.OndemandCh <- struct{}{}

	c.Assert(waitForOnlyMainline(ctx, s), qt.IsTrue)
}

func TestMonitorTickerSweepsPeriodically(t *testing.T) {
	c := qt.New(t)
	ctrl, s := seededController(c)
	mon := merge.NewMonitor(ctrl, merge.Params{MinimumCastCache: 100, Flush: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx, 10*time.Millisecond)
	defer mon.Close()

	c.Assert(waitForOnlyMainline(ctx, s), qt.IsTrue)
}

func TestMonitorCloseStopsGoroutines(t *testing.T) {
	c := qt.New(t)
	ctrl, _ := seededController(c)
	mon := merge.NewMonitor(ctrl, merge.Params{MinimumCastCache: 100, Flush: true})

	mon.Start(context.Background(), 10*time.Millisecond)
	mon.Close()

	// Sending on-demand after Close must not block or panic: the consuming
	// goroutine has already exited, but the buffered channel still accepts.
	mon.OndemandCh <- struct{}{}
}

// waitForOnlyMainline polls s.ListBranches until every per-contest branch
// the monitor's sweep merges away is gone, leaving only mainline, or the
// deadline passes.
func waitForOnlyMainline(ctx context.Context, s store.Store) bool {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
			branches, err := s.ListBranches(ctx)
			if err == nil && len(branches) == 1 {
				return true
			}
		}
	}
}
