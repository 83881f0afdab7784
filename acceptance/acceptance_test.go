package acceptance_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/db/inmemory"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/store/memstore"
)

func newStore(c *qt.C) store.Store {
	database, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	return memstore.New(database)
}

func twoContests() []contest.Contest {
	return []contest.Contest{
		{Uid: "0001", ContestName: "Governor", ContestType: contest.TypeCandidate, Tally: contest.TallyPlurality},
		{Uid: "0002", ContestName: "Mayor", ContestType: contest.TypeCandidate, Tally: contest.TallyPlurality},
	}
}

func TestAcceptReturnsOneReceiptPerContest(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newStore(c)
	cfg := config.Default()
	p := acceptance.New(s, cfg)

	receipts, err := p.Accept(ctx, twoContests())
	c.Assert(err, qt.IsNil)
	c.Assert(len(receipts), qt.Equals, 2)
	c.Assert(receipts[0].Uid, qt.Equals, "0001")
	c.Assert(receipts[1].Uid, qt.Equals, "0002")
	for _, r := range receipts {
		c.Assert(r.Digest, qt.Not(qt.Equals), store.Digest(""))
	}

	branches, err := s.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(branches), qt.Equals, 2)
}

// commitFailingStore wraps a real store.Store but fails Commit for any
// branch whose name contains failUidPrefix, simulating acceptOne failing
// partway through a multi-contest Accept call after an earlier contest's
// branch has already been created and committed.
type commitFailingStore struct {
	store.Store
	failUidPrefix string
}

func (s *commitFailingStore) Commit(ctx context.Context, branch string, tree store.Digest, parents []store.Digest, author, committer store.Signature, message string) (store.Digest, error) {
	if s.failUidPrefix != "" && strings.Contains(branch, s.failUidPrefix) {
		return "", fmt.Errorf("simulated commit failure")
	}
	return s.Store.Commit(ctx, branch, tree, parents, author, committer, message)
}

func TestAcceptFailsWholeBallotAndLeavesEarlierBranchOrphaned(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	inner := newStore(c)
	cfg := config.Default()

	// Contest 0002's commit always fails; 0001's must succeed first.
	failing := &commitFailingStore{Store: inner, failUidPrefix: "/0002/"}
	p := acceptance.New(failing, cfg)

	receipts, err := p.Accept(ctx, twoContests())
	c.Assert(err, qt.IsNotNil)
	c.Assert(receipts, qt.IsNil)

	var acceptErr *acceptance.AcceptError
	c.Assert(err, qt.ErrorAs, &acceptErr)
	c.Assert(acceptErr.Uid, qt.Equals, "0002")

	// 0001's branch was created and committed before 0002 failed, and
	// Accept's contract leaves both branches in place rather than rolling
	// anything back: 0001 with a real commit, 0002 stuck at CreateBranch
	// (its commit never landed).
	branches, err := inner.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(branches), qt.Equals, 2)

	var branch0001, branch0002 string
	for _, b := range branches {
		switch {
		case strings.Contains(b, "/0001/"):
			branch0001 = b
		case strings.Contains(b, "/0002/"):
			branch0002 = b
		}
	}
	c.Assert(branch0001, qt.Not(qt.Equals), "")
	c.Assert(branch0002, qt.Not(qt.Equals), "")

	plainPipeline := acceptance.New(inner, cfg)
	c.Assert(plainPipeline.IsOrphanedBranch(branch0001), qt.IsTrue)
	c.Assert(plainPipeline.IsOrphanedBranch(branch0002), qt.IsTrue)

	head0001, err := inner.Head(ctx, branch0001)
	c.Assert(err, qt.IsNil)
	c.Assert(head0001, qt.Not(qt.Equals), store.Digest(""))

	head0002, err := inner.Head(ctx, branch0002)
	c.Assert(err, qt.IsNil)
	c.Assert(head0002, qt.Equals, store.Digest(""))

	// Only 0002's branch is a true orphan (CreateBranch landed, Commit
	// never did): the janitor must sweep it and leave 0001's real commit
	// alone.
	swept, err := plainPipeline.Janitor(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(swept, qt.Equals, 1)

	branchesAfter, err := inner.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(branchesAfter, qt.DeepEquals, []string{branch0001})
}

func TestJanitorDeletesOnlyZeroDigestOrphans(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newStore(c)
	cfg := config.Default()
	p := acceptance.New(s, cfg)

	// A real acceptance branch (non-zero head): must survive.
	receipts, err := p.Accept(ctx, twoContests()[:1])
	c.Assert(err, qt.IsNil)
	c.Assert(len(receipts), qt.Equals, 1)

	// A branch created but never committed (zero head): must be swept.
	orphan := p.BranchName("0099", "deadbeef")
	c.Assert(s.CreateBranch(ctx, orphan, ""), qt.IsNil)

	// A branch outside the contest-file-subdir naming scheme: must survive
	// even though it is also at the zero digest.
	c.Assert(s.CreateBranch(ctx, "mainline", ""), qt.IsNil)

	branchesBefore, err := s.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(branchesBefore), qt.Equals, 3)

	swept, err := p.Janitor(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(swept, qt.Equals, 1)

	branchesAfter, err := s.ListBranches(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(branchesAfter), qt.Equals, 2)
	for _, b := range branchesAfter {
		c.Assert(b, qt.Not(qt.Equals), orphan)
	}
}

func TestJanitorNoopOnEmptyStore(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newStore(c)
	cfg := config.Default()
	p := acceptance.New(s, cfg)

	swept, err := p.Janitor(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(swept, qt.Equals, 0)
}
