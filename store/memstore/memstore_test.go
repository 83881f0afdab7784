package memstore_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/db/inmemory"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/store/memstore"
)

func newStore(c *qt.C) *memstore.Store {
	database, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	return memstore.New(database)
}

func sig(name string) store.Signature {
	return store.Signature{Name: name, Email: name + "@votegraph.test", Time: store.DeterministicTimestamp}
}

func TestCreateBranchAndCommit(t *testing.T) {
	ctx := context.Background()
	c := qt.New(t)
	s := newStore(c)

	tree, err := store.SingleFileTree(ctx, s, []string{"town/0001", "cvr.json"}, []byte(`{"uid":"0001"}`))
	c.Assert(err, qt.IsNil)

	c.Assert(s.CreateBranch(ctx, "contest/0001/nonceA", ""), qt.IsNil)
	digest, err := s.Commit(ctx, "contest/0001/nonceA", tree, nil, sig("voter"), sig("voter"), "cast 0001")
	c.Assert(err, qt.IsNil)
	c.Assert(digest, qt.Not(qt.Equals), store.Digest(""))

	head, err := s.Head(ctx, "contest/0001/nonceA")
	c.Assert(err, qt.IsNil)
	c.Assert(head, qt.Equals, digest)

	got, err := store.ReadFile(ctx, s, tree, []string{"town/0001", "cvr.json"})
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, `{"uid":"0001"}`)
}

func TestMergeNoFastForwardNoCommit(t *testing.T) {
	ctx := context.Background()
	c := qt.New(t)
	s := newStore(c)

	mainTree, err := store.SingleFileTree(ctx, s, []string{"README"}, []byte("root"))
	c.Assert(err, qt.IsNil)
	c.Assert(s.CreateBranch(ctx, "mainline", ""), qt.IsNil)
	_, err = s.Commit(ctx, "mainline", mainTree, nil, sig("system"), sig("system"), "init")
	c.Assert(err, qt.IsNil)

	branchTree, err := store.SingleFileTree(ctx, s, []string{"town/0001", "cvr.json"}, []byte(`{"uid":"0001"}`))
	c.Assert(err, qt.IsNil)
	c.Assert(s.CreateBranch(ctx, "contest/0001/nonceA", ""), qt.IsNil)
	branchCommit, err := s.Commit(ctx, "contest/0001/nonceA", branchTree, nil, sig("voter"), sig("voter"), "cast 0001")
	c.Assert(err, qt.IsNil)

	result, err := s.Merge(ctx, "mainline", "contest/0001/nonceA")
	c.Assert(err, qt.IsNil)
	c.Assert(len(result.Parents), qt.Equals, 2)

	mainHeadBefore, err := s.Head(ctx, "mainline")
	c.Assert(err, qt.IsNil)

	mergeCommit, err := s.Commit(ctx, "mainline", result.Tree, result.Parents, sig("system"), sig("system"), "merge 0001")
	c.Assert(err, qt.IsNil)
	c.Assert(mergeCommit, qt.Not(qt.Equals), mainHeadBefore)

	nodes, err := store.WalkAncestors(ctx, s, mergeCommit)
	c.Assert(err, qt.IsNil)
	c.Assert(len(nodes), qt.Equals, 3) // merge + mainline-init + branch commit

	foundBranchCommit := false
	for _, n := range nodes {
		if n.Digest == branchCommit {
			foundBranchCommit = true
		}
	}
	c.Assert(foundBranchCommit, qt.IsTrue)
}
