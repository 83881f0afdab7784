package store

import "context"

// CommitNode pairs a commit's digest with its decoded object, returned by
// WalkAncestors.
type CommitNode struct {
	Digest Digest
	Commit Commit
}

// WalkAncestors returns every commit reachable from head, including head
// itself, each visited exactly once. Order is not guaranteed to be a strict
// topological sort, only that a commit is never skipped because one of its
// parents hasn't been visited; callers that need one pass per contest uid
// (the tally engine) don't depend on ordering beyond "all ancestors are
// present".
//
// This is how real content survives a merge controller sweep even after the
// contributing branch ref is deleted (§4.F): deleting a ref only removes the
// named pointer, never the commit objects it pointed at, and those objects
// remain reachable as parents of the merge commit that absorbed them.
func WalkAncestors(ctx context.Context, s Store, head Digest) ([]CommitNode, error) {
	if head.IsZero() {
		return nil, nil
	}
	seen := make(map[Digest]bool)
	var out []CommitNode
	queue := []Digest{head}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if seen[d] || d.IsZero() {
			continue
		}
		seen[d] = true
		typ, obj, err := s.Show(ctx, d)
		if err != nil {
			return nil, err
		}
		if typ != TypeCommit {
			continue
		}
		c := obj.(Commit)
		out = append(out, CommitNode{Digest: d, Commit: c})
		queue = append(queue, c.Parents...)
	}
	return out, nil
}

// IsMergeCommit reports whether c has more than one parent, the marker this
// system uses to distinguish a merge-controller commit (whose tree carries a
// deliberately meaningless placeholder blob, §4.F) from an original
// acceptance-pipeline commit (whose tree carries the real CVR).
func IsMergeCommit(c Commit) bool {
	return len(c.Parents) > 1
}
