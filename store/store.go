package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrBranchNotFound is returned when an operation names a branch that does
// not exist in the store (locally or, for Push/Pull, on the remote).
var ErrBranchNotFound = errors.New("store: branch not found")

// ErrObjectNotFound is returned by CatFile/Show for an unknown digest.
var ErrObjectNotFound = errors.New("store: object not found")

// ErrUpToDate is returned by Merge when the target branch already contains
// the source branch's head (nothing to merge).
var ErrUpToDate = errors.New("store: already up to date")

// DeterministicTimestamp is the fixed logical time every Commit call in this
// system uses for both author and committer signatures. Acceptance and merge
// never pass time.Now(): §8 invariant 6 (receipt idempotence) and §5's
// ordering guarantees both depend on commit digests being a pure function of
// content and parent linkage, not wall-clock time.
const DeterministicTimestamp int64 = 1577836800 // 2020-01-01T00:00:00Z

// MergeResult is the staged outcome of a no-fast-forward, no-commit merge: a
// candidate tree and parent set the caller may still edit (the merge
// controller overwrites the contest blob for unlinkability) before calling
// Commit.
type MergeResult struct {
	Tree    Digest
	Parents []Digest
}

// Store is the narrow object-store contract the core pipeline depends on
// (§6). One method per store verb, so a production implementation can shell
// out to a real version-control backend while tests and the in-process
// reference implementation (memstore) satisfy the same interface with no
// subprocess involved.
type Store interface {
	// Pull fetches remote updates into the local view of the store. A no-op
	// for a purely in-process store, but present so the contract models a
	// distributed backend honestly.
	Pull(ctx context.Context) error
	// Push publishes local commits on branch to the remote.
	Push(ctx context.Context, branch string) error

	// CreateBranch creates a new branch named name pointing at commit at.
	// If at is the zero Digest, the branch starts unparented (its first
	// commit will have no parents).
	CreateBranch(ctx context.Context, name string, at Digest) error
	// ListBranches returns every known local branch name.
	ListBranches(ctx context.Context) ([]string, error)
	// DeleteBranch removes a branch locally, and additionally from the
	// remote ref set when remote is true.
	DeleteBranch(ctx context.Context, name string, remote bool) error
	// Head returns the commit digest a branch currently points at.
	Head(ctx context.Context, branch string) (Digest, error)

	// Merge computes, but does not commit, the result of merging from's
	// head into into's head: a no-fast-forward, no-commit merge. Callers
	// finish the merge by calling Commit with the returned tree and
	// parents (after any content substitution) and then updating into's
	// ref via Commit's branch argument.
	Merge(ctx context.Context, into, from string) (MergeResult, error)

	// Commit writes a new commit object with the given tree, parents, and
	// deterministic author/committer metadata, and advances branch to
	// point at it. Returns the new commit's digest.
	Commit(ctx context.Context, branch string, tree Digest, parents []Digest, author, committer Signature, message string) (Digest, error)

	// CatFile returns the raw canonical encoding of the object at digest.
	CatFile(ctx context.Context, digest Digest) ([]byte, error)
	// Show decodes the object at digest, returning its type and decoded
	// value (Blob, Tree, or Commit).
	Show(ctx context.Context, digest Digest) (ObjectType, any, error)

	// PutBlob stores data as a Blob object and returns its digest, without
	// attaching it to any tree or branch. PutTree does the same for a Tree
	// built from entries (digests of blobs/trees the caller has already
	// stored).
	PutBlob(ctx context.Context, data []byte) (Digest, error)
	PutTree(ctx context.Context, entries []TreeEntry) (Digest, error)
}

// SingleFileTree builds (and stores, via store) a tree containing exactly
// one nested path, mirroring the CVR on-store layout
// "{subdir}/{uid}/cvr.json": each path segment becomes a tree with one
// entry pointing at the next, and the final segment is a blob.
func SingleFileTree(ctx context.Context, s Store, segments []string, data []byte) (Digest, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("store: SingleFileTree requires at least one path segment")
	}
	blobDigest, err := s.PutBlob(ctx, data)
	if err != nil {
		return "", fmt.Errorf("store: put blob: %w", err)
	}
	childDigest := blobDigest
	childType := TypeBlob
	for i := len(segments) - 1; i >= 0; i-- {
		treeDigest, err := s.PutTree(ctx, []TreeEntry{{Name: segments[i], Type: childType, Dig: childDigest}})
		if err != nil {
			return "", fmt.Errorf("store: put tree: %w", err)
		}
		childDigest = treeDigest
		childType = TypeTree
	}
	return childDigest, nil
}

// ReadFile walks a tree rooted at root following segments and returns the
// blob bytes at the leaf, the inverse of SingleFileTree.
func ReadFile(ctx context.Context, s Store, root Digest, segments []string) ([]byte, error) {
	current := root
	for i, seg := range segments {
		typ, obj, err := s.Show(ctx, current)
		if err != nil {
			return nil, err
		}
		if typ != TypeTree {
			return nil, fmt.Errorf("store: path segment %d (%q): expected tree, got %s", i, seg, typ)
		}
		tree := obj.(Tree)
		var next Digest
		found := false
		for _, e := range tree.Entries {
			if e.Name == seg {
				next = e.Dig
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("store: path segment %d (%q) not found", i, seg)
		}
		current = next
	}
	typ, obj, err := s.Show(ctx, current)
	if err != nil {
		return nil, err
	}
	if typ != TypeBlob {
		return nil, fmt.Errorf("store: leaf object is not a blob (got %s)", typ)
	}
	return obj.(Blob).Data, nil
}
