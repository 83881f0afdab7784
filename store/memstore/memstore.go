// Package memstore implements store.Store directly over a db.Database,
// playing the role the subprocess-backed version-control shell-out plays in
// production: the object table is content-addressed key/value (digest →
// canonical encoding) and branches are named refs, both namespaced in the
// same underlying key-value store so the whole thing persists through any
// db.Database backend (pebble, leveldb, mongo, in-memory).
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/vocdoni/votegraph/db"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/store"
)

var (
	objectPrefix = []byte("obj/")
	refPrefix    = []byte("refs/")
)

// Store implements store.Store over a db.Database. Push/Pull are no-ops: a
// single db.Database instance already is the "remote" every local operation
// reads and writes, so there is no staging/remote split to synchronize. A
// production deployment that fronts a networked db.Database backend (mongo)
// gets the same effect without any extra plumbing.
type Store struct {
	database db.Database
}

var _ store.Store = (*Store)(nil)

// New returns a Store backed by database.
func New(database db.Database) *Store {
	return &Store{database: database}
}

func objectKey(d store.Digest) []byte {
	return append(append([]byte{}, objectPrefix...), []byte(d)...)
}

func refKey(branch string) []byte {
	return append(append([]byte{}, refPrefix...), []byte(branch)...)
}

func (s *Store) putObject(typ store.ObjectType, digest store.Digest, data []byte) error {
	tx := s.database.WriteTx()
	defer tx.Discard()
	if err := tx.Set(objectKey(digest), data); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) PutBlob(_ context.Context, data []byte) (store.Digest, error) {
	digest, encoded, err := store.HashBlob(store.Blob{Data: data})
	if err != nil {
		return "", err
	}
	if err := s.putObject(store.TypeBlob, digest, encoded); err != nil {
		return "", fmt.Errorf("memstore: put blob: %w", err)
	}
	return digest, nil
}

func (s *Store) PutTree(_ context.Context, entries []store.TreeEntry) (store.Digest, error) {
	digest, encoded, err := store.HashTree(store.Tree{Entries: entries})
	if err != nil {
		return "", err
	}
	if err := s.putObject(store.TypeTree, digest, encoded); err != nil {
		return "", fmt.Errorf("memstore: put tree: %w", err)
	}
	return digest, nil
}

func (s *Store) putCommit(c store.Commit) (store.Digest, error) {
	digest, encoded, err := store.HashCommit(c)
	if err != nil {
		return "", err
	}
	if err := s.putObject(store.TypeCommit, digest, encoded); err != nil {
		return "", fmt.Errorf("memstore: put commit: %w", err)
	}
	return digest, nil
}

func (s *Store) CatFile(_ context.Context, digest store.Digest) ([]byte, error) {
	data, err := s.database.Get(objectKey(digest))
	if err == db.ErrKeyNotFound {
		return nil, store.ErrObjectNotFound
	}
	return data, err
}

func (s *Store) Show(ctx context.Context, digest store.Digest) (store.ObjectType, any, error) {
	data, err := s.CatFile(ctx, digest)
	if err != nil {
		return "", nil, err
	}
	typ, err := store.PeekType(data)
	if err != nil {
		return "", nil, err
	}
	switch typ {
	case store.TypeBlob:
		b, err := store.DecodeBlob(data)
		return typ, b, err
	case store.TypeTree:
		t, err := store.DecodeTree(data)
		return typ, t, err
	case store.TypeCommit:
		c, err := store.DecodeCommit(data)
		return typ, c, err
	default:
		return "", nil, fmt.Errorf("memstore: unknown object type %q", typ)
	}
}

func (s *Store) Head(_ context.Context, branch string) (store.Digest, error) {
	data, err := s.database.Get(refKey(branch))
	if err == db.ErrKeyNotFound {
		return "", store.ErrBranchNotFound
	}
	if err != nil {
		return "", err
	}
	return store.Digest(data), nil
}

func (s *Store) ListBranches(_ context.Context) ([]string, error) {
	var names []string
	err := s.database.Iterate(refPrefix, func(key, _ []byte) bool {
		names = append(names, string(key))
		return true
	})
	sort.Strings(names)
	return names, err
}

func (s *Store) CreateBranch(_ context.Context, name string, at store.Digest) error {
	tx := s.database.WriteTx()
	defer tx.Discard()
	if _, err := tx.Get(refKey(name)); err == nil {
		return fmt.Errorf("memstore: branch %q already exists", name)
	}
	if err := tx.Set(refKey(name), []byte(at)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteBranch(_ context.Context, name string, remote bool) error {
	tx := s.database.WriteTx()
	defer tx.Discard()
	if err := tx.Delete(refKey(name)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if remote {
		log.Debugw("memstore: deleted branch from remote (single shared store, no-op beyond local delete)", "branch", name)
	}
	return nil
}

func (s *Store) Pull(_ context.Context) error { return nil }

func (s *Store) Push(_ context.Context, branch string) error {
	if _, err := s.Head(context.Background(), branch); err != nil {
		return fmt.Errorf("memstore: push %q: %w", branch, err)
	}
	return nil
}

// Merge computes the tree that would result from merging from's head into
// into's head, without committing or moving any ref. Trees are merged
// recursively by path name: entries unique to one side are kept as-is;
// entries present on both sides as subtrees are merged recursively; entries
// that collide as blobs (or mismatched types) resolve in favor of from's
// version, since a merge is always absorbing a newly accepted branch's
// content into mainline.
func (s *Store) Merge(ctx context.Context, into, from string) (store.MergeResult, error) {
	intoHead, err := s.Head(ctx, into)
	if err != nil && err != store.ErrBranchNotFound {
		return store.MergeResult{}, err
	}
	fromHead, err := s.Head(ctx, from)
	if err != nil {
		return store.MergeResult{}, fmt.Errorf("memstore: merge source %q: %w", from, err)
	}

	parents := []store.Digest{}
	if !intoHead.IsZero() {
		parents = append(parents, intoHead)
	}
	parents = append(parents, fromHead)

	if intoHead == fromHead {
		return store.MergeResult{}, store.ErrUpToDate
	}

	var intoTree, fromTree store.Digest
	if !intoHead.IsZero() {
		_, obj, err := s.Show(ctx, intoHead)
		if err != nil {
			return store.MergeResult{}, err
		}
		intoTree = obj.(store.Commit).Tree
	}
	_, obj, err := s.Show(ctx, fromHead)
	if err != nil {
		return store.MergeResult{}, err
	}
	fromTree = obj.(store.Commit).Tree

	merged, err := s.mergeTrees(ctx, intoTree, fromTree)
	if err != nil {
		return store.MergeResult{}, fmt.Errorf("memstore: merge trees: %w", err)
	}
	return store.MergeResult{Tree: merged, Parents: parents}, nil
}

func (s *Store) mergeTrees(ctx context.Context, into, from store.Digest) (store.Digest, error) {
	if into.IsZero() {
		return from, nil
	}
	if from.IsZero() || into == from {
		return into, nil
	}

	intoTree, err := s.getTree(ctx, into)
	if err != nil {
		return "", err
	}
	fromTree, err := s.getTree(ctx, from)
	if err != nil {
		return "", err
	}

	byName := make(map[string]store.TreeEntry, len(intoTree.Entries))
	for _, e := range intoTree.Entries {
		byName[e.Name] = e
	}
	for _, fe := range fromTree.Entries {
		ie, exists := byName[fe.Name]
		switch {
		case !exists:
			byName[fe.Name] = fe
		case exists && ie.Type == store.TypeTree && fe.Type == store.TypeTree:
			mergedSub, err := s.mergeTrees(ctx, ie.Dig, fe.Dig)
			if err != nil {
				return "", err
			}
			byName[fe.Name] = store.TreeEntry{Name: fe.Name, Type: store.TypeTree, Dig: mergedSub}
		default:
			byName[fe.Name] = fe
		}
	}

	entries := make([]store.TreeEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	digest, encoded, err := store.HashTree(store.Tree{Entries: entries})
	if err != nil {
		return "", err
	}
	if err := s.putObject(store.TypeTree, digest, encoded); err != nil {
		return "", err
	}
	return digest, nil
}

func (s *Store) getTree(ctx context.Context, digest store.Digest) (store.Tree, error) {
	typ, obj, err := s.Show(ctx, digest)
	if err != nil {
		return store.Tree{}, err
	}
	if typ != store.TypeTree {
		return store.Tree{}, fmt.Errorf("memstore: %s is not a tree (got %s)", digest, typ)
	}
	return obj.(store.Tree), nil
}

func (s *Store) Commit(_ context.Context, branch string, tree store.Digest, parents []store.Digest, author, committer store.Signature, message string) (store.Digest, error) {
	c := store.Commit{
		Tree:      tree,
		Parents:   append([]store.Digest{}, parents...),
		Author:    author,
		Committer: committer,
		Message:   message,
	}
	digest, err := s.putCommit(c)
	if err != nil {
		return "", err
	}

	tx := s.database.WriteTx()
	defer tx.Discard()
	if err := tx.Set(refKey(branch), []byte(digest)); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("memstore: advance ref %q: %w", branch, err)
	}
	return digest, nil
}
