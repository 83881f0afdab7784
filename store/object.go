// Package store implements the content-addressed commit-graph object store
// that backs cast vote record history: blobs, trees and commits are content
// addressed by a sha256 digest over a canonical CBOR encoding, and branches
// are named refs pointing at a commit digest, mirroring a distributed
// version-control repository closely enough that the acceptance and merge
// pipelines can reason about it in those terms (push, merge, cat-file).
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// ObjectType identifies the kind of object a Digest refers to.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Digest is the content address of an object: hex-encoded sha256 over the
// object's canonical encoding.
type Digest string

// String implements fmt.Stringer.
func (d Digest) String() string { return string(d) }

// IsZero reports whether d is the empty digest.
func (d Digest) IsZero() bool { return d == "" }

// Blob is a raw byte payload, normally a single CVR JSON document.
type Blob struct {
	Data []byte `cbor:"data"`
}

// TreeEntry is one named child of a Tree, either a Blob or a nested Tree.
type TreeEntry struct {
	Name string     `cbor:"name"`
	Type ObjectType `cbor:"type"`
	Dig  Digest     `cbor:"digest"`
}

// Tree is a sorted list of named entries, mirroring a directory. Paths such
// as "{contest-branch}/{uid}/cvr.json" are represented as nested trees whose
// leaf entries are blobs.
type Tree struct {
	Entries []TreeEntry `cbor:"entries"`
}

// sortedEntries returns a copy of t.Entries sorted by Name, the canonical
// order used for both serialization and digest computation.
func (t Tree) sortedEntries() []TreeEntry {
	out := make([]TreeEntry, len(t.Entries))
	copy(out, t.Entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Signature identifies the author or committer of a Commit. Time is a fixed
// logical timestamp rather than wall-clock time: the acceptance pipeline
// always supplies DeterministicTimestamp so that two otherwise-identical
// CVRs commit to the same digest regardless of when they were processed.
type Signature struct {
	Name  string `cbor:"name"`
	Email string `cbor:"email"`
	Time  int64  `cbor:"time"`
}

// Commit is a point in the commit graph: a tree root, zero or more parents,
// and author/committer metadata.
type Commit struct {
	Tree      Digest    `cbor:"tree"`
	Parents   []Digest  `cbor:"parents"`
	Author    Signature `cbor:"author"`
	Committer Signature `cbor:"committer"`
	Message   string    `cbor:"message"`
}

// canonicalEncMode is the deterministic CBOR encoding used for every digest
// computation: sorted map keys, canonical integer/float forms, no
// indefinite-length items, so the same logical object always serializes to
// the same bytes.
var canonicalEncMode = func() cbor.EncMode {
	m, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: building canonical CBOR encoder: %v", err))
	}
	return m
}()

// encodeCanonical serializes a typed object payload together with its
// ObjectType tag, so a blob and a tree that happen to encode to the same
// bytes never collide on digest.
func encodeCanonical(typ ObjectType, payload any) ([]byte, error) {
	return canonicalEncMode.Marshal(struct {
		Type    ObjectType `cbor:"type"`
		Payload any        `cbor:"payload"`
	}{Type: typ, Payload: payload})
}

func digestOf(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// HashBlob returns the canonical encoding and digest of a Blob.
func HashBlob(b Blob) (Digest, []byte, error) {
	data, err := encodeCanonical(TypeBlob, b)
	if err != nil {
		return "", nil, fmt.Errorf("store: encode blob: %w", err)
	}
	return digestOf(data), data, nil
}

// HashTree returns the canonical encoding and digest of a Tree. Entries are
// sorted by name before encoding so digest computation is independent of
// insertion order.
func HashTree(t Tree) (Digest, []byte, error) {
	canon := Tree{Entries: t.sortedEntries()}
	data, err := encodeCanonical(TypeTree, canon)
	if err != nil {
		return "", nil, fmt.Errorf("store: encode tree: %w", err)
	}
	return digestOf(data), data, nil
}

// HashCommit returns the canonical encoding and digest of a Commit.
func HashCommit(c Commit) (Digest, []byte, error) {
	data, err := encodeCanonical(TypeCommit, c)
	if err != nil {
		return "", nil, fmt.Errorf("store: encode commit: %w", err)
	}
	return digestOf(data), data, nil
}

// DecodeBlob decodes the canonical encoding of a blob object.
func DecodeBlob(data []byte) (Blob, error) {
	var env struct {
		Type    ObjectType `cbor:"type"`
		Payload Blob       `cbor:"payload"`
	}
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Blob{}, fmt.Errorf("store: decode blob: %w", err)
	}
	if env.Type != TypeBlob {
		return Blob{}, fmt.Errorf("store: object is not a blob (type %q)", env.Type)
	}
	return env.Payload, nil
}

// DecodeTree decodes the canonical encoding of a tree object.
func DecodeTree(data []byte) (Tree, error) {
	var env struct {
		Type    ObjectType `cbor:"type"`
		Payload Tree       `cbor:"payload"`
	}
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Tree{}, fmt.Errorf("store: decode tree: %w", err)
	}
	if env.Type != TypeTree {
		return Tree{}, fmt.Errorf("store: object is not a tree (type %q)", env.Type)
	}
	return env.Payload, nil
}

// DecodeCommit decodes the canonical encoding of a commit object.
func DecodeCommit(data []byte) (Commit, error) {
	var env struct {
		Type    ObjectType `cbor:"type"`
		Payload Commit     `cbor:"payload"`
	}
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Commit{}, fmt.Errorf("store: decode commit: %w", err)
	}
	if env.Type != TypeCommit {
		return Commit{}, fmt.Errorf("store: object is not a commit (type %q)", env.Type)
	}
	return env.Payload, nil
}

// PeekType inspects the envelope of an encoded object without decoding its
// payload, used by CatFile/Show to dispatch on an unknown digest's kind.
func PeekType(data []byte) (ObjectType, error) {
	var env struct {
		Type ObjectType `cbor:"type"`
	}
	if err := cbor.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("store: peek object type: %w", err)
	}
	return env.Type, nil
}
