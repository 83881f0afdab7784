// Package receipt implements the receipt formatter (§4.H): assembling the
// per-ballot receipt returned to a voter, optionally padded with
// randomly-selected peer digests so its size alone cannot identify them.
package receipt

import (
	"context"
	"fmt"
	"strings"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/util"
)

// Row is one contest's entry in a ballot receipt: the voter's own digest,
// plus (in versioned mode) a set of peer digests from other outstanding
// branches for the same contest uid.
type Row struct {
	Uid    string
	Digest store.Digest
	Peers  []store.Digest
}

// Receipt is the ordered per-contest rendering returned to a voter, rows in
// the same order the ballot's contests were cast (§4.H: "one row per
// ballot" per contest, in contest order).
type Receipt struct {
	Rows []Row
}

// Format builds the plain (non-versioned) receipt directly from the
// acceptance pipeline's output, with no peer padding.
func Format(receipts []acceptance.Receipt) Receipt {
	rows := make([]Row, len(receipts))
	for i, r := range receipts {
		rows[i] = Row{Uid: r.Uid, Digest: r.Digest}
	}
	return Receipt{Rows: rows}
}

// FormatVersioned implements §4.H's versioned mode: each row is padded with
// cfg.BallotReceiptRows randomly-selected peer digests per contest, drawn
// from the then-current set of outstanding branches for that uid, so a
// receipt reveals only one-in-N membership, never identity.
func FormatVersioned(ctx context.Context, s store.Store, cfg config.ElectionConfig, receipts []acceptance.Receipt) (Receipt, error) {
	branches, err := s.ListBranches(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipt: list branches: %w", err)
	}
	byUid := groupBranchesByUid(branches, cfg.ContestFileSubdir)

	rows := make([]Row, len(receipts))
	for i, r := range receipts {
		pool, err := headDigests(ctx, s, byUid[r.Uid], r.Digest)
		if err != nil {
			return Receipt{}, fmt.Errorf("receipt: contest %s: %w", r.Uid, err)
		}
		rows[i] = Row{Uid: r.Uid, Digest: r.Digest, Peers: sampleDigests(pool, cfg.BallotReceiptRows)}
	}
	return Receipt{Rows: rows}, nil
}

// groupBranchesByUid partitions branch names under contestSubdir by their
// uid path segment, the same convention acceptance.Pipeline.BranchName and
// merge.Controller use.
func groupBranchesByUid(branches []string, contestSubdir string) map[string][]string {
	out := make(map[string][]string)
	prefix := contestSubdir + "/"
	for _, b := range branches {
		if !strings.HasPrefix(b, prefix) {
			continue
		}
		rest := strings.TrimPrefix(b, prefix)
		uid, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		out[uid] = append(out[uid], b)
	}
	return out
}

// headDigests resolves every branch in names to its current head commit
// digest, excluding own (the voter's own receipt digest, already recorded
// separately in Row.Digest).
func headDigests(ctx context.Context, s store.Store, names []string, own store.Digest) ([]store.Digest, error) {
	var out []store.Digest
	for _, name := range names {
		head, err := s.Head(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("head of %q: %w", name, err)
		}
		if head == own {
			continue
		}
		out = append(out, head)
	}
	return out, nil
}

// sampleDigests returns up to k digests chosen uniformly at random without
// replacement from pool; if pool has k or fewer entries, all of it is
// returned (order randomized regardless, so the position within the padded
// row carries no information either).
func sampleDigests(pool []store.Digest, k int) []store.Digest {
	order := util.ShuffleIndices(len(pool))
	if k > len(pool) {
		k = len(pool)
	}
	out := make([]store.Digest, k)
	for i := 0; i < k; i++ {
		out[i] = pool[order[i]]
	}
	return out
}
