// Package acceptance implements the ballot-acceptance pipeline (§4.E):
// splitting a cast ballot into per-contest objects, committing each to an
// independent anonymous branch, and returning per-contest receipts.
package acceptance

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/util"
)

// AcceptError reports a store failure during commit/push (§7): fatal per
// ballot, the voter receives no partial receipt.
type AcceptError struct {
	Uid string
	Err error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("acceptance: contest %s: %v", e.Uid, e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }

// Receipt is one (uid, digest) pair: one entry of the ballot receipt
// returned to the voter.
type Receipt struct {
	Uid    string
	Digest store.Digest
}

// Pipeline drives acceptance against a store.Store.
type Pipeline struct {
	Store  store.Store
	Config config.ElectionConfig
}

// New returns a Pipeline writing to s under cfg's contest-file-subdir
// convention.
func New(s store.Store, cfg config.ElectionConfig) *Pipeline {
	return &Pipeline{Store: s, Config: cfg}
}

// Accept implements §4.E for every contest in contests, in order. On any
// per-contest failure the whole acceptance fails with AcceptError. Branches
// already committed for earlier contests are left in place with their CVR
// commits, and Janitor does not delete them (their heads are real commits).
// Only a branch that was created but never committed sits at the zero
// digest, which is what Janitor looks for.
func (p *Pipeline) Accept(ctx context.Context, contests []contest.Contest) ([]Receipt, error) {
	receipts := make([]Receipt, 0, len(contests))
	for i := range contests {
		digest, err := p.acceptOne(ctx, &contests[i])
		if err != nil {
			return nil, &AcceptError{Uid: contests[i].Uid, Err: err}
		}
		receipts = append(receipts, Receipt{Uid: contests[i].Uid, Digest: digest})
	}
	return receipts, nil
}

// BranchName returns the branch name §6 specifies for a contest:
// "{CONTEST_FILE_SUBDIR}/{uid}/{nonce}", where nonce is >=256 bits of
// cryptographic randomness, base64-like hex encoded.
func (p *Pipeline) BranchName(uid, nonce string) string {
	return path.Join(p.Config.ContestFileSubdir, uid, nonce)
}

func (p *Pipeline) acceptOne(ctx context.Context, c *contest.Contest) (store.Digest, error) {
	nonce := util.RandomHex(32)
	branch := p.BranchName(c.Uid, nonce)
	c.CastBranch = branch
	c.ElectionUpstreamRemote = p.Config.ElectionUpstreamRemote

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal contest cvr: %w", err)
	}

	if err := p.Store.CreateBranch(ctx, branch, ""); err != nil {
		return "", fmt.Errorf("create branch %q: %w", branch, err)
	}

	tree, err := store.SingleFileTree(ctx, p.Store, []string{p.Config.ContestFileSubdir, c.Uid, "cvr.json"}, data)
	if err != nil {
		return "", fmt.Errorf("write cvr tree: %w", err)
	}

	sig := store.Signature{
		Name:  "votegraph-acceptance",
		Email: "acceptance@votegraph",
		Time:  store.DeterministicTimestamp,
	}
	digest, err := p.Store.Commit(ctx, branch, tree, nil, sig, sig, fmt.Sprintf("accept contest %s", c.Uid))
	if err != nil {
		return "", fmt.Errorf("commit cvr: %w", err)
	}

	if err := p.Store.Push(ctx, branch); err != nil {
		return "", fmt.Errorf("push branch %q: %w", branch, err)
	}

	return digest, nil
}

// IsOrphanedBranch reports whether name starts with the configured
// contest-file subdir, the prefix every acceptance branch name carries,
// letting a janitor distinguish acceptance branches (candidates for
// cleanup once abandoned) from anything else that might share the store.
// Only the prefix is checked; the uid and nonce segments are not.
func (p *Pipeline) IsOrphanedBranch(name string) bool {
	return len(name) > len(p.Config.ContestFileSubdir) &&
		name[:len(p.Config.ContestFileSubdir)] == p.Config.ContestFileSubdir
}

// Janitor deletes abandoned acceptance branches: ones CreateBranch made but
// whose commit never landed, left behind by acceptOne failing partway
// through (§4.E). A branch still sitting at the zero digest never became a
// real CVR commit, so it is always safe to delete regardless of how long ago
// it was created. Branches whose head is a commit are left alone, including
// ones committed for earlier contests of a ballot whose acceptance failed.
func (p *Pipeline) Janitor(ctx context.Context) (int, error) {
	branches, err := p.Store.ListBranches(ctx)
	if err != nil {
		return 0, fmt.Errorf("janitor: list branches: %w", err)
	}
	var swept int
	for _, name := range branches {
		if !p.IsOrphanedBranch(name) {
			continue
		}
		head, err := p.Store.Head(ctx, name)
		if err != nil {
			return swept, fmt.Errorf("janitor: head of %q: %w", name, err)
		}
		if !head.IsZero() {
			continue
		}
		if err := p.Store.DeleteBranch(ctx, name, true); err != nil {
			return swept, fmt.Errorf("janitor: delete %q: %w", name, err)
		}
		swept++
	}
	return swept, nil
}
