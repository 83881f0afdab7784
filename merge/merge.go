// Package merge implements the randomized merge controller (§4.F):
// quantized, anonymity-preserving merges of per-contest branches into
// mainline.
package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/util"
)

// MergeError reports a store failure during the randomized merge sweep
// (§7): the offending branch is left outstanding; other branches in the
// sweep proceed. A sweep accumulates every per-branch failure rather than
// aborting at the first one.
type MergeError struct {
	Branch string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge: branch %q: %v", e.Branch, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// Params are the merge controller's tunables (§4.F).
type Params struct {
	// MinimumCastCache is k, the minimum anonymity-set size.
	MinimumCastCache int
	// Flush forces every outstanding branch in a batch to merge,
	// bypassing the k guard, normally used at election close.
	Flush bool
}

// DefaultParams returns Params with k taken from cfg.BallotReceiptRows
// (§6: the same knob serves both roles) and Flush false.
func DefaultParams(cfg config.ElectionConfig) Params {
	return Params{MinimumCastCache: cfg.BallotReceiptRows, Flush: false}
}

// Controller drives merge sweeps against a store.Store.
type Controller struct {
	Store      store.Store
	Config     config.ElectionConfig
	MainBranch string
}

// New returns a Controller merging into mainBranch.
func New(s store.Store, cfg config.ElectionConfig, mainBranch string) *Controller {
	return &Controller{Store: s, Config: cfg, MainBranch: mainBranch}
}

// SweepResult reports what a single Sweep call did, per uid, for tests and
// operational logging.
type SweepResult struct {
	Uid     string
	Merged  []string // branch names merged, in the order they were committed
	Skipped bool      // true if the k-guard left this uid untouched
}

// Sweep implements §4.F's controller body: group outstanding branches by
// uid, and for every uid whose batch size exceeds k (or whenever flushing),
// merge a uniformly-random-without-replacement subset into mainline, each
// with its contest JSON blob overwritten by a fresh random digest string
// for unlinkability (§4.F rationale), in a randomized commit order.
func (c *Controller) Sweep(ctx context.Context, params Params) ([]SweepResult, error) {
	branches, err := c.Store.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("merge: list branches: %w", err)
	}

	byUid := groupByUid(branches, c.Config.ContestFileSubdir, c.MainBranch)

	uids := make([]string, 0, len(byUid))
	for uid := range byUid {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	var results []SweepResult
	var merr *multierror.Error

	for _, uid := range uids {
		batch := byUid[uid]
		n := len(batch)
		if n <= params.MinimumCastCache && !params.Flush {
			results = append(results, SweepResult{Uid: uid, Skipped: true})
			continue
		}

		count := n
		if !params.Flush {
			count = n - params.MinimumCastCache
		}

		order := util.ShuffleIndices(n)
		toMerge := make([]string, 0, count)
		for i := 0; i < count; i++ {
			toMerge = append(toMerge, batch[order[i]])
		}

		var merged []string
		for _, branch := range toMerge {
			if err := c.mergeOne(ctx, uid, branch); err != nil {
				merr = multierror.Append(merr, &MergeError{Branch: branch, Err: err})
				continue
			}
			merged = append(merged, branch)
		}
		results = append(results, SweepResult{Uid: uid, Merged: merged})
	}

	return results, merr.ErrorOrNil()
}

// groupByUid partitions outstanding per-contest branches (every branch
// except mainBranch) by the uid path segment, sorting each uid's batch
// alphabetically by branch name per §4.F step 2.
func groupByUid(branches []string, contestSubdir, mainBranch string) map[string][]string {
	out := make(map[string][]string)
	prefix := contestSubdir + "/"
	for _, b := range branches {
		if b == mainBranch || !strings.HasPrefix(b, prefix) {
			continue
		}
		rest := strings.TrimPrefix(b, prefix)
		uid, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		out[uid] = append(out[uid], b)
	}
	for uid := range out {
		sort.Strings(out[uid])
	}
	return out
}

func (c *Controller) mergeOne(ctx context.Context, uid, branch string) error {
	result, err := c.Store.Merge(ctx, c.MainBranch, branch)
	if err == store.ErrUpToDate {
		return c.finishMerge(ctx, branch, uid)
	}
	if err != nil {
		return fmt.Errorf("merge %q into %q: %w", branch, c.MainBranch, err)
	}

	placeholder := []byte(util.RandomDigestHex())
	newTree, err := c.overwriteContestBlob(ctx, result.Tree, uid, placeholder)
	if err != nil {
		return fmt.Errorf("overwrite contest blob for unlinkability: %w", err)
	}

	sig := store.Signature{Name: "votegraph-merge", Email: "merge@votegraph", Time: store.DeterministicTimestamp}
	if _, err := c.Store.Commit(ctx, c.MainBranch, newTree, result.Parents, sig, sig, fmt.Sprintf("merge contest %s", uid)); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	if err := c.Store.Push(ctx, c.MainBranch); err != nil {
		return fmt.Errorf("push mainline: %w", err)
	}
	return c.finishMerge(ctx, branch, uid)
}

func (c *Controller) finishMerge(ctx context.Context, branch, uid string) error {
	if err := c.Store.DeleteBranch(ctx, branch, true); err != nil {
		return fmt.Errorf("delete branch %q (local and remote): %w", branch, err)
	}
	log.Debugw("merge: absorbed branch into mainline", "uid", uid, "branch", branch)
	return nil
}

// overwriteContestBlob replaces the contest JSON blob under
// "{ContestFileSubdir}/{uid}/cvr.json" in the tree rooted at root with
// placeholder, rebuilding every ancestor tree along that path so the
// returned root digest reflects the substitution.
func (c *Controller) overwriteContestBlob(ctx context.Context, root store.Digest, uid string, placeholder []byte) (store.Digest, error) {
	segments := []string{c.Config.ContestFileSubdir, uid, "cvr.json"}
	return rewritePath(ctx, c.Store, root, segments, placeholder)
}

func rewritePath(ctx context.Context, s store.Store, root store.Digest, segments []string, data []byte) (store.Digest, error) {
	if len(segments) == 0 {
		return s.PutBlob(ctx, data)
	}
	var tree store.Tree
	if !root.IsZero() {
		typ, obj, err := s.Show(ctx, root)
		if err != nil {
			return "", err
		}
		if typ != store.TypeTree {
			return "", fmt.Errorf("rewritePath: expected tree at %q, got %s", root, typ)
		}
		tree = obj.(store.Tree)
	}

	newChild, err := rewritePathChild(ctx, s, tree, segments, data)
	if err != nil {
		return "", err
	}
	return s.PutTree(ctx, newChild)
}

func rewritePathChild(ctx context.Context, s store.Store, tree store.Tree, segments []string, data []byte) ([]store.TreeEntry, error) {
	head, tail := segments[0], segments[1:]
	entries := make([]store.TreeEntry, len(tree.Entries))
	copy(entries, tree.Entries)

	found := false
	for i, e := range entries {
		if e.Name != head {
			continue
		}
		found = true
		if len(tail) == 0 {
			newDigest, err := s.PutBlob(ctx, data)
			if err != nil {
				return nil, err
			}
			entries[i] = store.TreeEntry{Name: head, Type: store.TypeBlob, Dig: newDigest}
		} else {
			newDigest, err := rewritePath(ctx, s, e.Dig, tail, data)
			if err != nil {
				return nil, err
			}
			entries[i] = store.TreeEntry{Name: head, Type: store.TypeTree, Dig: newDigest}
		}
		break
	}
	if !found {
		if len(tail) == 0 {
			newDigest, err := s.PutBlob(ctx, data)
			if err != nil {
				return nil, err
			}
			entries = append(entries, store.TreeEntry{Name: head, Type: store.TypeBlob, Dig: newDigest})
		} else {
			newDigest, err := rewritePath(ctx, s, "", tail, data)
			if err != nil {
				return nil, err
			}
			entries = append(entries, store.TreeEntry{Name: head, Type: store.TypeTree, Dig: newDigest})
		}
	}
	return entries, nil
}
