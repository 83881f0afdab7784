package tally

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/store"
)

// BuildBatch implements the extraction half of §4.G: "contest_batch is the
// list [{digest, contestCVR}] extracted from mainline commits touching a
// single uid." A merge-controller commit's own tree entry for a contest
// path is a meaningless random placeholder (§4.F); the real CVR content
// lives in the single-parent acceptance commit that the merge absorbed,
// which remains reachable as a parent even after its branch ref was
// deleted. BuildBatch walks mainline's full ancestor graph and reads
// {subdir}/{uid}/cvr.json out of every non-merge commit, skipping merge
// commits entirely.
func BuildBatch(ctx context.Context, s store.Store, mainlineHead store.Digest, contestSubdir, uid string) ([]CVREntry, error) {
	nodes, err := store.WalkAncestors(ctx, s, mainlineHead)
	if err != nil {
		return nil, fmt.Errorf("tally: walk ancestors: %w", err)
	}

	segments := []string{contestSubdir, uid, "cvr.json"}
	var batch []CVREntry
	for _, node := range nodes {
		if store.IsMergeCommit(node.Commit) {
			continue
		}
		data, err := store.ReadFile(ctx, s, node.Commit.Tree, segments)
		if err != nil {
			// Not every commit touches every uid's path; a commit whose
			// tree has no entry at this path simply isn't part of this
			// uid's batch.
			continue
		}
		var c contest.Contest
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("tally: decode cvr at commit %s: %w", node.Digest, err)
		}
		batch = append(batch, CVREntry{Digest: node.Digest, Contest: c})
	}
	return batch, nil
}
