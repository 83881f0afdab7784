package tally

import (
	"sort"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/store"
)

// Plurality implements §4.G's plurality rule: for each CVR, for
// i = 0..open_positions-1, if selection[i] exists, credit it and the
// global vote count. Blank positions count as such (they simply don't
// increment anything). After the sweep, the sorted-by-count-desc order
// fills open_positions seats; every entry tied at the boundary count is
// included as a winner, even past the nominal seat count.
func Plurality(ref *contest.Contest, batch []CVREntry, checks map[store.Digest]bool) *Result {
	r := newResult(ref)

	for _, entry := range batch {
		sel := entry.Contest.Selection
		for i := 0; i < ref.OpenPositions; i++ {
			if i >= len(sel) {
				continue
			}
			name := sel[i]
			r.SelectionCounts[name]++
			r.VoteCount++
			r.trace(checks, entry.Digest, "plurality: credited %q (position %d)", name, i)
		}
	}

	names := ref.ChoiceNames()
	sort.SliceStable(names, func(i, j int) bool {
		return r.SelectionCounts[names[i]] > r.SelectionCounts[names[j]]
	})

	seats := ref.OpenPositions
	if seats > len(names) {
		seats = len(names)
	}
	if seats == 0 {
		return r
	}

	boundary := r.SelectionCounts[names[seats-1]]
	for _, name := range names {
		if r.SelectionCounts[name] >= boundary {
			r.Winners = append(r.Winners, name)
		}
	}
	r.Tied = len(r.Winners) > seats

	return r
}
