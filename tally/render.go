package tally

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vocdoni/votegraph/contest"
)

// Render formats r as the human-readable tally log: the tally's only
// output contract, with no machine-readable emission.
func (r *Result) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "contest %q (uid=%s, tally=%s)\n", r.Reference.ContestName, r.Reference.Uid, r.Reference.Tally)
	fmt.Fprintf(&b, "votes counted: %d\n", r.VoteCount)

	switch r.Reference.Tally {
	case contest.TallyPlurality:
		renderCounts(&b, r.SelectionCounts)
	case contest.TallyRCV:
		if len(r.Seats) == 0 {
			renderCounts(&b, r.SelectionCounts)
			break
		}
		for _, seat := range r.Seats {
			fmt.Fprintf(&b, "seat %d: terminal=%s\n", seat.Seat, seat.Terminal)
			for i, round := range seat.Rounds {
				fmt.Fprintf(&b, "  round %d:", i+1)
				for _, rc := range round {
					fmt.Fprintf(&b, " %s=%d", rc.Name, rc.Count)
				}
				b.WriteString("\n")
			}
		}
	case contest.TallyCondorcet:
		fmt.Fprintf(&b, "winner order: %s\n", strings.Join(r.WinnerOrder, " > "))
	}

	fmt.Fprintf(&b, "winners: %s\n", strings.Join(r.Winners, ", "))
	if r.Tied {
		b.WriteString("result: TIED\n")
	}
	return b.String()
}

func renderCounts(b *strings.Builder, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	for _, name := range names {
		fmt.Fprintf(b, "  %s: %d\n", name, counts[name])
	}
}
