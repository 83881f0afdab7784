package tally_test

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/tally"
)

// TestSequentialRCVRoundCap builds a synthetic contest whose elimination
// staircase takes 69 rounds to resolve (one candidate is eliminated per
// round until only C00 and C01 remain in round 69, where C00's 70 of 139
// votes are a majority), which exceeds the 64-round safety limit (§8 S6).
func TestSequentialRCVRoundCap(t *testing.T) {
	c := qt.New(t)

	const n = 70
	names := make([]string, n)
	choices := make([]contest.Choice, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("C%02d", i)
		choices[i] = contest.Choice{Name: names[i]}
	}

	ref := &contest.Contest{
		Choices:                choices,
		Tally:                  contest.TallyRCV,
		ContestType:            contest.TypeCandidate,
		OpenPositions:          1,
		ContestName:            "Staircase",
		GGO:                    "/GGOs/MA",
		Uid:                    "0002",
		ElectionUpstreamRemote: "origin",
		MaxSelections:          1,
	}
	ref.ApplyDefaults()

	var batch []tally.CVREntry
	// Candidate i gets (n-i) single-choice ballots with no fallback
	// ranking, so counts are strictly distinct (n, n-1, ..., 1) and every
	// round's last place is unique, eliminating exactly one candidate at
	// a time, with no round before the 69th reaching the 50% majority
	// threshold.
	digest := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n-i; j++ {
			digest++
			batch = append(batch, cvr(ref, fmt.Sprintf("d%d", digest), names[i]))
		}
	}

	result, err := tally.SequentialRCV(ref, batch, nil)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(err.Error(), qt.Contains, "RCV rounds exceeded safety limit")
	c.Assert(result, qt.IsNil)
}

func TestTallyhoWrapsRoundCapAsTallyError(t *testing.T) {
	c := qt.New(t)

	const n = 70
	choices := make([]contest.Choice, n)
	for i := 0; i < n; i++ {
		choices[i] = contest.Choice{Name: fmt.Sprintf("C%02d", i)}
	}
	ref := &contest.Contest{
		Choices:                choices,
		Tally:                  contest.TallyRCV,
		ContestType:            contest.TypeCandidate,
		OpenPositions:          1,
		ContestName:            "Staircase",
		GGO:                    "/GGOs/MA",
		Uid:                    "0002",
		ElectionUpstreamRemote: "origin",
		MaxSelections:          1,
	}
	ref.ApplyDefaults()

	var batch []tally.CVREntry
	digest := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n-i; j++ {
			digest++
			batch = append(batch, cvr(ref, fmt.Sprintf("d%d", digest), choices[i].Name))
		}
	}

	_, err := tally.Tallyho(ref, batch, nil, nil)
	c.Assert(err, qt.Not(qt.IsNil))
	var terr *tally.TallyError
	c.Assert(err, qt.ErrorAs, &terr)
}
