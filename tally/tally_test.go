package tally_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/tally"
)

func pluralityContest(names ...string) *contest.Contest {
	choices := make([]contest.Choice, len(names))
	for i, n := range names {
		choices[i] = contest.Choice{Name: n}
	}
	c := &contest.Contest{
		Choices:                choices,
		Tally:                  contest.TallyPlurality,
		ContestType:            contest.TypeCandidate,
		OpenPositions:          1,
		ContestName:            "Test",
		GGO:                    "/GGOs/MA",
		Uid:                    "0001",
		ElectionUpstreamRemote: "origin",
	}
	c.ApplyDefaults()
	return c
}

func cvr(ref *contest.Contest, digest string, selection ...string) tally.CVREntry {
	c := *ref
	c.Selection = selection
	return tally.CVREntry{Digest: store.Digest(digest), Contest: c}
}

func TestPluralityWinner(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B", "C")
	batch := []tally.CVREntry{
		cvr(ref, "d1", "A"),
		cvr(ref, "d2", "B"),
		cvr(ref, "d3", "A"),
	}

	result := tally.Plurality(ref, batch, nil)
	c.Assert(result.SelectionCounts["A"], qt.Equals, 2)
	c.Assert(result.SelectionCounts["B"], qt.Equals, 1)
	c.Assert(result.SelectionCounts["C"], qt.Equals, 0)
	c.Assert(result.Winners, qt.DeepEquals, []string{"A"})
	c.Assert(result.Tied, qt.IsFalse)
}

func TestPluralityTie(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B")
	batch := []tally.CVREntry{
		cvr(ref, "d1", "A"),
		cvr(ref, "d2", "B"),
	}

	result := tally.Plurality(ref, batch, nil)
	c.Assert(result.Tied, qt.IsTrue)
	c.Assert(result.Winners, qt.DeepEquals, []string{"A", "B"})
}

func TestSequentialRCVEliminatesAndWins(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B", "C")
	ref.Tally = contest.TallyRCV
	ref.MaxSelections = len(ref.Choices)

	batch := []tally.CVREntry{
		cvr(ref, "d1", "A", "B"),
		cvr(ref, "d2", "B", "C"),
		cvr(ref, "d3", "C", "A"),
		cvr(ref, "d4", "C", "B"),
		cvr(ref, "d5", "B", "A"),
	}

	result, err := tally.SequentialRCV(ref, batch, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Terminal, qt.Equals, tally.SeatFilled)
	c.Assert(result.Winners, qt.DeepEquals, []string{"B"})
	c.Assert(result.Seats, qt.HasLen, 1)
	c.Assert(result.Seats[0].Rounds, qt.HasLen, 2)
	c.Assert(result.Seats[0].Rounds[0], qt.DeepEquals, []tally.RoundCount{
		{Name: "B", Count: 2}, {Name: "C", Count: 2}, {Name: "A", Count: 1},
	})
	c.Assert(result.Seats[0].OBEChoices["A"], qt.Equals, 1)

	// Monotone non-increase across rounds (§8 invariant 3).
	total0 := 0
	for _, rc := range result.Seats[0].Rounds[0] {
		total0 += rc.Count
	}
	total1 := 0
	for _, rc := range result.Seats[0].Rounds[1] {
		total1 += rc.Count
	}
	c.Assert(total1 <= total0, qt.IsTrue)
}

func TestCondorcetCycleRejectsClosingEdge(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B", "C")
	ref.Tally = contest.TallyCondorcet
	ref.MaxSelections = len(ref.Choices)

	batch := []tally.CVREntry{
		cvr(ref, "d1", "A", "B", "C"),
		cvr(ref, "d2", "B", "C", "A"),
		cvr(ref, "d3", "C", "A", "B"),
	}

	result := tally.Condorcet(ref, batch, nil)
	c.Assert(result.WinnerOrder, qt.DeepEquals, []string{"A", "B", "C"})
	c.Assert(result.Winners, qt.DeepEquals, []string{"A"})
}

func TestTallyhoRejectsSchemaMismatch(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B")
	bad := cvr(ref, "d1", "A")
	bad.Contest.Uid = "9999"

	_, err := tally.Tallyho(ref, []tally.CVREntry{bad}, nil, nil)
	c.Assert(err, qt.Not(qt.IsNil))
	var terr *tally.TallyError
	c.Assert(err, qt.ErrorAs, &terr)
}

func TestTallyhoDispatchesPlurality(t *testing.T) {
	c := qt.New(t)
	ref := pluralityContest("A", "B")
	batch := []tally.CVREntry{cvr(ref, "d1", "A"), cvr(ref, "d2", "A")}

	result, err := tally.Tallyho(ref, batch, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Winners, qt.DeepEquals, []string{"A"})
}
