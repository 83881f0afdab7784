package contest_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/contest"
)

func blankContest() *contest.Contest {
	return &contest.Contest{
		ContestName:   "Mayor",
		ContestType:   contest.TypeCandidate,
		Tally:         contest.TallyPlurality,
		OpenPositions: 1,
		Choices: []contest.Choice{
			{Name: "A"}, {Name: "B"}, {Name: "C"},
		},
	}
}

func TestApplyDefaultsPlurality(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ApplyDefaults()
	c.Assert(ct.MaxSelections, qt.Equals, 1)
	c.Assert(ct.WinBy, qt.Equals, 0.5)
	c.Assert(ct.Selection, qt.DeepEquals, []string{})
}

func TestApplyDefaultsRCV(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.Tally = contest.TallyRCV
	ct.OpenPositions = 2
	ct.ApplyDefaults()
	c.Assert(ct.MaxSelections, qt.Equals, 3)
	c.Assert(ct.WinBy, qt.Equals, 1.0/3.0)
}

func TestSetWinByOnlyLegalForPlurality(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.Tally = contest.TallyRCV
	c.Assert(ct.SetWinBy(0.6), qt.IsNotNil)

	ct2 := blankContest()
	c.Assert(ct2.SetWinBy(0.6), qt.IsNil)
	c.Assert(ct2.WinBy, qt.Equals, 0.6)
}

func TestAddSelectionByName(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ApplyDefaults()
	c.Assert(ct.AddSelection("A", -1), qt.IsNil)
	c.Assert(ct.Selection, qt.DeepEquals, []string{"A"})

	err := ct.AddSelection("A", -1)
	c.Assert(err, qt.IsNotNil)

	err = ct.AddSelection("B", -1)
	c.Assert(err, qt.IsNotNil) // max_selections=1 already reached
}

func TestAddSelectionByOffset(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.Tally = contest.TallyRCV
	ct.OpenPositions = 1
	ct.ApplyDefaults()

	c.Assert(ct.AddSelection("", 2), qt.IsNil)
	c.Assert(ct.Selection, qt.DeepEquals, []string{"C"})

	err := ct.AddSelection("", 5)
	c.Assert(err, qt.IsNotNil)
}

func TestAddSelectionRequiresExactlyOneArg(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ApplyDefaults()
	c.Assert(ct.AddSelection("A", 0), qt.IsNotNil)
	c.Assert(ct.AddSelection("", -1), qt.IsNotNil)
}

func TestValidateTicketMismatch(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ContestType = contest.TypeTicket
	ct.TicketTitles = []string{"President"}
	err := ct.Validate()
	c.Assert(err, qt.IsNotNil)
}

func TestValidateTicketPerChoiceMismatch(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ContestType = contest.TypeTicket
	ct.TicketTitles = []string{"President", "Vice President"}
	ct.Choices = []contest.Choice{
		{Name: "A", TicketNames: []string{"Alice", "Amy"}},
		{Name: "B", TicketNames: []string{"Bob"}}, // wrong length: only 1 ticket name
	}
	err := ct.Validate()
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Error(), qt.Contains, `choice "B"`)
}

func TestValidateTicketEveryChoiceMatches(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.ContestType = contest.TypeTicket
	ct.TicketTitles = []string{"President", "Vice President"}
	ct.Choices = []contest.Choice{
		{Name: "A", TicketNames: []string{"Alice", "Amy"}},
		{Name: "B", TicketNames: []string{"Bob", "Ben"}},
	}
	err := ct.Validate()
	c.Assert(err, qt.IsNil)
}

func TestValidateEmptyChoices(t *testing.T) {
	c := qt.New(t)
	ct := blankContest()
	ct.Choices = nil
	err := ct.Validate()
	c.Assert(err, qt.IsNotNil)
}
