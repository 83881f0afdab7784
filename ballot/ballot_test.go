package ballot_test

import (
	"testing"
	"testing/fstest"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/address"
	"github.com/vocdoni/votegraph/ballot"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/electionconfig"
)

func mapFile(contents string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(contents)}
}

func simpleElection() fstest.MapFS {
	return fstest.MapFS{
		"ggo.json": mapFile(`{"kind": "root", "subdir": "root", "address_map": {"kind": "implicit-by-hierarchy"}}`),
		"GGOs/MA/ggo.json": mapFile(`{
			"kind": "state", "subdir": "MA",
			"address_map": {"kind": "implicit-by-hierarchy"},
			"contests": [{"contest_name": "Governor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["A", "B"]}]
		}`),
		"GGOs/MA/GGOs/Cambridge/ggo.json": mapFile(`{
			"kind": "town", "subdir": "Cambridge",
			"address_map": {
				"kind": "unique-ballots",
				"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/", "/GGOs/MA"]}]
			},
			"contests": [{"contest_name": "Mayor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["X", "Y"]}]
		}`),
	}
}

func TestGenerateBlankConcatenatesInOrder(t *testing.T) {
	c := qt.New(t)
	ec, err := electionconfig.Load(simpleElection())
	c.Assert(err, qt.IsNil)

	cfg := config.Default()
	a := &address.Address{Number: "1", Street: "Main St", Town: "Cambridge", State: "MA"}
	c.Assert(address.MapGGos(a, ec, cfg), qt.IsNil)

	b, err := ballot.GenerateBlank(a, ec)
	c.Assert(err, qt.IsNil)
	c.Assert(len(b.Contests), qt.Equals, 2)
	c.Assert(b.Contests[0].ContestName, qt.Equals, "Governor")
	c.Assert(b.Contests[1].ContestName, qt.Equals, "Mayor")
	c.Assert(b.Contests[0].Selection, qt.DeepEquals, []string{})

	got, ok := b.ByUid(b.Contests[1].Uid)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.ContestName, qt.Equals, "Mayor")
}

func TestGenerateBlankCarriesStructuredTicketChoices(t *testing.T) {
	c := qt.New(t)
	fsys := simpleElection()
	fsys["GGOs/MA/GGOs/Cambridge/ggo.json"] = mapFile(`{
		"kind": "town", "subdir": "Cambridge",
		"address_map": {
			"kind": "unique-ballots",
			"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/", "/GGOs/MA"]}]
		},
		"contests": [{
			"contest_name": "President", "contest_type": "ticket", "tally": "plurality", "open_positions": 1,
			"ticket_titles": ["President", "Vice President"],
			"choices": [
				{"name": "Ticket A", "party": "Federalist", "ticket_names": ["Alice", "Amy"]},
				{"name": "Ticket B", "party": "Democratic-Republican", "ticket_names": ["Bob", "Ben"]}
			]
		}]
	}`)
	ec, err := electionconfig.Load(fsys)
	c.Assert(err, qt.IsNil)

	cfg := config.Default()
	a := &address.Address{Number: "1", Street: "Main St", Town: "Cambridge", State: "MA"}
	c.Assert(address.MapGGos(a, ec, cfg), qt.IsNil)

	b, err := ballot.GenerateBlank(a, ec)
	c.Assert(err, qt.IsNil)

	president := b.Contests[1]
	c.Assert(president.ContestName, qt.Equals, "President")
	c.Assert(president.Validate(), qt.IsNil)
	c.Assert(president.Choices[0].Party, qt.Equals, "Federalist")
	c.Assert(president.Choices[0].TicketNames, qt.DeepEquals, []string{"Alice", "Amy"})
}
