package electionconfig_test

import (
	"testing"
	"testing/fstest"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/votegraph/electionconfig"
)

func mapFile(contents string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(contents)}
}

func simpleElection() fstest.MapFS {
	return fstest.MapFS{
		"ggo.json": mapFile(`{
			"kind": "root",
			"subdir": "root",
			"address_map": {"kind": "implicit-by-hierarchy"}
		}`),
		"GGOs/MA/ggo.json": mapFile(`{
			"kind": "state",
			"subdir": "MA",
			"address_map": {"kind": "implicit-by-hierarchy"},
			"contests": [{"contest_name": "Governor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["A", "B"]}]
		}`),
		"GGOs/MA/GGOs/Cambridge/ggo.json": mapFile(`{
			"kind": "town",
			"subdir": "Cambridge",
			"address_map": {
				"kind": "unique-ballots",
				"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/", "/GGOs/MA"]}]
			},
			"contests": [{"contest_name": "Mayor", "contest_type": "candidate", "tally": "plurality", "open_positions": 1, "choices": ["X", "Y"]}]
		}`),
	}
}

func TestLoadAssignsUIDsInTopoOrder(t *testing.T) {
	c := qt.New(t)
	ec, err := electionconfig.Load(simpleElection())
	c.Assert(err, qt.IsNil)

	dag, err := ec.GetDAG("topo")
	c.Assert(err, qt.IsNil)
	c.Assert(dag[0], qt.Equals, electionconfig.RootPath)

	maNode, ok := ec.Node("/GGOs/MA")
	c.Assert(ok, qt.IsTrue)
	c.Assert(maNode.Contests[0].Uid, qt.Equals, "0001")

	cambridgeNode, ok := ec.Node("/GGOs/MA/GGOs/Cambridge")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cambridgeNode.Contests[0].Uid, qt.Equals, "0002")
}

func TestLoadDescendants(t *testing.T) {
	c := qt.New(t)
	ec, err := electionconfig.Load(simpleElection())
	c.Assert(err, qt.IsNil)

	descendants := ec.Descendants(electionconfig.RootPath)
	c.Assert(descendants, qt.Contains, "/GGOs/MA")
	c.Assert(descendants, qt.Contains, "/GGOs/MA/GGOs/Cambridge")
}

func TestLoadRejectsUnknownGGOPathReference(t *testing.T) {
	c := qt.New(t)
	fsys := simpleElection()
	fsys["GGOs/MA/GGOs/Cambridge/ggo.json"] = mapFile(`{
		"kind": "town",
		"subdir": "Cambridge",
		"address_map": {
			"kind": "unique-ballots",
			"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/GGOs/Nonexistent"]}]
		}
	}`)
	_, err := electionconfig.Load(fsys)
	c.Assert(err, qt.IsNotNil)
	var cfgErr *electionconfig.ConfigError
	c.Assert(err, qt.ErrorAs, &cfgErr)
}

func TestLoadParsesStructuredTicketChoices(t *testing.T) {
	c := qt.New(t)
	fsys := simpleElection()
	fsys["GGOs/MA/GGOs/Cambridge/ggo.json"] = mapFile(`{
		"kind": "town",
		"subdir": "Cambridge",
		"address_map": {
			"kind": "unique-ballots",
			"unique_ballots": [{"regexes": ["^1 Main St$"], "ggo_paths": ["/", "/GGOs/MA"]}]
		},
		"contests": [{
			"contest_name": "President",
			"contest_type": "ticket",
			"tally": "plurality",
			"open_positions": 1,
			"ticket_titles": ["President", "Vice President"],
			"choices": [
				{"name": "Ticket A", "party": "Federalist", "ticket_names": ["Alice", "Amy"]},
				{"name": "Ticket B", "party": "Democratic-Republican", "ticket_names": ["Bob", "Ben"]}
			]
		}]
	}`)
	ec, err := electionconfig.Load(fsys)
	c.Assert(err, qt.IsNil)

	node, ok := ec.Node("/GGOs/MA/GGOs/Cambridge")
	c.Assert(ok, qt.IsTrue)
	c.Assert(node.Contests[0].Choices[0].Name, qt.Equals, "Ticket A")
	c.Assert(node.Contests[0].Choices[0].Party, qt.Equals, "Federalist")
	c.Assert(node.Contests[0].Choices[0].TicketNames, qt.DeepEquals, []string{"Alice", "Amy"})
	c.Assert(node.Contests[0].Choices[1].TicketNames, qt.DeepEquals, []string{"Bob", "Ben"})
}

func TestLoadRejectsBadRegex(t *testing.T) {
	c := qt.New(t)
	fsys := simpleElection()
	fsys["GGOs/MA/GGOs/Cambridge/ggo.json"] = mapFile(`{
		"kind": "town",
		"subdir": "Cambridge",
		"address_map": {
			"kind": "unique-ballots",
			"unique_ballots": [{"regexes": ["("], "ggo_paths": ["/"]}]
		}
	}`)
	_, err := electionconfig.Load(fsys)
	c.Assert(err, qt.IsNotNil)
}
