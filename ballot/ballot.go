// Package ballot implements blank-ballot generation and the cast-ballot
// instance (§3, §4.C): an ordered sequence of Contest records plus the
// owning address.
package ballot

import (
	"github.com/vocdoni/votegraph/address"
	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/electionconfig"
)

// Ballot is the ordered sequence of contests a voter casts, plus a
// back-reference to the owning address's GGO path (not a pointer into the
// config graph: §9 keeps Ballot -> Contest -> ElectionConfig acyclic by
// holding the logical node path instead of owning the config).
type Ballot struct {
	Contests   []contest.Contest
	GGOPath    string
}

// GenerateBlank implements §4.C: walks addr.ActiveGGOs and concatenates
// each node's declared contests, in order, deduplicating by uid while
// preserving first occurrence. Selections are left empty (validation is
// lazy until AddSelection is called on an individual contest).
func GenerateBlank(addr *address.Address, ec *electionconfig.ElectionConfig) (*Ballot, error) {
	seen := make(map[string]bool)
	var contests []contest.Contest

	for _, path := range addr.ActiveGGOs {
		node, ok := ec.Node(path)
		if !ok {
			continue
		}
		for _, nc := range node.Contests {
			if seen[nc.Uid] {
				continue
			}
			seen[nc.Uid] = true

			choices := make([]contest.Choice, len(nc.Choices))
			for i, ch := range nc.Choices {
				choices[i] = contest.Choice{
					Name:        ch.Name,
					Party:       ch.Party,
					TicketNames: append([]string{}, ch.TicketNames...),
				}
			}

			c := contest.Contest{
				Choices:       choices,
				Tally:         contest.Tally(nc.Tally),
				OpenPositions: nc.OpenPositions,
				WriteIn:       nc.WriteIn,
				Description:   nc.Description,
				ContestType:   contest.Type(nc.ContestType),
				TicketTitles:  append([]string{}, nc.TicketTitles...),
				ContestName:   nc.ContestName,
				GGO:           path,
				Uid:           nc.Uid,
			}
			c.ApplyDefaults()
			contests = append(contests, c)
		}
	}

	return &Ballot{Contests: contests, GGOPath: addr.BallotNode}, nil
}

// ByUid returns the contest with the given uid, or ok=false.
func (b *Ballot) ByUid(uid string) (*contest.Contest, bool) {
	for i := range b.Contests {
		if b.Contests[i].Uid == uid {
			return &b.Contests[i], true
		}
	}
	return nil, false
}
