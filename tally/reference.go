package tally

import (
	"fmt"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/electionconfig"
)

// ReferenceFromConfig resolves uid's declaring node in ec and builds the
// reference Contest Tallyho validates a batch against, the same
// NodeContest-to-Contest conversion ballot.GenerateBlank performs for a
// blank ballot template.
func ReferenceFromConfig(ec *electionconfig.ElectionConfig, uid string) (*contest.Contest, error) {
	nc, ggo, ok := ec.ContestByUid(uid)
	if !ok {
		return nil, fmt.Errorf("tally: no contest with uid %q", uid)
	}

	choices := make([]contest.Choice, len(nc.Choices))
	for i, ch := range nc.Choices {
		choices[i] = contest.Choice{
			Name:        ch.Name,
			Party:       ch.Party,
			TicketNames: append([]string{}, ch.TicketNames...),
		}
	}

	c := &contest.Contest{
		Choices:       choices,
		Tally:         contest.Tally(nc.Tally),
		OpenPositions: nc.OpenPositions,
		WriteIn:       nc.WriteIn,
		Description:   nc.Description,
		ContestType:   contest.Type(nc.ContestType),
		TicketTitles:  append([]string{}, nc.TicketTitles...),
		ContestName:   nc.ContestName,
		GGO:           ggo,
		Uid:           nc.Uid,
	}
	c.ApplyDefaults()
	return c, nil
}
