// Package contest implements the validated contest record (§3, §4.D):
// choices, tally rule, selection, and the schema checks and default
// derivation a blank ballot applies once per contest.
package contest

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Type is the kind of contest, constraining which defaults and validation
// rules apply.
type Type string

const (
	TypeCandidate Type = "candidate"
	TypeTicket    Type = "ticket"
	TypeQuestion  Type = "question"
)

// Tally names a tabulation rule a contest is tabulated under.
type Tally string

const (
	TallyPlurality Tally = "plurality"
	TallyRCV       Tally = "rcv"
	TallyCondorcet Tally = "pwc"
)

// Choice is one selectable option. Party and TicketNames are only
// meaningful for TypeCandidate/TypeTicket contests respectively.
type Choice struct {
	Name        string   `json:"name"`
	Party       string   `json:"party,omitempty"`
	TicketNames []string `json:"ticket_names,omitempty"`
}

// Contest is the validated, immutable configuration record for one contest.
// Uid is assigned once, by electionconfig, at configuration load, and never
// changes afterward.
type Contest struct {
	Choices                []Choice `json:"choices"`
	Tally                  Tally    `json:"tally"`
	WinBy                  float64  `json:"win_by"`
	MaxSelections          int      `json:"max_selections"`
	OpenPositions          int      `json:"open_positions"`
	WriteIn                bool     `json:"write_in"`
	Description            string   `json:"description"`
	ContestType            Type     `json:"contest_type"`
	TicketTitles           []string `json:"ticket_titles,omitempty"`
	ContestName            string   `json:"contest_name"`
	GGO                    string   `json:"ggo"`
	Uid                    string   `json:"uid"`
	Selection              []string `json:"selection"`
	CastBranch             string   `json:"cast_branch,omitempty"`
	ElectionUpstreamRemote string   `json:"election_upstream_remote,omitempty"`

	// winByExplicit tracks whether WinBy was set by the caller rather than
	// derived, since setting it explicitly is only legal for plurality.
	winByExplicit bool
}

// SchemaError is returned by Validate; multiple problems accumulate into a
// single multierror report rather than failing on the first one found.
type SchemaError struct {
	ContestName string
	Err         error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("contest %q: %v", e.ContestName, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// recognizedKeys documents the full schema; callers that decode from
// arbitrary input (JSON/CBOR with unknown extra fields) should reject
// anything outside of this set before calling Validate.
var recognizedKeys = map[string]bool{
	"choices": true, "tally": true, "win_by": true, "max_selections": true,
	"open_positions": true, "write_in": true, "description": true,
	"contest_type": true, "ticket_titles": true, "contest_name": true,
	"ggo": true, "uid": true, "selection": true, "cast_branch": true,
	"election_upstream_remote": true,
}

// RecognizedKey reports whether key is part of the Contest schema, for
// callers decoding from a generic map and wanting to reject unknown keys
// before unmarshaling into a Contest.
func RecognizedKey(key string) bool { return recognizedKeys[key] }

// Validate runs the schema check described in §4.D: rejects malformed
// ticket contests, non-positive OpenPositions, and empty Choices. Every
// violation is collected, not just the first.
func (c *Contest) Validate() error {
	var merr *multierror.Error

	switch c.ContestType {
	case TypeCandidate, TypeTicket, TypeQuestion:
	default:
		merr = multierror.Append(merr, fmt.Errorf("unknown contest_type %q", c.ContestType))
	}

	if c.ContestType == TypeTicket {
		for _, ch := range c.Choices {
			if len(ch.TicketNames) != len(c.TicketTitles) {
				merr = multierror.Append(merr, fmt.Errorf(
					"ticket contest requires len(ticket_names) == len(ticket_titles) for choice %q, got %d ticket names and %d titles",
					ch.Name, len(ch.TicketNames), len(c.TicketTitles)))
			}
		}
	}

	if c.OpenPositions < 1 {
		merr = multierror.Append(merr, fmt.Errorf("open_positions must be >= 1, got %d", c.OpenPositions))
	}

	if len(c.Choices) == 0 {
		merr = multierror.Append(merr, fmt.Errorf("choices must be non-empty"))
	}

	if merr.ErrorOrNil() != nil {
		return &SchemaError{ContestName: c.ContestName, Err: merr.ErrorOrNil()}
	}
	return nil
}

// ApplyDefaults performs the default derivation described in §4.D,
// idempotently: safe to call more than once, but normally invoked exactly
// once when a Contest enters the blank-ballot stream (ballot.GenerateBlank).
func (c *Contest) ApplyDefaults() {
	if c.MaxSelections == 0 {
		if c.Tally == TallyPlurality {
			c.MaxSelections = 1
		} else {
			c.MaxSelections = len(c.Choices)
		}
	}
	if !c.winByExplicit && c.WinBy == 0 {
		c.WinBy = 1.0 / float64(c.OpenPositions+1)
	}
	if c.Selection == nil {
		c.Selection = []string{}
	}
}

// SetWinBy sets WinBy explicitly. Only legal for a plurality contest (§4.D):
// it returns an error and leaves WinBy unchanged when c.Tally is not
// plurality.
func (c *Contest) SetWinBy(v float64) error {
	if c.Tally != TallyPlurality {
		return fmt.Errorf("contest %q: win_by may only be set explicitly for plurality contests", c.ContestName)
	}
	c.WinBy = v
	c.winByExplicit = true
	return nil
}

// ChoiceNames returns the ordered list of choice names, the domain
// add_selection and tally validate selections against.
func (c *Contest) ChoiceNames() []string {
	names := make([]string, len(c.Choices))
	for i, ch := range c.Choices {
		names[i] = ch.Name
	}
	return names
}

// HasChoice reports whether name is one of c.Choices.
func (c *Contest) HasChoice(name string) bool {
	for _, ch := range c.Choices {
		if ch.Name == name {
			return true
		}
	}
	return false
}
