// Package tally implements contest tabulation (§4.G): plurality,
// sequential ranked-choice voting, and pairwise Condorcet, each driven
// from a batch of CVR objects extracted from mainline.
package tally

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/store"
)

// TallyError reports a schema mismatch between the reference contest and
// one or more CVRs in a batch (§7): fatal for that contest's tally, the
// full per-digest report is attached rather than just the first failure.
type TallyError struct {
	ContestName string
	Err         error
}

func (e *TallyError) Error() string {
	return fmt.Sprintf("tally: contest %q: %v", e.ContestName, e.Err)
}

func (e *TallyError) Unwrap() error { return e.Err }

// CVREntry pairs a cast contest with the digest of the commit it came
// from, the unit checks (§4.G provenance) and last-place/tie reporting
// key on.
type CVREntry struct {
	Digest  store.Digest
	Contest contest.Contest
}

// Result is the tally state described in §3's "Tally state" data model,
// populated by whichever of Plurality/SequentialRCV/Condorcet ran.
type Result struct {
	Reference       *contest.Contest
	SelectionCounts map[string]int
	VoteCount       int
	PairwiseMatrix  map[[2]string]int

	// RCV-specific. Per §4.G these are reset between seats; Result holds
	// the values from whichever seat tallying stopped on (the final
	// filled seat, or the seat that hit a non-SEAT_FILLED terminal
	// state). Seats holds the full per-seat history for provenance.
	RCVRound    []RoundCount
	OBEChoices  map[string]int
	WinnerOrder []string
	Seats       []SeatResult

	MultiseatWinners []string
	Winners          []string
	Tied             bool
	Terminal         Terminal

	// Provenance holds one human-readable line per accounting step that
	// touched a digest in the caller's checks set.
	Provenance []string
}

// RoundCount is one (name, count) entry of an RCV round snapshot.
type RoundCount struct {
	Name  string
	Count int
}

// SeatResult records one seat's full RCV run, for provenance only: §4.G's
// named per-round fields (rcv_round, obe_choices, winner_order,
// selection_counts) are explicitly reset between seats in Result, but a
// caller tracing a receipt needs the whole history, not just the last seat.
type SeatResult struct {
	Seat        int
	Rounds      [][]RoundCount
	OBEChoices  map[string]int
	WinnerOrder []string
	Terminal    Terminal
}

func newResult(ref *contest.Contest) *Result {
	counts := make(map[string]int, len(ref.Choices))
	for _, name := range ref.ChoiceNames() {
		counts[name] = 0
	}
	return &Result{
		Reference:       ref,
		SelectionCounts: counts,
		PairwiseMatrix:  map[[2]string]int{},
	}
}

func (r *Result) trace(checks map[store.Digest]bool, digest store.Digest, format string, args ...any) {
	if !checks[digest] {
		return
	}
	line := fmt.Sprintf(format, args...)
	r.Provenance = append(r.Provenance, line)
	log.Debugw("tally: traced digest", "digest", digest, "step", line)
}

// Tallyho is the §4.G entry point: validates batch against ref, then
// dispatches to the tabulation rule (ref.Tally unless tallyOverride is
// supplied). checks is the set of digests a voter is tracing through the
// tally (§4.G provenance); it may be nil.
func Tallyho(ref *contest.Contest, batch []CVREntry, checks map[store.Digest]bool, tallyOverride *contest.Tally) (*Result, error) {
	if err := validateBatch(ref, batch, tallyOverride); err != nil {
		return nil, &TallyError{ContestName: ref.ContestName, Err: err}
	}

	rule := ref.Tally
	if tallyOverride != nil {
		rule = *tallyOverride
	}

	switch rule {
	case contest.TallyPlurality:
		return Plurality(ref, batch, checks), nil
	case contest.TallyRCV:
		result, err := SequentialRCV(ref, batch, checks)
		if err != nil {
			return nil, &TallyError{ContestName: ref.ContestName, Err: err}
		}
		return result, nil
	case contest.TallyCondorcet:
		return Condorcet(ref, batch, checks), nil
	default:
		return nil, &TallyError{ContestName: ref.ContestName, Err: fmt.Errorf("unknown tally rule %q", rule)}
	}
}

// validateBatch implements §4.G's batch validation: every CVR must match
// ref on choices, tally (unless overridden), max_selections, ggo, uid,
// contest_name, contest_type, election_upstream_remote. win_by is allowed
// to vary. Every deviation accumulates; a single invalid digest does not
// hide the rest.
func validateBatch(ref *contest.Contest, batch []CVREntry, tallyOverride *contest.Tally) error {
	var merr *multierror.Error
	refChoices := ref.ChoiceNames()

	for _, entry := range batch {
		c := entry.Contest
		var perDigest *multierror.Error

		if tallyOverride == nil && c.Tally != ref.Tally {
			perDigest = multierror.Append(perDigest, fmt.Errorf("tally mismatch: expected %q, got %q", ref.Tally, c.Tally))
		}
		if c.MaxSelections != ref.MaxSelections {
			perDigest = multierror.Append(perDigest, fmt.Errorf("max_selections mismatch: expected %d, got %d", ref.MaxSelections, c.MaxSelections))
		}
		if c.GGO != ref.GGO {
			perDigest = multierror.Append(perDigest, fmt.Errorf("ggo mismatch: expected %q, got %q", ref.GGO, c.GGO))
		}
		if c.Uid != ref.Uid {
			perDigest = multierror.Append(perDigest, fmt.Errorf("uid mismatch: expected %q, got %q", ref.Uid, c.Uid))
		}
		if c.ContestName != ref.ContestName {
			perDigest = multierror.Append(perDigest, fmt.Errorf("contest_name mismatch: expected %q, got %q", ref.ContestName, c.ContestName))
		}
		if c.ContestType != ref.ContestType {
			perDigest = multierror.Append(perDigest, fmt.Errorf("contest_type mismatch: expected %q, got %q", ref.ContestType, c.ContestType))
		}
		if c.ElectionUpstreamRemote != ref.ElectionUpstreamRemote {
			perDigest = multierror.Append(perDigest, fmt.Errorf("election_upstream_remote mismatch: expected %q, got %q", ref.ElectionUpstreamRemote, c.ElectionUpstreamRemote))
		}
		if !sameChoices(refChoices, c.ChoiceNames()) {
			perDigest = multierror.Append(perDigest, fmt.Errorf("choices mismatch: expected %v, got %v", refChoices, c.ChoiceNames()))
		}

		if err := perDigest.ErrorOrNil(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("digest %s: %w", entry.Digest, err))
		}
	}

	return merr.ErrorOrNil()
}

func sameChoices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
