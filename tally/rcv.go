package tally

import (
	"fmt"
	"math"
	"sort"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/store"
)

// Terminal is one of the RCV state machine's terminal states (§4.G):
// INIT -> TALLY_ROUND -> {WINNER_FOUND | ELIMINATE -> TALLY_ROUND}*.
type Terminal string

const (
	SeatFilled Terminal = "SEAT_FILLED"
	SeatTied   Terminal = "SEAT_TIED"
	Exhausted  Terminal = "EXHAUSTED"
	RoundCap   Terminal = "ROUND_CAP"
)

// maxRCVRounds bounds elimination recursion (§4.G: "Recurse (bounded at 64
// rounds)").
const maxRCVRounds = 64

// errRoundCap is returned by tallySeat when a seat's elimination runs past
// maxRCVRounds without resolving, per Design Note (ii): the reimplementation
// treats this as a specified terminal state rather than guessing at an
// unimplemented "plurality of remainder" escape.
var errRoundCap = fmt.Errorf("RCV rounds exceeded safety limit")

// SequentialRCV implements §4.G's multi-seat IRV: for seat s = 1..
// open_positions, runs the single-seat elimination state machine, records
// its winners into multiseat_winners (which persists across seats) and
// winner_order, and stops at the first seat that doesn't end SEAT_FILLED.
func SequentialRCV(ref *contest.Contest, batch []CVREntry, checks map[store.Digest]bool) (*Result, error) {
	r := newResult(ref)
	multiseatWinners := map[string]bool{}

	for seat := 1; seat <= ref.OpenPositions; seat++ {
		winners, terminal, rounds, obe, err := tallySeat(ref, batch, multiseatWinners, checks, r)
		if err != nil {
			return nil, err
		}

		seatRounds := make([][]RoundCount, len(rounds))
		copy(seatRounds, rounds)
		r.Seats = append(r.Seats, SeatResult{
			Seat:        seat,
			Rounds:      seatRounds,
			OBEChoices:  obe,
			WinnerOrder: winners,
			Terminal:    terminal,
		})

		// §4.G: "Between seats, rcv_round, obe_choices, winner_order,
		// selection_counts are reset." Result's named fields therefore
		// always reflect the seat tallying just stopped on.
		if len(rounds) > 0 {
			r.RCVRound = rounds[len(rounds)-1]
		} else {
			r.RCVRound = nil
		}
		r.OBEChoices = obe
		r.WinnerOrder = winners
		r.Terminal = terminal

		if terminal != SeatFilled {
			break
		}

		for _, w := range winners {
			multiseatWinners[w] = true
		}
		r.MultiseatWinners = sortedKeys(multiseatWinners)
	}

	r.Winners = r.MultiseatWinners
	r.Tied = r.Terminal == SeatTied
	return r, nil
}

// tallySeat runs the single-seat elimination state machine described in
// §4.G. priorWinners holds every name already seated in a previous seat;
// these are excluded from both counting and elimination, per "neither
// previously eliminated this seat NOR already in multiseat_winners."
func tallySeat(ref *contest.Contest, batch []CVREntry, priorWinners map[string]bool, checks map[store.Digest]bool, r *Result) ([]string, Terminal, [][]RoundCount, map[string]int, error) {
	eliminated := map[string]bool{}
	obe := map[string]int{}
	cursors := make([]int, len(batch))

	isActive := func(name string) bool {
		return !eliminated[name] && !priorWinners[name]
	}

	// leadingFor returns ballot i's current leading active selection,
	// popping past any selection that was eliminated or already seated
	// (§4.G step 4: "pop that selection ... and any now-leading name that
	// is already eliminated or already a winner").
	leadingFor := func(i int) (string, bool) {
		sel := batch[i].Contest.Selection
		for cursors[i] < len(sel) {
			name := sel[cursors[i]]
			if isActive(name) {
				return name, true
			}
			cursors[i]++
		}
		return "", false
	}

	var rounds [][]RoundCount
	round := 0
	for {
		round++
		if round > maxRCVRounds {
			return nil, RoundCap, rounds, obe, errRoundCap
		}

		counts := map[string]int{}
		var remaining []string
		for _, name := range ref.ChoiceNames() {
			if isActive(name) {
				counts[name] = 0
				remaining = append(remaining, name)
			}
		}

		voteCount := 0
		for i := range batch {
			name, ok := leadingFor(i)
			if !ok {
				continue // ballot exhausted: no remaining ranked choice
			}
			counts[name]++
			voteCount++
			r.trace(checks, batch[i].Digest, "rcv round %d: credited %q", round, name)
		}

		rounds = append(rounds, sortedRoundCounts(ref.ChoiceNames(), counts))

		if len(remaining) == 0 {
			return nil, Exhausted, rounds, obe, nil
		}
		if len(remaining) == 1 {
			return []string{remaining[0]}, SeatFilled, rounds, obe, nil
		}
		if voteCount == 0 {
			return nil, Exhausted, rounds, obe, nil
		}

		var seatWinners []string
		for _, name := range remaining {
			if float64(counts[name])/float64(voteCount) > ref.WinBy {
				seatWinners = append(seatWinners, name)
			}
		}
		if len(seatWinners) > 0 {
			sort.Strings(seatWinners)
			return seatWinners, SeatFilled, rounds, obe, nil
		}

		min := math.MaxInt
		for _, name := range remaining {
			if counts[name] < min {
				min = counts[name]
			}
		}
		var lastPlace []string
		for _, name := range remaining {
			if counts[name] == min {
				lastPlace = append(lastPlace, name)
			}
		}
		if len(lastPlace) == len(remaining) {
			sort.Strings(lastPlace)
			return lastPlace, SeatTied, rounds, obe, nil
		}

		for _, name := range lastPlace {
			eliminated[name] = true
			obe[name] = round
		}
	}
}

func sortedRoundCounts(names []string, counts map[string]int) []RoundCount {
	out := make([]RoundCount, 0, len(counts))
	for _, name := range names {
		if c, ok := counts[name]; ok {
			out = append(out, RoundCount{Name: name, Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
