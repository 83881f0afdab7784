// Package address implements the address-to-ballot resolver (§3, §4.B):
// mapping a postal address to an ordered list of active GGO nodes and a
// ballot template location.
package address

import (
	"fmt"
	"path"
	"regexp"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/electionconfig"
)

// Address is the recognized-keys mapping described in §3: every value is a
// (possibly empty) string, never absent.
type Address struct {
	Number   string
	Street   string
	Substreet string
	Town     string
	State    string
	Country  string
	Zipcode  string

	// ActiveGGOs, BallotNode, BallotSubdir are populated by MapGGos.
	ActiveGGOs  []string
	BallotNode  string
	BallotSubdir string
}

// Value returns the address field named by field, the same name used in
// config.ElectionConfig.RequiredGGOAddressFields.
func (a *Address) Value(field string) (string, bool) {
	switch field {
	case "number":
		return a.Number, true
	case "street":
		return a.Street, true
	case "substreet":
		return a.Substreet, true
	case "town":
		return a.Town, true
	case "state":
		return a.State, true
	case "country":
		return a.Country, true
	case "zipcode":
		return a.Zipcode, true
	default:
		return "", false
	}
}

// ResolutionError reports that an address cannot be resolved to a unique
// ballot (§7): non-fatal, no state mutated.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("address resolution: %s", e.Reason)
}

// MapGGos implements §4.B's map_ggos(config): mutates a in place, walking
// from the configured root down through the required GGO hierarchy fields,
// then searching descendants of the resulting leaf for the single
// unique-ballots entry this address matches.
//
// Path construction: each required field contributes one "GGOs/{value}"
// path segment, one node per hierarchy level, matching the directory-per-
// node tree electionconfig.Load walks (see its package doc). The field's
// own name only selects which address value to use at that level; it does
// not contribute its own path segment, since electionconfig's tree has no
// separate "kind" grouping directory between hierarchy levels.
func MapGGos(a *Address, ec *electionconfig.ElectionConfig, cfg config.ElectionConfig) error {
	activeGGOs := []string{electionconfig.RootPath}
	current := electionconfig.RootPath

	for _, field := range cfg.RequiredGGOAddressFields {
		value, ok := a.Value(field)
		if !ok {
			return &ResolutionError{Reason: fmt.Sprintf("unknown required address field %q", field)}
		}
		next := path.Join(current, "GGOs", value)
		if !ec.IsNode(next) {
			return &ResolutionError{Reason: fmt.Sprintf("no GGO node at %q (field %q=%q)", next, field, value)}
		}
		activeGGOs = append(activeGGOs, next)
		current = next
	}

	leaf := current
	matchedPaths, matchedEntry, err := findUniqueBallotsMatch(ec, leaf, a)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(activeGGOs))
	for _, p := range activeGGOs {
		seen[p] = true
	}
	for _, p := range matchedPaths {
		if !seen[p] {
			activeGGOs = append(activeGGOs, p)
			seen[p] = true
		}
	}

	a.ActiveGGOs = activeGGOs
	a.BallotNode = leaf
	node, _ := ec.Node(leaf)
	a.BallotSubdir = node.Subdir
	_ = matchedEntry
	return nil
}

// findUniqueBallotsMatch implements §4.B steps 3-4: starting at leaf, walk
// every descendant exactly once (electionconfig.Descendants already guards
// cycles with a visited set) looking for unique-ballots entries that match
// "{number} {street}"; exactly one descendant must match.
func findUniqueBallotsMatch(ec *electionconfig.ElectionConfig, leaf string, a *Address) ([]string, *electionconfig.UniqueBallotsEntry, error) {
	candidateAddress := fmt.Sprintf("%s %s", a.Number, a.Street)

	type hit struct {
		paths []string
		entry electionconfig.UniqueBallotsEntry
	}
	var hits []hit

	checkNode := func(p string) error {
		node, ok := ec.Node(p)
		if !ok || node.AddressMap.Kind != electionconfig.AddressMapUnique {
			return nil
		}
		for _, entry := range node.AddressMap.UniqueBallots {
			for _, pattern := range entry.Regexes {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("address resolution: invalid regex %q at %q: %w", pattern, p, err)
				}
				if re.MatchString(candidateAddress) {
					hits = append(hits, hit{paths: entry.GGOPaths, entry: entry})
					break
				}
			}
		}
		return nil
	}

	if err := checkNode(leaf); err != nil {
		return nil, nil, err
	}
	for _, d := range ec.Descendants(leaf) {
		if err := checkNode(d); err != nil {
			return nil, nil, err
		}
	}

	switch len(hits) {
	case 0:
		return nil, nil, &ResolutionError{Reason: "no address_map"}
	case 1:
		return hits[0].paths, &hits[0].entry, nil
	default:
		return nil, nil, &ResolutionError{Reason: "ambiguous"}
	}
}
