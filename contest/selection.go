package contest

import "fmt"

// SelectionError reports an invalid voter action against a contest (§7):
// non-fatal, meant to be surfaced to a UI layer and recovered in-component,
// the only error in the taxonomy that is.
type SelectionError struct {
	ContestName string
	Reason      string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("contest %q: invalid selection: %s", e.ContestName, e.Reason)
}

// AddSelection implements §4.D's add_selection(name | offset): exactly one
// of name/byOffset must be supplied (byOffset >= 0 selects it), offset must
// be in range, name must exist in choices, and duplicates are rejected.
// Insertion order is preserved, which is what gives selection its meaning as
// rank for RCV tallying.
func (c *Contest) AddSelection(name string, byOffset int) error {
	haveName := name != ""
	haveOffset := byOffset >= 0
	if haveName == haveOffset {
		return &SelectionError{ContestName: c.ContestName, Reason: "exactly one of name or offset must be supplied"}
	}

	var resolved string
	if haveOffset {
		if byOffset >= len(c.Choices) {
			return &SelectionError{ContestName: c.ContestName, Reason: fmt.Sprintf("offset %d out of range (%d choices)", byOffset, len(c.Choices))}
		}
		resolved = c.Choices[byOffset].Name
	} else {
		if !c.HasChoice(name) {
			return &SelectionError{ContestName: c.ContestName, Reason: fmt.Sprintf("choice %q does not exist", name)}
		}
		resolved = name
	}

	for _, s := range c.Selection {
		if s == resolved {
			return &SelectionError{ContestName: c.ContestName, Reason: fmt.Sprintf("choice %q already selected", resolved)}
		}
	}

	if len(c.Selection) >= c.MaxSelections {
		return &SelectionError{ContestName: c.ContestName, Reason: fmt.Sprintf("selection already at max_selections (%d)", c.MaxSelections)}
	}

	c.Selection = append(c.Selection, resolved)
	return nil
}
