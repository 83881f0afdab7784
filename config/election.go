// Package config holds election-wide tunable knobs shared across every
// component, consulted from multiple cmd/ entry points.
package config

// ElectionConfig carries the handful of election-wide knobs, each with a
// single documented effect. Every cmd/ entry point builds one with
// Default() and passes it to the packages that take one; none of these
// knobs is read from flags or the environment.
type ElectionConfig struct {
	// BallotReceiptRows is both the padding row count a versioned receipt
	// uses (§4.H) and the default anonymity-set size k the merge
	// controller enforces (§4.F) when no explicit override is given.
	BallotReceiptRows int `mapstructure:"ballotReceiptRows"`
	// RequiredGGOAddressFields lists the address fields, in order, used to
	// build the initial GGO hierarchy path during resolution (§4.B step 2).
	RequiredGGOAddressFields []string `mapstructure:"requiredGGOAddressFields"`
	// RequiredNGAddressFields lists the non-GGO (leaf unique-ballots)
	// address fields. No resolution step reads it: address.MapGGos
	// consults only RequiredGGOAddressFields.
	RequiredNGAddressFields []string `mapstructure:"requiredNGAddressFields"`
	// RootElectionDataSubdir is the on-disk/tree-relative subdirectory
	// election configuration data is rooted at.
	RootElectionDataSubdir string `mapstructure:"rootElectionDataSubdir"`
	// ContestFileSubdir is the subdirectory component of a branch name and
	// CVR path: "{ContestFileSubdir}/{uid}/{nonce}".
	ContestFileSubdir string `mapstructure:"contestFileSubdir"`
	// ElectionUpstreamRemote names the upstream store remote a contest
	// records itself against, carried on every Contest record and checked
	// by tally's batch validation.
	ElectionUpstreamRemote string `mapstructure:"electionUpstreamRemote"`
}

// Default knob values. BallotReceiptRows doubles as the default anonymity
// set size k when no explicit override is given.
const (
	DefaultBallotReceiptRows      = 100
	DefaultRootElectionDataSubdir = "config"
	DefaultContestFileSubdir      = "CVRs"
	DefaultElectionUpstreamRemote = "origin"
)

// DefaultGGOAddressFields is the conventional GGO hierarchy walk order: a
// ballot's path runs from the largest jurisdiction down to the precinct.
var DefaultGGOAddressFields = []string{"state", "town"}

// DefaultNGAddressFields is the default RequiredNGAddressFields list.
var DefaultNGAddressFields = []string{"number", "street"}

// Default returns an ElectionConfig populated with every documented default.
func Default() ElectionConfig {
	return ElectionConfig{
		BallotReceiptRows:        DefaultBallotReceiptRows,
		RequiredGGOAddressFields: append([]string{}, DefaultGGOAddressFields...),
		RequiredNGAddressFields:  append([]string{}, DefaultNGAddressFields...),
		RootElectionDataSubdir:   DefaultRootElectionDataSubdir,
		ContestFileSubdir:        DefaultContestFileSubdir,
		ElectionUpstreamRemote:   DefaultElectionUpstreamRemote,
	}
}
