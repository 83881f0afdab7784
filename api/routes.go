package api

// Route constants for the API endpoints.

const (
	// PingEndpoint is the liveness check.
	PingEndpoint = "/ping"

	// ElectionIDParam and ContestUidParam are the URL parameters every
	// contest-scoped endpoint below takes.
	ElectionIDParam = "electionId"
	ContestUidParam = "uid"

	electionPrefix = "/elections/{" + ElectionIDParam + "}"
	contestPrefix  = electionPrefix + "/contests/{" + ContestUidParam + "}"

	// BranchesEndpoint reports the outstanding (unmerged) branch count for
	// a contest, the anonymity-set introspection §4.N calls for: counts
	// only, never branch contents.
	BranchesEndpoint = contestPrefix + "/branches"

	// MergeEndpoint runs a merge sweep over an election's outstanding
	// branches (operational/admin use only). The sweep keeps the
	// anonymity-set guard unless the request carries ?flush=true.
	MergeEndpoint = electionPrefix + "/merge"

	// TallyEndpoint runs (or re-runs) the tally for a contest and returns
	// its human-readable log.
	TallyEndpoint = contestPrefix + "/tally"
)

// LogExcludedPrefixes defines URL prefixes to exclude from request logging.
var LogExcludedPrefixes = []string{
	PingEndpoint,
}
