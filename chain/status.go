package chain

// Status is the commit state machine's outcome for a single candidate
// block.
type Status string

const (
	Proposed    Status = "Proposed"
	Executing   Status = "Executing"
	Committed   Status = "Committed"
	Rejected    Status = "Rejected"
	CommitError Status = "CommitError"
)
