// Package consensus implements the Proposal entity, its per-node voting
// state machine and round-robin proposer election.
package consensus

import "fmt"

// Status is the closed set of states a Proposal can occupy from the
// perspective of a single node.
type Status string

const (
	Pending                         Status = "Pending"
	Created                         Status = "Created"
	Accepted                        Status = "Accepted"
	AcceptedBroadcasted             Status = "AcceptedBroadcasted"
	AcceptedByNetwork                Status = "AcceptedByNetwork"
	Rejected                        Status = "Rejected"
	RejectedBroadcasted             Status = "RejectedBroadcasted"
	RejectedByNetwork                Status = "RejectedByNetwork"
	Committed                       Status = "Committed"
	NotValid                        Status = "NotValid"
	NotValidIncorrectNextBlockIndex Status = "NotValidIncorrectNextBlockIndex"
	NotValidIncorrectProposalHash   Status = "NotValidIncorrectProposalHash"
	Error                           Status = "Error"
)

var knownStatuses = map[Status]struct{}{
	Pending: {}, Created: {}, Accepted: {}, AcceptedBroadcasted: {}, AcceptedByNetwork: {},
	Rejected: {}, RejectedBroadcasted: {}, RejectedByNetwork: {}, Committed: {},
	NotValid: {}, NotValidIncorrectNextBlockIndex: {}, NotValidIncorrectProposalHash: {}, Error: {},
}

// ParseStatus validates an arbitrary string against the closed status set,
// returning an error for anything unrecognized rather than silently
// coercing it into Error.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("consensus: unknown status %q", s)
	}
	return st, nil
}

// guardStatuses is the set of statuses that, once reached locally for a
// given block id, block this node from voting on any competing proposal at
// that height.
var guardStatuses = map[Status]struct{}{
	AcceptedBroadcasted: {}, AcceptedByNetwork: {}, Committed: {}, Accepted: {},
}

func isGuardStatus(s Status) bool {
	_, ok := guardStatuses[s]
	return ok
}

// Terminal reports whether s is a terminal status for a proposal: no
// further transitions are expected.
func Terminal(s Status) bool {
	return s == Committed || s == RejectedByNetwork
}
