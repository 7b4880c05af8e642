package consensus

// ElectProposer returns the node id (1-indexed) whose turn it is to create
// the next proposal, rotating round-robin across the peerCount+1
// participants.
//
// The worked election table this is grounded on (peer_count=2, expected
// proposer after commits at latest_block_id 0..6 and 66: 1,2,3,1,2,3,1,1)
// only reproduces under `(latest_block_id mod (peer_count+1)) + 1`; adding
// 1 to latest_block_id before the modulus, as an earlier draft of this
// formula read, shifts every entry by one and fails the table. This
// implementation follows the table.
func ElectProposer(peerCount int, latestBlockID int64) int {
	participants := int64(peerCount + 1)
	mod := latestBlockID % participants
	if mod < 0 {
		mod += participants
	}
	return int(mod) + 1
}
