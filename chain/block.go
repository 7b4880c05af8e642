// Package chain implements the Block entity, its index and the commit
// state machine that applies transactions against world state.
package chain

import (
	"strconv"

	"ledgrid/internal/clock"
	"ledgrid/internal/hashutil"
	"ledgrid/txpool"
)

// GenesisParentHash is the sentinel parent hash carried by block id 0.
const GenesisParentHash = "00000000000000000"

// Block is a committed (or candidate) batch of transactions tied to the
// chain by parent_hash and id.
type Block struct {
	ID           uint64               `json:"id"`
	Hash         string               `json:"hash"`
	ParentHash   string               `json:"parent_hash"`
	Timestamp    string               `json:"timestamp"`
	ProposalHash string               `json:"proposal_hash"`
	Data         string               `json:"data"`
	Transactions []txpool.Transaction `json:"transactions"`
}

func (b Block) computeHash() string {
	return hashutil.SHA256Hex(strconv.FormatUint(b.ID, 10) + b.Timestamp)
}

// New builds the next candidate block off latestID/latestHash (latestID
// == -1 meaning an empty chain, producing the genesis candidate), draining
// pending into its transaction sequence.
func New(latestID int64, latestHash, proposalHash string, pending []txpool.Transaction) Block {
	b := Block{
		Timestamp:    clock.Now(),
		ProposalHash: proposalHash,
		Transactions: pending,
	}
	if latestID < 0 {
		b.ID = 0
		b.ParentHash = GenesisParentHash
	} else {
		b.ID = uint64(latestID) + 1
		b.ParentHash = latestHash
	}
	b.Hash = b.computeHash()
	return b
}
