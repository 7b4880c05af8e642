// Package txpool implements the Transaction entity, its pool index and the
// deterministic per-kind execution scripts run against world state at block
// commit time.
package txpool

import (
	"fmt"
	"strconv"

	"ledgrid/internal/clock"
	"ledgrid/internal/codec"
	"ledgrid/internal/hashutil"
)

// Kind distinguishes the two built-in execution scripts.
type Kind string

const (
	Output Kind = "Output"
	Input  Kind = "Input"
)

// Transaction is a single pool entry: an opaque payload submitted by a peer
// and tagged with the script that will interpret it at commit time.
type Transaction struct {
	ID        uint64 `json:"id"`
	Timestamp string `json:"timestamp"`
	Kind      Kind   `json:"kind"`
	Sender    string `json:"sender"`
	Data      string `json:"data"` // base64
	Hash      string `json:"hash"`
}

// newTransaction builds a Transaction with a freshly computed hash and
// timestamp, Base64-encoding the raw payload.
func newTransaction(id uint64, kind Kind, sender, rawData string) Transaction {
	tx := Transaction{
		ID:        id,
		Timestamp: clock.Now(),
		Kind:      kind,
		Sender:    sender,
		Data:      codec.Base64Encode(rawData),
	}
	tx.Hash = tx.computeHash()
	return tx
}

func (tx Transaction) computeHash() string {
	return hashutil.SHA256Hex(strconv.FormatUint(tx.ID, 10) + tx.Timestamp + tx.Data)
}

// Verify reports whether Hash still matches ID, Timestamp and Data, the way
// an inbound/replayed transaction record should be checked before trust.
func (tx Transaction) Verify() error {
	if want := tx.computeHash(); want != tx.Hash {
		return fmt.Errorf("txpool: hash mismatch for transaction %d: want %s got %s", tx.ID, want, tx.Hash)
	}
	return nil
}
