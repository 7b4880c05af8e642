package chain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"ledgrid/internal/ringindex"
	"ledgrid/state"
	"ledgrid/storage"
	"ledgrid/txpool"
)

const indexKey = "chain.index"

// record is the lightweight block-index entry: enough to walk ancestry
// without loading every block's full transaction sequence.
type record struct {
	ID           uint64 `json:"id"`
	Hash         string `json:"hash"`
	ParentHash   string `json:"parent_hash"`
	Timestamp    string `json:"timestamp"`
	ProposalHash string `json:"proposal_hash"`
}

type blockIndex struct {
	Blocks map[string]record `json:"blocks"`
}

// Chain is the committed block index plus the per-block object store.
type Chain struct {
	mu    sync.Mutex
	store storage.Store
	idx   blockIndex
}

// Open loads the block index from store, starting empty if none exists.
func Open(store storage.Store) (*Chain, error) {
	c := &Chain{store: store, idx: blockIndex{Blocks: make(map[string]record)}}
	raw, ok, err := store.Read(indexKey)
	if err != nil {
		return nil, fmt.Errorf("chain: read index: %w", err)
	}
	if !ok {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c.idx); err != nil {
		return nil, fmt.Errorf("chain: decode index: %w", err)
	}
	if c.idx.Blocks == nil {
		c.idx.Blocks = make(map[string]record)
	}
	return c, nil
}

func objectKey(id uint64) string {
	return "chain/" + strconv.FormatUint(id, 10) + ".json"
}

// LatestID returns the highest committed block id, or -1 if the chain is
// empty.
func (c *Chain) LatestID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestIDLocked()
}

func (c *Chain) latestIDLocked() int64 {
	latest := int64(-1)
	for k := range c.idx.Blocks {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if id > latest {
			latest = id
		}
	}
	return latest
}

// LatestHash returns the hash of the latest committed block, or "" if the
// chain is empty.
func (c *Chain) LatestHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	latest := c.latestIDLocked()
	if latest < 0 {
		return ""
	}
	r, ok := c.idx.Blocks[strconv.FormatInt(latest, 10)]
	if !ok {
		return ""
	}
	return r.Hash
}

// Get returns the lightweight index record for id.
func (c *Chain) Get(id uint64) (record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.idx.Blocks[strconv.FormatUint(id, 10)]
	return r, ok
}

// GetFull loads the complete block (including transactions) from the
// object store.
func (c *Chain) GetFull(id uint64) (Block, bool, error) {
	raw, ok, err := c.store.Read(objectKey(id))
	if err != nil {
		return Block{}, false, fmt.Errorf("chain: read block %d: %w", id, err)
	}
	if !ok {
		return Block{}, false, nil
	}
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return Block{}, false, fmt.Errorf("chain: decode block %d: %w", id, err)
	}
	return b, true, nil
}

// Validate checks ancestry and sequence for a non-genesis candidate block,
// per the commit state machine in SPEC_FULL.md §4.4. Callers must not call
// Validate for block.ID == 0; commit treats genesis as unconditionally
// valid.
func (c *Chain) Validate(block Block) error {
	latest := c.LatestID()
	switch {
	case latest == 0:
		// Genesis successor path: the source behavior this is grounded on
		// accepts the block unconditionally once only genesis is
		// committed, deferring ancestry enforcement to later heights.
		return nil
	case latest > 0:
		if block.ID == 0 {
			return fmt.Errorf("chain: block %d conflicts with existing chain", block.ID)
		}
		prevID := block.ID - 1
		prev, ok := c.Get(prevID)
		if !ok {
			return fmt.Errorf("chain: ancestry check: missing block %d", prevID)
		}
		if prev.Hash != block.ParentHash {
			return fmt.Errorf("chain: ancestry mismatch for block %d", block.ID)
		}
		if block.ID != prev.ID+1 {
			return fmt.Errorf("chain: sequence mismatch: block %d does not follow %d", block.ID, prev.ID)
		}
		return nil
	default:
		return fmt.Errorf("chain: validate called against an empty chain")
	}
}

// CommitIfValid executes block.Transactions against st and, on success,
// commits block to the index and object store and clears pool. A block that
// fails validation returns Rejected; any later step failing returns
// CommitError and leaves the block uncommitted.
func (c *Chain) CommitIfValid(block Block, pool *txpool.Pool, st *state.State) (Status, error) {
	if block.ID != 0 {
		if err := c.Validate(block); err != nil {
			return Rejected, err
		}
	}

	txpool.ExecuteBlock(block.Transactions, st)
	if err := st.Save(); err != nil {
		return CommitError, fmt.Errorf("chain: persist state: %w", err)
	}

	if err := c.insert(block); err != nil {
		return CommitError, fmt.Errorf("chain: insert index: %w", err)
	}
	if err := c.writeObject(block); err != nil {
		return CommitError, fmt.Errorf("chain: write object: %w", err)
	}
	if err := pool.Clear(); err != nil {
		return CommitError, fmt.Errorf("chain: clear pool: %w", err)
	}
	return Committed, nil
}

func (c *Chain) insert(block Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strconv.FormatUint(block.ID, 10)
	if existing, ok := c.idx.Blocks[key]; ok {
		if existing.Hash != block.Hash {
			return fmt.Errorf("chain: block %d already committed with a different hash", block.ID)
		}
		return nil
	}
	c.idx.Blocks[key] = record{
		ID:           block.ID,
		Hash:         block.Hash,
		ParentHash:   block.ParentHash,
		Timestamp:    block.Timestamp,
		ProposalHash: block.ProposalHash,
	}
	c.evictLocked()
	return c.persistLocked()
}

func (c *Chain) evictLocked() {
	ids := make([]string, 0, len(c.idx.Blocks))
	for k := range c.idx.Blocks {
		ids = append(ids, k)
	}
	keep := ringindex.KeepRecent(ids, ringindex.Window)
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			delete(c.idx.Blocks, id)
		}
	}
}

func (c *Chain) persistLocked() error {
	raw, err := json.Marshal(c.idx)
	if err != nil {
		return fmt.Errorf("chain: encode index: %w", err)
	}
	return c.store.Write(indexKey, raw)
}

func (c *Chain) writeObject(block Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("chain: encode block %d: %w", block.ID, err)
	}
	return c.store.Write(objectKey(block.ID), raw)
}
