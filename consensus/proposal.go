package consensus

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"ledgrid/chain"
	"ledgrid/internal/clock"
	"ledgrid/internal/hashutil"
	"ledgrid/internal/ringindex"
	"ledgrid/storage"
	"ledgrid/txpool"
)

// Proposal is one node's candidate for the next committed block.
type Proposal struct {
	ID        uint64            `json:"id"`
	Status    Status            `json:"status"`
	Hash      string            `json:"hash"`
	Timestamp string            `json:"timestamp"`
	Sender    string            `json:"sender"`
	Block     chain.Block       `json:"block"`
	PeerVotes map[string]Status `json:"peer_votes"`
}

func (p Proposal) computeHash() string {
	return hashutil.SHA256Hex(strconv.FormatUint(p.ID, 10) + p.Sender + p.Timestamp)
}

// CompareWithoutStatus reports whether a and b are equal across every field
// except Status, so a status-only change does not count as a difference.
func CompareWithoutStatus(a, b Proposal) bool {
	a.Status, b.Status = "", ""
	return reflect.DeepEqual(a, b)
}

// indexRecord is the lightweight proposal-index entry: a status-only
// summary. The per-proposal object file is authoritative for everything
// else, including PeerVotes, so the two never drift against each other.
type indexRecord struct {
	ID     uint64 `json:"id"`
	Status Status `json:"status"`
}

type proposalIndex struct {
	Proposals map[string]indexRecord `json:"proposals"`
}

const indexKey = "proposal.index"

// Store is the Proposal index plus per-proposal object store.
type Store struct {
	mu    sync.Mutex
	store storage.Store
	idx   proposalIndex
}

// Open loads the proposal index, starting empty if none exists.
func Open(store storage.Store) (*Store, error) {
	s := &Store{store: store, idx: proposalIndex{Proposals: make(map[string]indexRecord)}}
	raw, ok, err := store.Read(indexKey)
	if err != nil {
		return nil, fmt.Errorf("consensus: read index: %w", err)
	}
	if !ok {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.idx); err != nil {
		return nil, fmt.Errorf("consensus: decode index: %w", err)
	}
	if s.idx.Proposals == nil {
		s.idx.Proposals = make(map[string]indexRecord)
	}
	return s, nil
}

func objectKey(id uint64) string {
	return "proposal/" + strconv.FormatUint(id, 10) + ".json"
}

func (s *Store) maxID() (uint64, bool) {
	var max uint64
	any := false
	for k := range s.idx.Proposals {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		if !any || id > max {
			max = id
			any = true
		}
	}
	return max, any
}

// Create builds, persists and returns a new Pending proposal, building its
// embedded candidate block over the chain's current tip via chain.New.
func (s *Store) Create(sender string, latestChainID int64, latestChainHash string, pendingTxs []txpool.Transaction) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint64(0)
	if max, ok := s.maxID(); ok {
		id = max + 1
	}

	p := Proposal{
		ID:        id,
		Status:    Pending,
		Timestamp: clock.Now(),
		Sender:    sender,
		PeerVotes: make(map[string]Status),
	}
	p.Hash = p.computeHash()
	p.Block = chain.New(latestChainID, latestChainHash, p.Hash, pendingTxs)

	if err := s.writeObjectLocked(p); err != nil {
		return Proposal{}, err
	}
	if err := s.writeIndexEntryLocked(p.ID, p.Status); err != nil {
		return Proposal{}, err
	}
	return p, nil
}

// Put persists a proposal object received in full (an inbound proposal
// from a peer, keyed by its own id rather than one this node assigned)
// and refreshes its index status summary.
func (s *Store) Put(p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeObjectLocked(p); err != nil {
		return err
	}
	return s.writeIndexEntryLocked(p.ID, p.Status)
}

// Get loads the full proposal object for id.
func (s *Store) Get(id uint64) (Proposal, bool, error) {
	raw, ok, err := s.store.Read(objectKey(id))
	if err != nil {
		return Proposal{}, false, fmt.Errorf("consensus: read proposal %d: %w", id, err)
	}
	if !ok {
		return Proposal{}, false, nil
	}
	var p Proposal
	if err := json.Unmarshal(raw, &p); err != nil {
		return Proposal{}, false, fmt.Errorf("consensus: decode proposal %d: %w", id, err)
	}
	return p, true, nil
}

// Recent returns, in ascending id order, the full proposal objects for
// every id currently in the rolling-window index.
func (s *Store) Recent() ([]Proposal, error) {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.idx.Proposals))
	for k := range s.idx.Proposals {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Proposal, 0, len(ids))
	for _, id := range ids {
		p, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// LatestBlockID returns the highest block.id across every proposal
// currently in the index, or -1 if empty.
func (s *Store) LatestBlockID() (int64, error) {
	proposals, err := s.Recent()
	if err != nil {
		return -1, err
	}
	latest := int64(-1)
	for _, p := range proposals {
		if int64(p.Block.ID) > latest {
			latest = int64(p.Block.ID)
		}
	}
	return latest, nil
}

// Validate implements the §4.5 acceptance rule: guard against competing
// proposals at a height this node already voted on, then check next-block
// sequencing and hash integrity.
func (s *Store) Validate(p Proposal, latestCommittedID int64) (Status, error) {
	existing, err := s.Recent()
	if err != nil {
		return Error, err
	}
	for _, other := range existing {
		if other.ID == p.ID {
			continue
		}
		if other.Block.ID == p.Block.ID && isGuardStatus(other.Status) {
			return Error, fmt.Errorf("consensus: already voted for block %d via proposal %d", p.Block.ID, other.ID)
		}
	}

	if int64(p.Block.ID) != latestCommittedID+1 {
		return NotValidIncorrectNextBlockIndex, fmt.Errorf("consensus: proposal %d targets block %d, expected %d", p.ID, p.Block.ID, latestCommittedID+1)
	}
	if p.computeHash() != p.Hash {
		return NotValidIncorrectProposalHash, fmt.Errorf("consensus: proposal %d hash mismatch", p.ID)
	}
	return Accepted, nil
}

// RecordPeerVote sets peer_votes[peer] = status and persists the
// per-proposal object. The index entry is untouched.
func (s *Store) RecordPeerVote(p Proposal, peer string, status Status) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.PeerVotes == nil {
		p.PeerVotes = make(map[string]Status)
	}
	p.PeerVotes[peer] = status
	if err := s.writeObjectLocked(p); err != nil {
		return Proposal{}, err
	}
	return p, nil
}

// UpdateStatus rewrites only the status field in the proposal-index entry
// and the per-proposal object file. It re-reads the object file under lock
// rather than trusting p's possibly-stale copy, so a vote recorded by
// RecordPeerVote between the caller's load and this call is never
// clobbered: only Status changes, peer_votes carry over untouched.
func (s *Store) UpdateStatus(p Proposal, status Status) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.Get(p.ID)
	if err != nil {
		return Proposal{}, err
	}
	if !ok {
		current = p
	}
	current.Status = status
	if err := s.writeObjectLocked(current); err != nil {
		return Proposal{}, err
	}
	if err := s.writeIndexEntryLocked(current.ID, status); err != nil {
		return Proposal{}, err
	}
	return current, nil
}

func (s *Store) writeObjectLocked(p Proposal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("consensus: encode proposal %d: %w", p.ID, err)
	}
	return s.store.Write(objectKey(p.ID), raw)
}

func (s *Store) writeIndexEntryLocked(id uint64, status Status) error {
	s.idx.Proposals[strconv.FormatUint(id, 10)] = indexRecord{ID: id, Status: status}
	s.evictLocked()
	raw, err := json.Marshal(s.idx)
	if err != nil {
		return fmt.Errorf("consensus: encode index: %w", err)
	}
	return s.store.Write(indexKey, raw)
}

func (s *Store) evictLocked() {
	ids := make([]string, 0, len(s.idx.Proposals))
	for k := range s.idx.Proposals {
		ids = append(ids, k)
	}
	keep := ringindex.KeepRecent(ids, ringindex.Window)
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			delete(s.idx.Proposals, id)
		}
	}
}
