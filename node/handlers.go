package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"ledgrid/chain"
	"ledgrid/consensus"
	"ledgrid/transport"
)

// Handlers returns every inbound endpoint this node serves, keyed by path,
// ready to hand to transport.NewServer.
func (n *Node) Handlers() map[string]transport.Handler {
	return map[string]transport.Handler{
		"/proposal/create/":          n.handleProposalCreate,
		"/proposal/created/":         n.handleProposalCreated,
		"/proposal/response/":        n.handleProposalResponse,
		"/proposal/resolution/":      n.handleProposalResolution,
		"/block/query/":              n.handleBlockQuery,
		"/block/response/":           n.handleBlockResponse,
		"/transaction/submit/output": n.handleSubmitOutput,
		"/transaction/submit/input":  n.handleSubmitInput,
		"/API/block/height/":         n.handleBlockHeight,
		"/API/block/get/":            n.handleBlockGet,
		"/API/proposal/latest/":      n.handleProposalLatest,
		"/API/transaction/pool/":     n.handlePoolList,
	}
}

func (n *Node) handleProposalCreate(sender string, _ []byte) ([]byte, error) {
	return n.createProposal(sender)
}

// createProposal builds and persists a new proposal as Created, then
// broadcasts it to every peer for a vote.
func (n *Node) createProposal(sender string) ([]byte, error) {
	p, err := n.proposals.Create(sender, n.chain.LatestID(), n.chain.LatestHash(), n.pool.List())
	if err != nil {
		return nil, fmt.Errorf("node: create proposal: %w", err)
	}
	updated, err := n.updateStatus(p, consensus.Created)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("node: encode proposal %d: %w", updated.ID, err)
	}
	n.client.Broadcast(context.Background(), n.cfg.Peers, "/proposal/created/", raw)
	return raw, nil
}

// handleProposalCreated validates an inbound proposal and votes on it.
// Scenario F's guard (a competing proposal at a height this node already
// voted on) is handled by leaving the proposal unstored and returning the
// guard error: the competing proposal is simply never voted on.
func (n *Node) handleProposalCreated(origin string, payload []byte) ([]byte, error) {
	var p consensus.Proposal
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("node: decode proposal: %w", err)
	}

	n.maybeRequestSync(p)

	status, verr := n.proposals.Validate(p, n.chain.LatestID())
	if status == consensus.Error {
		return nil, verr
	}

	if status == consensus.Accepted {
		p.Status = consensus.Accepted
	} else {
		p.Status = consensus.Rejected
	}
	if err := n.proposals.Put(p); err != nil {
		return nil, err
	}
	if n.metrics != nil {
		n.metrics.ProposalTransitions.WithLabelValues(string(p.Status)).Inc()
	}

	broadcastStatus := consensus.AcceptedBroadcasted
	if p.Status == consensus.Rejected {
		broadcastStatus = consensus.RejectedBroadcasted
	}
	updated, err := n.updateStatus(p, broadcastStatus)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("node: encode proposal %d: %w", updated.ID, err)
	}
	n.client.Broadcast(context.Background(), []string{origin}, "/proposal/response/", raw)
	return raw, nil
}

// voteValue collapses a peer's broadcasted status into the meaningful
// {Accepted, Rejected} values the peer_votes map records.
func voteValue(s consensus.Status) consensus.Status {
	switch s {
	case consensus.Accepted, consensus.AcceptedBroadcasted, consensus.AcceptedByNetwork, consensus.Committed:
		return consensus.Accepted
	default:
		return consensus.Rejected
	}
}

func (n *Node) handleProposalResponse(origin string, payload []byte) ([]byte, error) {
	var received consensus.Proposal
	if err := json.Unmarshal(payload, &received); err != nil {
		return nil, fmt.Errorf("node: decode proposal: %w", err)
	}
	local, ok, err := n.proposals.Get(received.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node: unknown proposal %d", received.ID)
	}
	updated, err := n.proposals.RecordPeerVote(local, origin, voteValue(received.Status))
	if err != nil {
		return nil, err
	}
	return json.Marshal(updated)
}

func (n *Node) handleProposalResolution(origin string, payload []byte) ([]byte, error) {
	var received consensus.Proposal
	if err := json.Unmarshal(payload, &received); err != nil {
		return nil, fmt.Errorf("node: decode proposal: %w", err)
	}
	local, ok, err := n.proposals.Get(received.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node: unknown proposal %d", received.ID)
	}
	if local.Status != consensus.AcceptedBroadcasted {
		return json.Marshal(local)
	}
	if received.Status != consensus.AcceptedByNetwork && received.Status != consensus.Committed {
		return json.Marshal(local)
	}
	if err := n.commitProposal(local); err != nil {
		return nil, err
	}
	updated, _, err := n.proposals.Get(local.ID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(updated)
}

func (n *Node) handleBlockQuery(origin string, payload []byte) ([]byte, error) {
	id, err := strconv.ParseUint(string(payload), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("node: decode block id: %w", err)
	}
	proposals, err := n.proposals.Recent()
	if err != nil {
		return nil, err
	}
	for _, p := range proposals {
		if p.Status == consensus.Committed && p.Block.ID == id {
			return json.Marshal(p)
		}
	}
	return nil, fmt.Errorf("node: no committed proposal for block %d", id)
}

func (n *Node) handleBlockResponse(origin string, payload []byte) ([]byte, error) {
	var p consensus.Proposal
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("node: decode proposal: %w", err)
	}
	status, err := n.chain.CommitIfValid(p.Block, n.pool, n.state)
	if err != nil {
		return nil, err
	}
	if status == chain.Committed && n.metrics != nil {
		n.metrics.BlocksCommitted.Inc()
		n.metrics.TransactionsExecuted.Add(float64(len(p.Block.Transactions)))
	}
	return json.Marshal(struct {
		Status chain.Status `json:"status"`
	}{status})
}

func (n *Node) handleSubmitOutput(origin string, payload []byte) ([]byte, error) {
	tx, err := n.pool.SubmitOutput(origin, string(payload))
	if err != nil {
		return nil, err
	}
	return json.Marshal(tx)
}

func (n *Node) handleSubmitInput(origin string, payload []byte) ([]byte, error) {
	tx, err := n.pool.SubmitInput(origin, string(payload))
	if err != nil {
		return nil, err
	}
	return json.Marshal(tx)
}

func (n *Node) handleBlockHeight(string, []byte) ([]byte, error) {
	latest := n.chain.LatestID()
	if latest < 0 {
		return nil, fmt.Errorf("node: chain is empty")
	}
	b, ok, err := n.chain.GetFull(uint64(latest))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node: missing block %d", latest)
	}
	return json.Marshal(b)
}

func (n *Node) handleBlockGet(origin string, payload []byte) ([]byte, error) {
	id, err := strconv.ParseUint(string(payload), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("node: decode block id: %w", err)
	}
	b, ok, err := n.chain.GetFull(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node: unknown block %d", id)
	}
	return json.Marshal(b)
}

func (n *Node) handleProposalLatest(string, []byte) ([]byte, error) {
	latest, ok, err := n.latestProposal()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node: no proposals yet")
	}
	return json.Marshal(latest)
}

func (n *Node) handlePoolList(string, []byte) ([]byte, error) {
	return json.Marshal(n.pool.List())
}

func (n *Node) latestProposal() (consensus.Proposal, bool, error) {
	proposals, err := n.proposals.Recent()
	if err != nil {
		return consensus.Proposal{}, false, err
	}
	if len(proposals) == 0 {
		return consensus.Proposal{}, false, nil
	}
	latest := proposals[0]
	for _, p := range proposals[1:] {
		if p.ID > latest.ID {
			latest = p
		}
	}
	return latest, true, nil
}

func (n *Node) updateStatus(p consensus.Proposal, status consensus.Status) (consensus.Proposal, error) {
	updated, err := n.proposals.UpdateStatus(p, status)
	if err != nil {
		return consensus.Proposal{}, fmt.Errorf("node: update proposal %d status: %w", p.ID, err)
	}
	if n.metrics != nil {
		n.metrics.ProposalTransitions.WithLabelValues(string(status)).Inc()
	}
	return updated, nil
}

// commitProposal runs the sync sub-step, commits p.Block, advances p to
// Committed and broadcasts the resolution.
func (n *Node) commitProposal(p consensus.Proposal) error {
	n.maybeRequestSync(p)

	status, err := n.chain.CommitIfValid(p.Block, n.pool, n.state)
	if err != nil {
		return err
	}
	if status != chain.Committed {
		return fmt.Errorf("node: commit for proposal %d ended in %s", p.ID, status)
	}
	if n.metrics != nil {
		n.metrics.BlocksCommitted.Inc()
		n.metrics.TransactionsExecuted.Add(float64(len(p.Block.Transactions)))
	}

	updated, err := n.updateStatus(p, consensus.Committed)
	if err != nil {
		return err
	}
	n.broadcastResolution(updated)
	return nil
}

func (n *Node) broadcastResolution(p consensus.Proposal) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	n.client.Broadcast(context.Background(), n.cfg.Peers, "/proposal/resolution/", raw)
}

// maybeRequestSync issues a /block/query/ broadcast when this node is
// behind the block the proposal builds on.
func (n *Node) maybeRequestSync(p consensus.Proposal) {
	if p.Block.ID == 0 {
		return
	}
	missing := p.Block.ID - 1
	if n.chain.LatestID() >= int64(missing) {
		return
	}
	n.client.Broadcast(context.Background(), n.cfg.Peers, "/block/query/", []byte(strconv.FormatUint(missing, 10)))
}
