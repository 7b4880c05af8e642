package node

import (
	"fmt"
	"time"

	"ledgrid/consensus"
)

const transitionWindow = 5

// interProposalDelay is the pause between evaluating consecutive
// proposals within one tick (§5: ~5s).
var interProposalDelay = 5 * time.Second

// Run drives the periodic control loop (§4.7) until stop is closed: sweep
// every live proposal's transition, then create a new one if this node is
// the elected proposer and the chain is quiescent.
func (n *Node) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.Tick()
		}
	}
}

// Tick runs one sweep of the control loop. It is exported so callers (and
// tests) can drive it deterministically instead of waiting on Run's
// ticker.
func (n *Node) Tick() {
	proposals, err := n.proposals.Recent()
	if err != nil {
		n.logf("tick: load proposals failed: %s", err)
		return
	}

	latestCommitted := n.chain.LatestID()
	for _, p := range proposals {
		if int64(p.Block.ID) < latestCommitted-transitionWindow || int64(p.Block.ID) > latestCommitted+transitionWindow {
			continue
		}
		n.determineTransitionStep(p)
		time.Sleep(interProposalDelay)
	}

	n.maybeCreateNext(proposals)
}

func (n *Node) determineTransitionStep(p consensus.Proposal) {
	n.maybeRequestSync(p)

	switch p.Status {
	case consensus.Created:
		n.tallyCreated(p)
	case consensus.AcceptedByNetwork:
		if err := n.commitProposal(p); err != nil {
			n.logf("commit retry for proposal %d failed: %s", p.ID, err)
		}
	}
}

// tallyCreated resolves a Created proposal (one this node authored) to
// AcceptedByNetwork once every peer has voted Accepted, or to
// RejectedByNetwork as soon as any peer has voted Rejected.
func (n *Node) tallyCreated(p consensus.Proposal) {
	peers := n.cfg.Peers
	if len(peers) == 0 {
		updated, err := n.updateStatus(p, consensus.AcceptedByNetwork)
		if err != nil {
			n.logf("tally for proposal %d failed: %s", p.ID, err)
			return
		}
		n.broadcastResolution(updated)
		return
	}

	accepted := 0
	for _, peer := range peers {
		switch p.PeerVotes[peer] {
		case consensus.Rejected:
			updated, err := n.updateStatus(p, consensus.RejectedByNetwork)
			if err != nil {
				n.logf("tally for proposal %d failed: %s", p.ID, err)
				return
			}
			n.broadcastResolution(updated)
			return
		case consensus.Accepted:
			accepted++
		}
	}
	if accepted < len(peers) {
		return // still waiting on some peers
	}
	updated, err := n.updateStatus(p, consensus.AcceptedByNetwork)
	if err != nil {
		n.logf("tally for proposal %d failed: %s", p.ID, err)
		return
	}
	n.broadcastResolution(updated)
}

// maybeCreateNext creates the next proposal once the latest one has
// reached a terminal status and this node is the elected proposer.
func (n *Node) maybeCreateNext(proposals []consensus.Proposal) {
	latestCommitted := n.chain.LatestID()

	if len(proposals) > 0 {
		latest := proposals[0]
		for _, p := range proposals[1:] {
			if p.ID > latest.ID {
				latest = p
			}
		}
		if !consensus.Terminal(latest.Status) {
			return
		}
	}

	if consensus.ElectProposer(len(n.cfg.Peers), latestCommitted) != n.cfg.NodeID {
		return
	}
	if _, err := n.createProposal(n.cfg.Address()); err != nil {
		n.logf("create proposal failed: %s", err)
	}
}

func (n *Node) logf(format string, args ...any) {
	if n.logger == nil {
		return
	}
	n.logger.Warn(fmt.Sprintf(format, args...))
}
