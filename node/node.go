// Package node implements the aggregate orchestrator: one object holding
// the Store-backed indices, the Transport client and the node's own
// configuration, replacing the "a trait per operation" shape of the
// source with a small set of module-scoped functions hung off a single
// struct.
package node

import (
	"fmt"
	"log/slog"

	"ledgrid/chain"
	"ledgrid/consensus"
	"ledgrid/internal/observability/metrics"
	"ledgrid/state"
	"ledgrid/storage"
	"ledgrid/transport"
	"ledgrid/txpool"
)

// Node is the single control point wiring the chain, proposal and pool
// indices, world state and outbound transport together.
type Node struct {
	cfg Config

	chain     *chain.Chain
	proposals *consensus.Store
	pool      *txpool.Pool
	state     *state.State

	client  *transport.Client
	metrics *metrics.Registry
	logger  *slog.Logger
}

// Open loads every index from store and wires a Node ready to serve
// requests and run its tick loop.
func Open(store storage.Store, cfg Config, reg *metrics.Registry, logger *slog.Logger) (*Node, error) {
	c, err := chain.Open(store)
	if err != nil {
		return nil, fmt.Errorf("node: open chain: %w", err)
	}
	proposals, err := consensus.Open(store)
	if err != nil {
		return nil, fmt.Errorf("node: open proposals: %w", err)
	}
	pool, err := txpool.Open(store)
	if err != nil {
		return nil, fmt.Errorf("node: open pool: %w", err)
	}
	st, err := state.Load(store)
	if err != nil {
		return nil, fmt.Errorf("node: load state: %w", err)
	}

	return &Node{
		cfg:       cfg,
		chain:     c,
		proposals: proposals,
		pool:      pool,
		state:     st,
		client:    transport.NewClient(cfg.Address(), 20, 20, reg, logger),
		metrics:   reg,
		logger:    logger,
	}, nil
}
