package node

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgrid/chain"
	"ledgrid/consensus"
	"ledgrid/internal/observability/metrics"
	"ledgrid/storage"
)

func TestMain(m *testing.M) {
	interProposalDelay = time.Millisecond
	m.Run()
}

func newTestNode(t *testing.T, cfg Config) *Node {
	t.Helper()
	n, err := Open(storage.NewMemStore(), cfg, metrics.New(), nil)
	require.NoError(t, err)
	return n
}

func TestConfigParseArgsRecognizedFlags(t *testing.T) {
	cfg := ParseArgs([]string{
		"node-name=alpha",
		"node-id=3",
		"port=9100",
		"peers=10.0.0.2:9000,10.0.0.3:9000",
		"ip=10.0.0.1",
		"unknown-flag=ignored",
		"malformed",
	}, nil)

	require.Equal(t, "alpha", cfg.NodeName)
	require.Equal(t, 3, cfg.NodeID)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, []string{"10.0.0.2:9000", "10.0.0.3:9000"}, cfg.Peers)
	require.Equal(t, "10.0.0.1", cfg.IP)
}

func TestConfigDefaults(t *testing.T) {
	cfg := ParseArgs(nil, nil)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestSingleNodeGenesisCommit(t *testing.T) {
	n := newTestNode(t, Config{NodeName: "n1", NodeID: 1, Port: 8000, IP: "127.0.0.1"})

	raw, err := n.Handlers()["/proposal/create/"]("127.0.0.1:8000", nil)
	require.NoError(t, err)
	var p consensus.Proposal
	require.NoError(t, json.Unmarshal(raw, &p))
	require.Equal(t, consensus.Created, p.Status)
	require.Equal(t, uint64(0), p.Block.ID)

	n.Tick() // Created -> AcceptedByNetwork (no peers to wait on)
	n.Tick() // AcceptedByNetwork -> commit -> Committed

	heightRaw, err := n.Handlers()["/API/block/height/"]("", nil)
	require.NoError(t, err)
	var b chain.Block
	require.NoError(t, json.Unmarshal(heightRaw, &b))
	require.Equal(t, uint64(0), b.ID)
	require.Equal(t, chain.GenesisParentHash, b.ParentHash)
}

func TestPoolDrainsOnCommit(t *testing.T) {
	n := newTestNode(t, Config{NodeName: "n1", NodeID: 1, Port: 8000, IP: "127.0.0.1"})

	_, err := n.Handlers()["/transaction/submit/output"]("peer", []byte("100"))
	require.NoError(t, err)
	require.Len(t, n.pool.List(), 1)

	_, err = n.Handlers()["/proposal/create/"]("127.0.0.1:8000", nil)
	require.NoError(t, err)

	n.Tick()
	n.Tick()

	require.Empty(t, n.pool.List())
}

func TestSubmitOutputThenAPIPoolListEndpoint(t *testing.T) {
	n := newTestNode(t, Config{NodeName: "n1", NodeID: 1, Port: 8000, IP: "127.0.0.1"})

	_, err := n.Handlers()["/transaction/submit/output"]("peer", []byte("42"))
	require.NoError(t, err)

	raw, err := n.Handlers()["/API/transaction/pool/"]("", nil)
	require.NoError(t, err)
	require.Contains(t, string(raw), "peer")
}

func TestProposalCreatedGuardsAgainstCompetingProposalScenarioF(t *testing.T) {
	n := newTestNode(t, Config{NodeName: "n1", NodeID: 1, Port: 8000, IP: "127.0.0.1", Peers: []string{"10.0.0.9:8000"}})

	p1, err := n.proposals.Create("10.0.0.2:8000", n.chain.LatestID(), n.chain.LatestHash(), nil)
	require.NoError(t, err)
	_, err = n.updateStatus(p1, consensus.AcceptedBroadcasted)
	require.NoError(t, err)

	p2 := p1
	p2.ID = p1.ID + 1
	p2.Sender = "10.0.0.3:8000"

	raw, _ := json.Marshal(p2)
	_, err = n.Handlers()["/proposal/created/"]("10.0.0.3:8000", raw)
	require.Error(t, err)
}
