package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ledgrid/state"
	"ledgrid/storage"
	"ledgrid/txpool"
)

func newChainFixture(t *testing.T) (*Chain, *txpool.Pool, *state.State) {
	t.Helper()
	store := storage.NewMemStore()
	c, err := Open(store)
	require.NoError(t, err)
	pool, err := txpool.Open(store)
	require.NoError(t, err)
	st, err := state.Load(store)
	require.NoError(t, err)
	return c, pool, st
}

func TestGenesisCommit(t *testing.T) {
	c, pool, st := newChainFixture(t)

	block := New(c.LatestID(), c.LatestHash(), "proposal-hash", nil)
	require.Equal(t, uint64(0), block.ID)
	require.Equal(t, GenesisParentHash, block.ParentHash)

	status, err := c.CommitIfValid(block, pool, st)
	require.NoError(t, err)
	require.Equal(t, Committed, status)
	require.Equal(t, int64(0), c.LatestID())
}

func TestBlockHashStable(t *testing.T) {
	b := New(-1, "", "proposal-hash", nil)
	require.Equal(t, b.Hash, b.computeHash())
}

func TestSequentialCommits(t *testing.T) {
	c, pool, st := newChainFixture(t)

	genesis := New(c.LatestID(), c.LatestHash(), "p0", nil)
	_, err := c.CommitIfValid(genesis, pool, st)
	require.NoError(t, err)

	next := New(c.LatestID(), c.LatestHash(), "p1", nil)
	status, err := c.CommitIfValid(next, pool, st)
	require.NoError(t, err)
	require.Equal(t, Committed, status)
	require.Equal(t, int64(1), c.LatestID())
	require.Equal(t, genesis.Hash, next.ParentHash)
}

func TestAncestryRejection(t *testing.T) {
	c, pool, st := newChainFixture(t)

	for i := 0; i < 6; i++ {
		b := New(c.LatestID(), c.LatestHash(), "p", nil)
		_, err := c.CommitIfValid(b, pool, st)
		require.NoError(t, err)
	}
	require.Equal(t, int64(5), c.LatestID())

	bad := Block{ID: 6, ParentHash: "NOT_THE_REAL_HASH", Timestamp: "123"}
	bad.Hash = bad.computeHash()

	status, err := c.CommitIfValid(bad, pool, st)
	require.Error(t, err)
	require.Equal(t, Rejected, status)
	require.Equal(t, int64(5), c.LatestID())
}

func TestSecondCommitAtSameIDIsRejectedAfterFirstWins(t *testing.T) {
	c, pool, st := newChainFixture(t)

	genesis := New(c.LatestID(), c.LatestHash(), "p0", nil)
	_, err := c.CommitIfValid(genesis, pool, st)
	require.NoError(t, err)

	winner := New(c.LatestID(), c.LatestHash(), "pA", nil)
	status, err := c.CommitIfValid(winner, pool, st)
	require.NoError(t, err)
	require.Equal(t, Committed, status)

	competitor := Block{ID: 1, ParentHash: "some-other-hash", Timestamp: "999"}
	competitor.Hash = competitor.computeHash()
	status, err = c.CommitIfValid(competitor, pool, st)
	require.Error(t, err)
	require.Equal(t, Rejected, status)
}
