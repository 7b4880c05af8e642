package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ledgrid/storage"
)

func TestStateLoadEmpty(t *testing.T) {
	s, err := Load(storage.NewMemStore())
	require.NoError(t, err)
	_, ok := s.Get("alice")
	require.False(t, ok)
	require.Empty(t, s.Keys())
}

func TestStateSetSaveLoadRoundTrip(t *testing.T) {
	store := storage.NewMemStore()

	s, err := Load(store)
	require.NoError(t, err)
	s.Set("alice", "100")
	s.Set("bob", "0")
	require.NoError(t, s.Save())

	reloaded, err := Load(store)
	require.NoError(t, err)
	v, ok := reloaded.Get("alice")
	require.True(t, ok)
	require.Equal(t, "100", v)
	require.Equal(t, []string{"alice", "bob"}, reloaded.Keys())
}

func TestStateSnapshotIsDefensiveCopy(t *testing.T) {
	s, err := Load(storage.NewMemStore())
	require.NoError(t, err)
	s.Set("alice", "1")

	snap := s.Snapshot()
	snap["alice"] = "mutated"

	v, ok := s.Get("alice")
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestStateGetMissingKey(t *testing.T) {
	s, err := Load(storage.NewMemStore())
	require.NoError(t, err)
	_, ok := s.Get("nobody")
	require.False(t, ok)
}
