// Package state holds the ledger's world state: a mapping from address to
// value, persisted as a single JSON object and mutated only by committed
// block execution.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"ledgrid/storage"
)

const indexKey = "state.index"

// State is the mutable key/value world state.
type State struct {
	mu     sync.RWMutex
	store  storage.Store
	values map[string]string
}

// Load reads the persisted state from store, starting from an empty map if
// none exists yet.
func Load(store storage.Store) (*State, error) {
	s := &State{store: store, values: make(map[string]string)}
	raw, ok, err := store.Read(indexKey)
	if err != nil {
		return nil, fmt.Errorf("state: read index: %w", err)
	}
	if !ok {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		return nil, fmt.Errorf("state: decode index: %w", err)
	}
	return s, nil
}

// Get returns the value stored at key, if any.
func (s *State) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value at key in memory without persisting; callers batch
// mutations during block execution and call Save once at the end.
func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Snapshot returns a defensive copy of the full state map.
func (s *State) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Save persists the current state to the backing store as a single JSON
// object.
func (s *State) Save() error {
	s.mu.RLock()
	raw, err := json.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("state: encode index: %w", err)
	}
	if err := s.store.Write(indexKey, raw); err != nil {
		return fmt.Errorf("state: write index: %w", err)
	}
	return nil
}

// Keys returns every key currently set, sorted for deterministic iteration
// (used by diagnostics, never by execution which only ever does point
// lookups).
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
