// Package market holds the process-wide "latest known quality" snapshot per
// pair that the scheduler and executor both read (spec §4.3).
package market

import "sync"

// View is the snapshot consumed by Gate A and Gate B: the latest validated
// pulse results for one pair, flattened to the four numbers downstream
// constraint checks compare against.
type View struct {
	TsMs         uint64
	SpreadBps    float64
	TrendDropBps float64
	SlippageBps  float64
	DepthNowIn   float64
}

// Store is a concurrent-read, single-writer-per-write map from pair id to
// its latest View. Writes are unconditional ("last write wins"); a pair with
// no snapshot yet returns ok=false, which both the scheduler and the
// executor must treat as a hard block.
type Store struct {
	mu   sync.RWMutex
	byID map[string]View
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]View)}
}

// Put overwrites the snapshot for pairID.
func (s *Store) Put(pairID string, v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[pairID] = v
}

// Get returns the latest snapshot for pairID, or ok=false if none exists yet.
func (s *Store) Get(pairID string) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[pairID]
	return v, ok
}
