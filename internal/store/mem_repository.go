package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/kerrors"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
)

// MemRepository is an in-memory Repository test double (spec §9: "the
// repository... appears as an interface with two or more concrete
// variants — SQL-backed vs. in-memory test double").
type MemRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
	batches  map[uuid.UUID]batch.Batch
}

// NewMemRepository returns an empty MemRepository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		sessions: make(map[uuid.UUID]session.Session),
		batches:  make(map[uuid.UUID]batch.Batch),
	}
}

// Seed inserts or overwrites a session directly, bypassing the persistence
// contract — for test setup only.
func (m *MemRepository) Seed(s session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the current stored state of a session — for test assertions.
func (m *MemRepository) Get(id uuid.UUID) (session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemRepository) FetchPage(limit, offset int) ([]session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eligible []session.Session
	for _, s := range m.sessions {
		if s.Active && s.State.RemainingBid > 0 && s.State.RemainingChunks > 0 {
			eligible = append(eligible, s)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID.String() < eligible[j].ID.String() })

	if offset >= len(eligible) {
		return nil, nil
	}
	end := offset + limit
	if end > len(eligible) {
		end = len(eligible)
	}
	return append([]session.Session(nil), eligible[offset:end]...), nil
}

func (m *MemRepository) FetchByID(id uuid.UUID) (session.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok, nil
}

func (m *MemRepository) PersistFairness(id uuid.UUID, deficit int64, lastServedMs uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return kerrors.ErrNotFound
	}
	s.State.Deficit = deficit
	s.State.LastServedMs = lastServedMs
	m.sessions[id] = s
	return nil
}

func (m *MemRepository) ReserveExecution(pairID string, nowMs uint64, allocations []planner.Allocation) (*batch.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batchID := uuid.New()
	var items []batch.Item
	for _, alloc := range allocations {
		s, ok := m.sessions[alloc.SessionID]
		if !ok || s.PairID != pairID || !s.Active || s.State.HasPendingBatch {
			continue // CAS miss
		}
		sumChunks := int64(0)
		for _, c := range alloc.Chunks {
			sumChunks += c
		}
		numChunks := int64(len(alloc.Chunks))
		if s.State.RemainingBid-s.State.InFlightBid < sumChunks || s.State.RemainingChunks-s.State.InFlightChunks < numChunks {
			continue // CAS miss
		}

		s.State.InFlightBid += sumChunks
		s.State.InFlightChunks += numChunks
		s.State.HasPendingBatch = true
		m.sessions[alloc.SessionID] = s

		for _, chunkBid := range alloc.Chunks {
			items = append(items, batch.Item{
				ID:        uuid.New(),
				BatchID:   batchID,
				SessionID: alloc.SessionID,
				Bid:       chunkBid,
				Status:    batch.Pending,
			})
		}
	}

	if len(items) == 0 {
		return nil, nil
	}

	b := batch.Batch{
		ID:        batchID,
		PairID:    pairID,
		CreatedMs: nowMs,
		Status:    batch.Reserved,
		Items:     items,
	}
	m.batches[b.ID] = b
	return &b, nil
}

func (m *MemRepository) CommitBatch(b batch.Batch, results []UserResult, nowMs uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.batches[b.ID]
	if !ok {
		return kerrors.ErrNotFound
	}
	if stored.Status == batch.Committed || stored.Status == batch.Aborted {
		return nil
	}
	if stored.Status != batch.Reserved {
		return kerrors.NewInvariant("commit_batch", "unexpected batch status")
	}

	itemByID := make(map[uuid.UUID]*batch.Item, len(stored.Items))
	for i := range stored.Items {
		itemByID[stored.Items[i].ID] = &stored.Items[i]
	}

	touched := make(map[uuid.UUID]bool)
	for _, ur := range results {
		touched[ur.SessionID] = true
		s, ok := m.sessions[ur.SessionID]
		if !ok {
			continue
		}

		if ur.CooldownMs > 0 {
			candidate := nowMs + ur.CooldownMs
			if candidate > s.State.CooldownUntilMs {
				s.State.CooldownUntilMs = candidate
			}
		}

		for _, cr := range ur.Chunks {
			item, ok := itemByID[cr.ChunkID]
			if !ok || item.Status != batch.Pending {
				continue
			}
			item.Status = cr.Status
			item.TxID = cr.TxID
			item.Error = cr.Error

			switch cr.Status {
			case batch.Success:
				s.State.RemainingBid -= item.Bid
				s.State.RemainingChunks--
				s.State.InFlightBid -= item.Bid
				s.State.InFlightChunks--
				s.State.LastServedMs = nowMs
			case batch.Failed, batch.Skipped:
				s.State.InFlightBid -= item.Bid
				s.State.InFlightChunks--
			}
		}
		m.sessions[ur.SessionID] = s
	}

	for sessID := range touched {
		s, ok := m.sessions[sessID]
		if !ok {
			continue
		}
		s.State.HasPendingBatch = false
		m.sessions[sessID] = s
	}

	stored.Status = batch.Committed
	m.batches[b.ID] = stored
	return nil
}

func (m *MemRepository) RecoverUncommitted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, b := range m.batches {
		if b.Status != batch.Reserved {
			continue
		}
		for i := range b.Items {
			item := &b.Items[i]
			if item.Status != batch.Pending {
				continue
			}
			s, ok := m.sessions[item.SessionID]
			if ok {
				s.State.InFlightBid -= item.Bid
				s.State.InFlightChunks--
				s.State.HasPendingBatch = false
				m.sessions[item.SessionID] = s
			}
			item.Status = batch.Skipped
			reason := batch.ReasonRecovered
			item.Error = &reason
		}
		reason := "recovered at startup"
		b.Status = batch.Aborted
		b.Reason = &reason
		m.batches[id] = b
	}
	return nil
}
