package store

import (
	"github.com/google/uuid"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
)

// ChunkResult is the executor's outcome for one chunk, fed into CommitBatch.
type ChunkResult struct {
	ChunkID uuid.UUID
	Status  batch.ItemStatus
	TxID    *string
	Error   *string
}

// UserResult is the executor's outcome for one user within a batch.
type UserResult struct {
	SessionID  uuid.UUID
	CooldownMs uint64 // 0 means no cooldown attached
	Chunks     []ChunkResult
}

// Repository is the only component permitted to mutate persisted session
// state (spec §4.4). Two implementations exist: GormRepository (SQLite,
// production) and MemRepository (in-memory test double).
type Repository interface {
	// FetchPage returns sessions where active && remaining_bid > 0 &&
	// remaining_chunks > 0, skipping malformed rows with a warning rather
	// than failing the whole page.
	FetchPage(limit, offset int) ([]session.Session, error)
	FetchByID(id uuid.UUID) (session.Session, bool, error)
	PersistFairness(id uuid.UUID, deficit int64, lastServedMs uint64) error

	// ReserveExecution is the atomic core of the reservation protocol
	// (spec §4.8). Returns (nil, nil) if every allocation lost its CAS race.
	ReserveExecution(pairID string, nowMs uint64, allocations []planner.Allocation) (*batch.Batch, error)

	// CommitBatch finalizes a reservation; idempotent (spec §4.10). nowMs is
	// the clock reading the caller observed before dispatching the batch;
	// CooldownMs on each UserResult is a duration, turned into an absolute
	// cooldown_until_ms as nowMs + CooldownMs (spec §4.10).
	CommitBatch(b batch.Batch, results []UserResult, nowMs uint64) error

	// RecoverUncommitted aborts every RESERVED batch and unwinds its
	// PENDING items' effects, once at startup (spec §4.11).
	RecoverUncommitted() error
}
