package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
)

func seedSession(repo *MemRepository, remainingBid, remainingChunks int64) uuid.UUID {
	s := session.Session{
		ID:     uuid.New(),
		PairID: "TON/USDT",
		Active: true,
		State:  session.State{RemainingBid: remainingBid, RemainingChunks: remainingChunks},
	}
	repo.Seed(s)
	return s.ID
}

func TestReserveExecutionHappyPath(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 1000, 10)

	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
		{SessionID: id, TotalBid: 100, Chunks: []int64{100}},
	})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, batch.Reserved, b.Status)
	require.Len(t, b.Items, 1)

	s, _ := repo.Get(id)
	assert.Equal(t, int64(100), s.State.InFlightBid)
	assert.Equal(t, int64(1), s.State.InFlightChunks)
	assert.True(t, s.State.HasPendingBatch)
}

func TestReserveExecutionCASRaceNeverOverAllocates(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 3, 3)

	// Emulate 3 concurrent single-chunk reservations against only 3 remaining chunks.
	var successes int
	for i := 0; i < 3; i++ {
		b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
			{SessionID: id, TotalBid: 1, Chunks: []int64{1}},
		})
		require.NoError(t, err)
		if b != nil {
			successes++
			// commit immediately to free has_pending_batch for the next attempt,
			// matching the real protocol's serialized single-batch-at-a-time rule.
			results := []UserResult{{SessionID: id, Chunks: []ChunkResult{{ChunkID: b.Items[0].ID, Status: batch.Success, TxID: strPtr("tx")}}}}
			require.NoError(t, repo.CommitBatch(*b, results, 1))
		}
	}
	assert.Equal(t, 3, successes)

	s, _ := repo.Get(id)
	assert.LessOrEqual(t, s.State.InFlightChunks, s.State.RemainingChunks)
}

func TestReserveExecutionEmptyWhenAllCASMiss(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 1, 1)
	repo.mu.Lock()
	s := repo.sessions[id]
	s.State.HasPendingBatch = true
	repo.sessions[id] = s
	repo.mu.Unlock()

	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
		{SessionID: id, TotalBid: 1, Chunks: []int64{1}},
	})
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestCommitBatchIsIdempotent(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
		{SessionID: id, TotalBid: 100, Chunks: []int64{100}},
	})
	require.NoError(t, err)

	results := []UserResult{{SessionID: id, Chunks: []ChunkResult{{ChunkID: b.Items[0].ID, Status: batch.Success, TxID: strPtr("tx-1")}}}}
	require.NoError(t, repo.CommitBatch(*b, results, 1))
	after1, _ := repo.Get(id)

	require.NoError(t, repo.CommitBatch(*b, results, 2))
	after2, _ := repo.Get(id)

	assert.Equal(t, after1, after2)
	assert.Equal(t, int64(900), after2.State.RemainingBid)
	assert.Equal(t, int64(0), after2.State.InFlightBid)
	assert.False(t, after2.State.HasPendingBatch)
}

func TestCommitBatchFailedLeavesRemainingUnchanged(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
		{SessionID: id, TotalBid: 100, Chunks: []int64{100}},
	})
	require.NoError(t, err)

	results := []UserResult{{SessionID: id, CooldownMs: 10_000, Chunks: []ChunkResult{{ChunkID: b.Items[0].ID, Status: batch.Failed, Error: strPtr(batch.ReasonMarketNotOpen)}}}}
	require.NoError(t, repo.CommitBatch(*b, results, 5_000))

	s, _ := repo.Get(id)
	assert.Equal(t, int64(1000), s.State.RemainingBid)
	assert.Equal(t, int64(0), s.State.InFlightBid)
	assert.Equal(t, uint64(15_000), s.State.CooldownUntilMs)
}

func TestRecoverUncommittedUnwindsReservedBatch(t *testing.T) {
	repo := NewMemRepository()
	id := seedSession(repo, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{
		{SessionID: id, TotalBid: 200, Chunks: []int64{100, 100}},
	})
	require.NoError(t, err)
	require.NotNil(t, b)

	require.NoError(t, repo.RecoverUncommitted())

	s, _ := repo.Get(id)
	assert.Equal(t, int64(0), s.State.InFlightBid)
	assert.Equal(t, int64(0), s.State.InFlightChunks)
	assert.False(t, s.State.HasPendingBatch)
	assert.Equal(t, int64(1000), s.State.RemainingBid)
}

func strPtr(s string) *string { return &s }
