package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
)

func openTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	repo, err := Open("file::memory:?cache=shared", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestGormRepositoryMigratesAndFetchesEmptyPage(t *testing.T) {
	repo := openTestRepo(t)
	page, err := repo.FetchPage(100, 0)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestGormRepositoryReserveExecutionEmptyAllocationsIsNoop(t *testing.T) {
	repo := openTestRepo(t)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{})
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestGormRepositoryRecoverUncommittedOnEmptyDB(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, repo.RecoverUncommitted())
}

func TestGormRepositoryListStaleReserved(t *testing.T) {
	repo := openTestRepo(t)

	s := session.Session{
		ID:     mustUUID(t, "11111111-1111-1111-1111-111111111111"),
		PairID: "TON/USDT",
		Active: true,
		State:  session.State{RemainingBid: 1000, RemainingChunks: 10},
	}
	rec, err := fromDomain(s)
	require.NoError(t, err)
	require.NoError(t, repo.db.Create(&rec).Error)

	b, err := repo.ReserveExecution("TON/USDT", 1_000, []planner.Allocation{
		{SessionID: s.ID, TotalBid: 100, Chunks: []int64{100}},
	})
	require.NoError(t, err)
	require.NotNil(t, b)

	stale, err := repo.ListStaleReserved(1_000+60_000, 30_000)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "TON/USDT", stale[0].PairID)
	assert.Equal(t, 1, stale[0].PendingItems)
	assert.Equal(t, uint64(60_000), stale[0].AgeMs)

	fresh, err := repo.ListStaleReserved(1_000+10_000, 30_000)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	parsed, err := parseUUID(s)
	require.NoError(t, err)
	return parsed
}
