package executor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/cache"
	"github.com/0xphen/kaskade/internal/market"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/store"
)

func TestRouterRoutesBatchToWorker(t *testing.T) {
	repo := store.NewMemRepository()
	id := seedExecSession(repo, 10, 1000, 10)
	b1, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{{SessionID: id, TotalBid: 100, Chunks: []int64{100}}})
	require.NoError(t, err)
	// commit b1 immediately so b2's reservation isn't blocked by has_pending_batch
	require.NoError(t, repo.CommitBatch(*b1, []store.UserResult{{SessionID: id, Chunks: []store.ChunkResult{{ChunkID: b1.Items[0].ID, Status: batch.Success, TxID: strPtrExec("tx")}}}}, 1))

	b2, err := repo.ReserveExecution("TON/USDT", 2, []planner.Allocation{{SessionID: id, TotalBid: 100, Chunks: []int64{100}}})
	require.NoError(t, err)

	c := cache.New(100)
	pager := cache.NewPager(c, repo, 10)
	mv := market.NewStore()
	mv.Put("TON/USDT", market.View{SpreadBps: 1, TrendDropBps: 1, SlippageBps: 1})
	swap := &stubSwap{}

	router := NewRouter(DefaultPerPairCapacity, pager, repo, mv, swap, FailureCooldown{Ms: 10_000}, zerolog.Nop())
	router.Route(*b2)

	require.Eventually(t, func() bool {
		s, _ := repo.Get(id)
		return !s.State.HasPendingBatch
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, swap.calls)
}

func TestRouterUsesOneWorkerPerPair(t *testing.T) {
	repo := store.NewMemRepository()
	c := cache.New(100)
	pager := cache.NewPager(c, repo, 10)
	mv := market.NewStore()
	swap := &stubSwap{}

	router := NewRouter(DefaultPerPairCapacity, pager, repo, mv, swap, FailureCooldown{Ms: 10_000}, zerolog.Nop())

	ch1 := router.channelFor("TON/USDT")
	ch2 := router.channelFor("TON/USDT")
	assert.Equal(t, ch1, ch2)
}

func strPtrExec(s string) *string { return &s }
