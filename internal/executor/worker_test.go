package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/cache"
	"github.com/0xphen/kaskade/internal/market"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
	"github.com/0xphen/kaskade/internal/store"
)

type stubSwap struct {
	err   error
	calls int
}

func (s *stubSwap) ExecuteSwap(_ context.Context, _ SwapCall) (SwapReceipt, error) {
	s.calls++
	if s.err != nil {
		return SwapReceipt{}, s.err
	}
	return SwapReceipt{TxID: "tx"}, nil
}

func newTestWorker(t *testing.T, repo *store.MemRepository, mv *market.Store, swap SwapExecutor) *worker {
	t.Helper()
	c := cache.New(100)
	pager := cache.NewPager(c, repo, 10)
	return &worker{
		pairID:    "TON/USDT",
		in:        make(chan Reserved, 1),
		repo:      pager,
		committer: repo,
		market:    mv,
		swap:      swap,
		cooldown:  FailureCooldown{Ms: 10_000},
		log:       zerolog.Nop(),
	}
}

func seedExecSession(repo *store.MemRepository, maxSpreadBps float64, remainingBid, remainingChunks int64) uuid.UUID {
	s := session.Session{
		ID:     uuid.New(),
		PairID: "TON/USDT",
		Active: true,
		Intent: session.Intent{MaxSpreadBps: maxSpreadBps, MaxTrendDropBps: 10, MaxSlippageBps: 10},
		State:  session.State{RemainingBid: remainingBid, RemainingChunks: remainingChunks},
	}
	repo.Seed(s)
	return s.ID
}

func TestProcessGateBFailClosedWithoutMarketSnapshot(t *testing.T) {
	repo := store.NewMemRepository()
	id := seedExecSession(repo, 10, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{{SessionID: id, TotalBid: 100, Chunks: []int64{100}}})
	require.NoError(t, err)

	mv := market.NewStore() // no snapshot written
	swap := &stubSwap{}
	w := newTestWorker(t, repo, mv, swap)

	w.process(*b)

	assert.Equal(t, 0, swap.calls)
	s, _ := repo.Get(id)
	assert.Equal(t, int64(0), s.State.InFlightBid)
	assert.Equal(t, int64(1000), s.State.RemainingBid)
}

func TestProcessStopsOnFirstChunkFailure(t *testing.T) {
	repo := store.NewMemRepository()
	id := seedExecSession(repo, 10, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{{SessionID: id, TotalBid: 200, Chunks: []int64{100, 100}}})
	require.NoError(t, err)

	mv := market.NewStore()
	mv.Put("TON/USDT", market.View{SpreadBps: 1, TrendDropBps: 1, SlippageBps: 1})
	swap := &stubSwap{err: errors.New("MarketNotOpen until 09:00")}
	w := newTestWorker(t, repo, mv, swap)

	before := batch.NowMs()
	w.process(*b)
	after := batch.NowMs()

	assert.Equal(t, 1, swap.calls, "second chunk must never be invoked after the first fails")
	s, _ := repo.Get(id)
	assert.GreaterOrEqual(t, s.State.CooldownUntilMs, before+10_000, "cooldown must be an absolute deadline, not a raw duration")
	assert.LessOrEqual(t, s.State.CooldownUntilMs, after+10_000)
}

func TestProcessHappyPathCommitsSuccess(t *testing.T) {
	repo := store.NewMemRepository()
	id := seedExecSession(repo, 10, 1000, 10)
	b, err := repo.ReserveExecution("TON/USDT", 1, []planner.Allocation{{SessionID: id, TotalBid: 100, Chunks: []int64{100}}})
	require.NoError(t, err)

	mv := market.NewStore()
	mv.Put("TON/USDT", market.View{SpreadBps: 5, TrendDropBps: 5, SlippageBps: 5})
	swap := &stubSwap{}
	w := newTestWorker(t, repo, mv, swap)

	w.process(*b)

	assert.Equal(t, 1, swap.calls)
	s, _ := repo.Get(id)
	assert.Equal(t, int64(900), s.State.RemainingBid)
	assert.Equal(t, int64(0), s.State.InFlightBid)
	assert.False(t, s.State.HasPendingBatch)
}

func TestProcessSessionNotFoundAppliesSmallCooldown(t *testing.T) {
	repo := store.NewMemRepository()
	missing := uuid.New()
	bItem := batch.Item{ID: uuid.New(), BatchID: uuid.New(), SessionID: missing, Bid: 100, Status: batch.Pending}
	b := batch.Batch{ID: bItem.BatchID, PairID: "TON/USDT", Status: batch.Reserved, Items: []batch.Item{bItem}}

	mv := market.NewStore()
	mv.Put("TON/USDT", market.View{SpreadBps: 1, TrendDropBps: 1, SlippageBps: 1})
	swap := &stubSwap{}
	w := newTestWorker(t, repo, mv, swap)

	w.process(b)

	assert.Equal(t, 0, swap.calls)

	res := w.processUser(context.Background(), missing, b.Items, market.View{SpreadBps: 1, TrendDropBps: 1, SlippageBps: 1}, true)
	assert.Equal(t, uint64(SessionNotFoundCooldownMs), res.CooldownMs)
}
