package executor

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/market"
)

// DefaultPerPairCapacity and MinPerPairCapacity bound the router->worker
// channel size (spec §4.9, §6).
const (
	DefaultPerPairCapacity = 128
	MinPerPairCapacity     = 8
)

// Reserved is the message the scheduler sends on the executor channel.
type Reserved struct {
	Batch batch.Batch
}

// Router owns one bounded channel per pair and lazily spawns the worker
// that drains it. Spawning uses double-checked locking so concurrent
// routing for the same pair never starts two workers.
type Router struct {
	mu       sync.Mutex
	channels map[string]chan Reserved

	capacity  int
	loader    Loader
	committer Committer
	market    *market.Store
	swap      SwapExecutor
	cooldown  FailureCooldown
	log       zerolog.Logger
}

// NewRouter returns a Router with the given per-pair channel capacity
// (clamped to MinPerPairCapacity), backed by loader for cache-first session
// lookup, committer to finalize batches, mv for Gate B re-checks, and swap
// for chain calls.
func NewRouter(capacity int, loader Loader, committer Committer, mv *market.Store, swap SwapExecutor, cooldown FailureCooldown, log zerolog.Logger) *Router {
	if capacity < MinPerPairCapacity {
		capacity = MinPerPairCapacity
	}
	return &Router{
		channels:  make(map[string]chan Reserved),
		capacity:  capacity,
		loader:    loader,
		committer: committer,
		market:    mv,
		swap:      swap,
		cooldown:  cooldown,
		log:       log,
	}
}

// Route obtains or spawns the worker for b.PairID and attempts a
// non-blocking handoff. If the worker's channel turns out to be closed
// (worker died), the cached sender is dropped so the next batch spawns a
// fresh worker; the batch itself stays RESERVED in the DB and is picked up
// by restart recovery.
func (r *Router) Route(b batch.Batch) {
	ch := r.channelFor(b.PairID)

	defer func() {
		if recover() != nil {
			r.mu.Lock()
			delete(r.channels, b.PairID)
			r.mu.Unlock()
			r.log.Warn().Str("pair_id", b.PairID).Str("batch_id", b.ID.String()).
				Msg("worker channel closed, batch remains reserved for recovery")
		}
	}()

	select {
	case ch <- Reserved{Batch: b}:
	default:
		r.log.Warn().Str("pair_id", b.PairID).Str("batch_id", b.ID.String()).
			Msg("worker channel full, batch remains reserved for recovery")
	}
}

func (r *Router) channelFor(pairID string) chan Reserved {
	r.mu.Lock()
	ch, ok := r.channels[pairID]
	if ok {
		r.mu.Unlock()
		return ch
	}
	ch = make(chan Reserved, r.capacity)
	r.channels[pairID] = ch
	r.mu.Unlock()

	w := &worker{
		pairID:    pairID,
		in:        ch,
		repo:      r.loader,
		committer: r.committer,
		market:    r.market,
		swap:      r.swap,
		cooldown:  r.cooldown,
		log:       r.log,
	}
	go w.run()
	return ch
}
