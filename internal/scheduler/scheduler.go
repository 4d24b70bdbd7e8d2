// Package scheduler implements the per-pair fixed-cadence tick loop:
// candidate scan, DRR accumulate/charge, Gate A, planner invocation, and
// atomic reservation (spec §4.7).
package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/cache"
	"github.com/0xphen/kaskade/internal/drr"
	"github.com/0xphen/kaskade/internal/executor"
	"github.com/0xphen/kaskade/internal/market"
	"github.com/0xphen/kaskade/internal/metrics"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/slowop"
)

// Defaults mirror spec §6.
const (
	DefaultCandidateMin     = 200
	DefaultMaxAttempts      = 5_000
	DefaultMaxUsersPerBatch = 64
	DefaultTickInterval     = 250 * time.Millisecond
)

// Config bounds one pair's tick behavior.
type Config struct {
	CandidateMin     int
	MaxAttempts      int
	MaxUsersPerBatch int
	Policy           planner.Policy
}

// Fairness is the subset of store.Repository the tick loop needs to
// persist DRR fields and reserve a batch.
type Fairness interface {
	PersistFairness(id uuid.UUID, deficit int64, lastServedMs uint64) error
	ReserveExecution(pairID string, nowMs uint64, allocations []planner.Allocation) (*batch.Batch, error)
}

// Scheduler runs one pair's tick loop.
type Scheduler struct {
	pairID string
	cache  *cache.Cache
	pager  *cache.Pager
	mv     *market.Store
	repo   Fairness
	router *executor.Router
	cfg    Config
	log    zerolog.Logger
}

// New returns a Scheduler for one pair.
func New(pairID string, c *cache.Cache, pager *cache.Pager, mv *market.Store, repo Fairness, router *executor.Router, cfg Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{pairID: pairID, cache: c, pager: pager, mv: mv, repo: repo, router: router, cfg: cfg, log: log}
}

// Run fires OnTick every interval until stop is closed.
func (s *Scheduler) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			nowMs := uint64(now.UnixMilli())
			if err := s.OnTick(nowMs); err != nil {
				s.log.Error().Err(err).Str("pair_id", s.pairID).Msg("tick failed")
			}
		}
	}
}

// OnTick implements spec §4.7's on_tick algorithm.
func (s *Scheduler) OnTick(nowMs uint64) error {
	metrics.TicksTotal.WithLabelValues(s.pairID).Inc()

	if err := s.pager.EnsureCandidates(s.cfg.CandidateMin); err != nil {
		return fmt.Errorf("ensure candidates: %w", err)
	}

	view, haveView := s.mv.Get(s.pairID)
	if !haveView {
		return nil // fail-closed: no snapshot, no eligible candidates this tick
	}

	intents := s.pickIntents(nowMs, view)
	if len(intents) == 0 {
		return nil
	}

	allocations := planner.Plan(view.DepthNowIn, intents, s.cfg.Policy)
	if len(allocations) == 0 {
		return nil
	}

	var (
		reserved *batch.Batch
		err      error
	)
	watchErr := slowop.Watch(s.log, "reserve_execution", 100*time.Millisecond, func() error {
		reserved, err = s.repo.ReserveExecution(s.pairID, nowMs, allocations)
		return err
	})
	if watchErr != nil {
		return fmt.Errorf("reserve execution: %w", watchErr)
	}
	if reserved == nil {
		return nil // every candidate lost its CAS race: not an error
	}

	for _, alloc := range allocations {
		s.markPending(alloc, nowMs)
	}

	s.router.Route(*reserved)
	return nil
}

func (s *Scheduler) markPending(alloc planner.Allocation, nowMs uint64) {
	cached, ok := s.cache.GetCached(alloc.SessionID)
	if !ok {
		return
	}
	sum := int64(0)
	for _, c := range alloc.Chunks {
		sum += c
	}
	cached.State.InFlightBid += sum
	cached.State.InFlightChunks += int64(len(alloc.Chunks))
	cached.State.LastServedMs = nowMs
	cached.State.HasPendingBatch = true
	s.cache.UpsertCache(cached)
}

// pickIntents implements spec §4.7's intent-selection loop: rotate the RR
// ring, accumulate DRR credit exactly once per session per tick, apply Gate
// A, then charge.
func (s *Scheduler) pickIntents(nowMs uint64, view market.View) []planner.UserIntent {
	var intents []planner.UserIntent
	served := make(map[uuid.UUID]bool)

	for attempt := 0; attempt < s.cfg.MaxAttempts && len(intents) < s.cfg.MaxUsersPerBatch; attempt++ {
		id, ok := s.cache.RotateCandidate()
		if !ok {
			break
		}
		if served[id] {
			continue
		}

		sess, ok := s.cache.GetCached(id)
		if !ok {
			continue
		}

		sess.State.Deficit = drr.AccumulateCredit(sess.State.Deficit, sess.State.Quantum, sess.Intent.PreferredChunkBid)

		want := min64(sess.Intent.PreferredChunkBid, sess.Intent.MaxBidPerTick, sess.AvailableBid())
		if want <= 0 {
			s.cache.UpsertCache(sess)
			served[id] = true
			continue
		}

		if !sess.SatisfiesGate(view.SpreadBps, view.TrendDropBps, view.SlippageBps) {
			s.cache.UpsertCache(sess)
			served[id] = true
			continue
		}

		if !sess.Eligible(nowMs) {
			s.cache.UpsertCache(sess)
			served[id] = true
			continue
		}

		served[id] = true

		if !drr.CanCharge(sess.State.Deficit, want) {
			s.cache.UpsertCache(sess) // credit accumulated but not yet enough
			continue
		}

		sess.State.Deficit = drr.Charge(sess.State.Deficit, want)
		sess.State.LastServedMs = nowMs
		s.cache.UpsertCache(sess)
		if err := s.repo.PersistFairness(id, sess.State.Deficit, nowMs); err != nil {
			s.log.Warn().Err(err).Str("session_id", id.String()).Msg("persist fairness failed")
		}

		intents = append(intents, planner.UserIntent{SessionID: id, DesiredBid: want, DesiredChunksHint: 1})
	}

	return intents
}

func min64(values ...int64) int64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
