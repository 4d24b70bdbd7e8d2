package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/kerrors"
	"github.com/0xphen/kaskade/internal/market"
	"github.com/0xphen/kaskade/internal/session"
	"github.com/0xphen/kaskade/internal/store"
)

// SessionNotFoundCooldownMs is the fixed cooldown applied when a session
// can't be loaded for a reserved chunk (spec §4.9).
const SessionNotFoundCooldownMs = 5_000

// FailureCooldown is the cooldown applied to a user after any chunk in
// their batch fails (spec §4.9, default 10,000 ms per spec §6).
type FailureCooldown struct {
	Ms uint64
}

// Loader is the cache-first, repository-fallback session lookup the worker
// needs (cache.Pager satisfies this).
type Loader interface {
	LoadByID(id uuid.UUID) (session.Session, bool, error)
}

// Committer is the subset of store.Repository the worker needs to finalize
// a batch.
type Committer interface {
	CommitBatch(b batch.Batch, results []store.UserResult, nowMs uint64) error
}

// worker processes batches for exactly one pair, strictly in FIFO order,
// never two at once.
type worker struct {
	pairID    string
	in        chan Reserved
	repo      Loader
	committer Committer
	market    *market.Store
	swap      SwapExecutor
	cooldown  FailureCooldown
	log       zerolog.Logger
}

func (w *worker) run() {
	defer close(w.in)
	for msg := range w.in {
		w.process(msg.Batch)
	}
}

func (w *worker) process(b batch.Batch) {
	ctx := context.Background()
	view, haveView := w.market.Get(b.PairID)

	byUser := groupByUser(b.Items)
	var results []store.UserResult

	for sessionID, items := range byUser {
		results = append(results, w.processUser(ctx, sessionID, items, view, haveView))
	}

	if err := w.committer.CommitBatch(b, results, batch.NowMs()); err != nil {
		if kerrors.IsInvariant(err) {
			w.log.Error().Err(err).Str("batch_id", b.ID.String()).Msg("invariant violation committing batch, abandoning")
			return
		}
		w.log.Warn().Err(err).Str("batch_id", b.ID.String()).Msg("commit batch failed")
	}
}

func (w *worker) processUser(ctx context.Context, sessionID uuid.UUID, items []batch.Item, view market.View, haveView bool) store.UserResult {
	s, ok, err := w.repo.LoadByID(sessionID)
	if err != nil || !ok {
		return skipAll(sessionID, items, batch.ReasonSessionNotFound, SessionNotFoundCooldownMs)
	}
	if !s.Active {
		return skipAll(sessionID, items, batch.ReasonSessionInactive, 0)
	}
	if !haveView {
		return skipAll(sessionID, items, batch.ReasonGateBConstraints, 0)
	}

	result := store.UserResult{SessionID: sessionID}
	anyFailed := false

	for _, item := range items {
		if !s.SatisfiesGate(view.SpreadBps, view.TrendDropBps, view.SlippageBps) {
			result.Chunks = append(result.Chunks, skipped(item.ID, batch.ReasonGateBConstraints))
			break // stop processing further chunks for this user
		}

		receipt, err := w.swap.ExecuteSwap(ctx, SwapCall{
			PairID: s.PairID, SessionID: sessionID, Bid: item.Bid, ChunkID: item.ID,
		})
		if err != nil {
			reason := batch.ClassifyExecutorError(err.Error())
			result.Chunks = append(result.Chunks, store.ChunkResult{ChunkID: item.ID, Status: batch.Failed, Error: &reason})
			anyFailed = true
			break // stop processing further chunks for this user
		}

		tx := receipt.TxID
		result.Chunks = append(result.Chunks, store.ChunkResult{ChunkID: item.ID, Status: batch.Success, TxID: &tx})
	}

	if anyFailed {
		result.CooldownMs = w.cooldown.Ms
	}
	return result
}

func skipAll(sessionID uuid.UUID, items []batch.Item, reason string, cooldownMs uint64) store.UserResult {
	var chunks []store.ChunkResult
	for _, it := range items {
		chunks = append(chunks, skipped(it.ID, reason))
	}
	return store.UserResult{SessionID: sessionID, CooldownMs: cooldownMs, Chunks: chunks}
}

func skipped(chunkID uuid.UUID, reason string) store.ChunkResult {
	r := reason
	return store.ChunkResult{ChunkID: chunkID, Status: batch.Skipped, Error: &r}
}

func groupByUser(items []batch.Item) map[uuid.UUID][]batch.Item {
	grouped := make(map[uuid.UUID][]batch.Item)
	for _, it := range items {
		grouped[it.SessionID] = append(grouped[it.SessionID], it)
	}
	return grouped
}

