// Package session defines the domain model shared by the repository, cache,
// scheduler, and executor: an immutable per-user Intent plus a mutable
// State carrying the accounting invariants of spec §3.
package session

import "github.com/google/uuid"

// Intent is the immutable part of a session: the constraints and sizing
// preferences a user set when opening it.
type Intent struct {
	MaxSpreadBps    float64
	MaxTrendDropBps float64
	MaxSlippageBps  float64

	PreferredChunkBid int64
	MaxBidPerTick     int64
}

// State is the mutable accounting and fairness state of a session.
// Monetary fields are non-negative; Deficit is signed and may go negative
// transiently between accumulate and charge (spec §9 "Numeric types").
type State struct {
	RemainingBid    int64
	RemainingChunks int64

	InFlightBid    int64
	InFlightChunks int64

	HasPendingBatch bool
	CooldownUntilMs uint64

	Quantum      int64
	Deficit      int64
	LastServedMs uint64
}

// Session is one user's standing intent to trade a pair, identified by a
// UUID, plus its current accounting state.
type Session struct {
	ID     uuid.UUID
	PairID string
	Active bool
	Intent Intent
	State  State
}

// AvailableBid is RemainingBid minus InFlightBid, saturating to zero on
// inconsistency rather than going negative.
func (s Session) AvailableBid() int64 {
	avail := s.State.RemainingBid - s.State.InFlightBid
	if avail < 0 {
		return 0
	}
	return avail
}

// AvailableChunks is RemainingChunks minus InFlightChunks, saturating to
// zero on inconsistency.
func (s Session) AvailableChunks() int64 {
	avail := s.State.RemainingChunks - s.State.InFlightChunks
	if avail < 0 {
		return 0
	}
	return avail
}

// Eligible reports whether the session may be selected by the scheduler at
// nowMs: active, past cooldown, no pending batch, and at least one chunk of
// remaining work (spec §4.7).
func (s Session) Eligible(nowMs uint64) bool {
	return s.Active &&
		s.State.CooldownUntilMs <= nowMs &&
		!s.State.HasPendingBatch &&
		s.AvailableChunks() > 0
}

// SatisfiesGate reports whether the given market view meets this session's
// constraints: spread, trend drop, and slippage each at most the session's
// respective maximum (Gate A / Gate B, spec §4.7 and §4.9).
func (s Session) SatisfiesGate(spreadBps, trendDropBps, slippageBps float64) bool {
	return spreadBps <= s.Intent.MaxSpreadBps &&
		trendDropBps <= s.Intent.MaxTrendDropBps &&
		slippageBps <= s.Intent.MaxSlippageBps
}
