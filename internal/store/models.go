// Package store is the session repository: the only component permitted to
// mutate persisted session state (spec §4.4). It exposes paging, CAS
// reservation, transactional commit, and restart recovery over a
// GORM-backed SQLite schema, plus an in-memory test double for unit tests.
package store

import (
	"fmt"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/kerrors"
	"github.com/0xphen/kaskade/internal/session"
)

// SessionRecord is the GORM model for the sessions table (spec §6).
type SessionRecord struct {
	SessionID string `gorm:"primaryKey;column:session_id"`
	PairID    string `gorm:"column:pair_id;index"`
	Active    bool   `gorm:"column:active"`

	MaxSpreadBps    float64 `gorm:"column:max_spread_bps"`
	MaxTrendDropBps float64 `gorm:"column:max_trend_drop_bps"`
	MaxSlippageBps  float64 `gorm:"column:max_slippage_bps"`

	PreferredChunkBid int64 `gorm:"column:preferred_chunk_bid"`
	MaxBidPerTick     int64 `gorm:"column:max_bid_per_tick"`

	RemainingBid    int64 `gorm:"column:remaining_bid"`
	RemainingChunks int64 `gorm:"column:remaining_chunks"`
	InFlightBid     int64 `gorm:"column:in_flight_bid"`
	InFlightChunks  int64 `gorm:"column:in_flight_chunks"`

	CooldownUntilMs int64 `gorm:"column:cooldown_until_ms"`
	Quantum         int64 `gorm:"column:quantum"`
	Deficit         int64 `gorm:"column:deficit"`
	LastServedMs    int64 `gorm:"column:last_served_ms"`
	HasPendingBatch bool  `gorm:"column:has_pending_batch"`
}

// TableName pins the table name GORM infers to the schema in spec §6.
func (SessionRecord) TableName() string { return "sessions" }

// BatchRecord is the GORM model for the batches table.
type BatchRecord struct {
	BatchID   string `gorm:"primaryKey;column:batch_id"`
	PairID    string `gorm:"column:pair_id"`
	CreatedMs int64  `gorm:"column:created_ms"`
	Status    string `gorm:"column:status"`
	Reason    string `gorm:"column:reason"`
}

func (BatchRecord) TableName() string { return "batches" }

// BatchItemRecord is the GORM model for the batch_items table.
type BatchItemRecord struct {
	ChunkID   string `gorm:"primaryKey;column:chunk_id"`
	BatchID   string `gorm:"column:batch_id;index"`
	SessionID string `gorm:"column:session_id"`
	Bid       int64  `gorm:"column:bid"`
	Status    string `gorm:"column:status"`
	TxID      string `gorm:"column:tx_id"`
	Error     string `gorm:"column:error"`
}

func (BatchItemRecord) TableName() string { return "batch_items" }

// toDomain converts a SessionRecord into the session.Session domain type.
// Returns ok=false (never an error) for a malformed row — spec §4.4's
// poison-row resilience: the caller skips and continues.
func (r SessionRecord) toDomain() (session.Session, bool) {
	id, err := parseUUID(r.SessionID)
	if err != nil {
		return session.Session{}, false
	}
	cooldownUntilMs, err := checkedUint64FromInt64(r.CooldownUntilMs)
	if err != nil {
		return session.Session{}, false
	}
	lastServedMs, err := checkedUint64FromInt64(r.LastServedMs)
	if err != nil {
		return session.Session{}, false
	}
	return session.Session{
		ID:     id,
		PairID: r.PairID,
		Active: r.Active,
		Intent: session.Intent{
			MaxSpreadBps:      r.MaxSpreadBps,
			MaxTrendDropBps:   r.MaxTrendDropBps,
			MaxSlippageBps:    r.MaxSlippageBps,
			PreferredChunkBid: r.PreferredChunkBid,
			MaxBidPerTick:     r.MaxBidPerTick,
		},
		State: session.State{
			RemainingBid:    r.RemainingBid,
			RemainingChunks: r.RemainingChunks,
			InFlightBid:     r.InFlightBid,
			InFlightChunks:  r.InFlightChunks,
			HasPendingBatch: r.HasPendingBatch,
			CooldownUntilMs: cooldownUntilMs,
			Quantum:         r.Quantum,
			Deficit:         r.Deficit,
			LastServedMs:    lastServedMs,
		},
	}, true
}

// fromDomain converts a session.Session into its storage row, per spec
// §4.4's explicit range-checking at the persistence boundary: a cooldown or
// last-served timestamp that would overflow the signed storage column
// returns kerrors.ErrOverflow rather than wrapping silently.
func fromDomain(s session.Session) (SessionRecord, error) {
	if !fitsInt64(s.State.CooldownUntilMs) {
		return SessionRecord{}, fmt.Errorf("cooldown_until_ms %d: %w", s.State.CooldownUntilMs, kerrors.ErrOverflow)
	}
	if !fitsInt64(s.State.LastServedMs) {
		return SessionRecord{}, fmt.Errorf("last_served_ms %d: %w", s.State.LastServedMs, kerrors.ErrOverflow)
	}
	return SessionRecord{
		SessionID:         s.ID.String(),
		PairID:            s.PairID,
		Active:            s.Active,
		MaxSpreadBps:      s.Intent.MaxSpreadBps,
		MaxTrendDropBps:   s.Intent.MaxTrendDropBps,
		MaxSlippageBps:    s.Intent.MaxSlippageBps,
		PreferredChunkBid: s.Intent.PreferredChunkBid,
		MaxBidPerTick:     s.Intent.MaxBidPerTick,
		RemainingBid:      s.State.RemainingBid,
		RemainingChunks:   s.State.RemainingChunks,
		InFlightBid:       s.State.InFlightBid,
		InFlightChunks:    s.State.InFlightChunks,
		CooldownUntilMs:   int64(s.State.CooldownUntilMs),
		Quantum:           s.State.Quantum,
		Deficit:           s.State.Deficit,
		LastServedMs:      int64(s.State.LastServedMs),
		HasPendingBatch:   s.State.HasPendingBatch,
	}, nil
}

func (r BatchRecord) toDomain(items []batch.Item) (batch.Batch, bool) {
	id, err := parseUUID(r.BatchID)
	if err != nil {
		return batch.Batch{}, false
	}
	b := batch.Batch{
		ID:        id,
		PairID:    r.PairID,
		CreatedMs: uint64(r.CreatedMs),
		Status:    batch.Status(r.Status),
		Items:     items,
	}
	if r.Reason != "" {
		reason := r.Reason
		b.Reason = &reason
	}
	return b, true
}

func (r BatchItemRecord) toDomain() (batch.Item, bool) {
	id, err := parseUUID(r.ChunkID)
	if err != nil {
		return batch.Item{}, false
	}
	batchID, err := parseUUID(r.BatchID)
	if err != nil {
		return batch.Item{}, false
	}
	sessID, err := parseUUID(r.SessionID)
	if err != nil {
		return batch.Item{}, false
	}
	item := batch.Item{
		ID:        id,
		BatchID:   batchID,
		SessionID: sessID,
		Bid:       r.Bid,
		Status:    batch.ItemStatus(r.Status),
	}
	if r.TxID != "" {
		tx := r.TxID
		item.TxID = &tx
	}
	if r.Error != "" {
		e := r.Error
		item.Error = &e
	}
	return item, true
}

func fromDomainItem(it batch.Item) BatchItemRecord {
	rec := BatchItemRecord{
		ChunkID:   it.ID.String(),
		BatchID:   it.BatchID.String(),
		SessionID: it.SessionID.String(),
		Bid:       it.Bid,
		Status:    string(it.Status),
	}
	if it.TxID != nil {
		rec.TxID = *it.TxID
	}
	if it.Error != nil {
		rec.Error = *it.Error
	}
	return rec
}
