// Package batch defines the reservation/commit unit of work: a Batch of
// BatchItems (chunks) that travels from the scheduler through the executor
// to a terminal commit (spec §3, §4.8-§4.11).
package batch

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a Batch's lifecycle state: RESERVED -> {COMMITTED, ABORTED},
// both terminal.
type Status string

const (
	Reserved  Status = "RESERVED"
	Committed Status = "COMMITTED"
	Aborted   Status = "ABORTED"
)

// ItemStatus is a BatchItem's lifecycle state: PENDING -> one of
// {SUCCESS, FAILED, SKIPPED}, all terminal.
type ItemStatus string

const (
	Pending ItemStatus = "PENDING"
	Success ItemStatus = "SUCCESS"
	Failed  ItemStatus = "FAILED"
	Skipped ItemStatus = "SKIPPED"
)

// Reason strings classifying FAILED/SKIPPED outcomes. Executor failures not
// matching a known token fall back to a truncated ERR:<=160 chars string.
const (
	ReasonMarketNotOpen         = "MarketNotOpen"
	ReasonSlippage              = "Slippage"
	ReasonInsufficientLiquidity = "InsufficientLiquidity"
	ReasonSessionNotFound       = "SESSION_NOT_FOUND"
	ReasonSessionInactive       = "SESSION_INACTIVE"
	ReasonGateBConstraints      = "GATE_B_CONSTRAINTS"
	ReasonRecovered             = "RECOVERED"

	maxGenericErrLen = 160
)

// ClassifyExecutorError maps a raw executor error message to a bounded,
// stable reason string per spec §4.9.
func ClassifyExecutorError(msg string) string {
	switch {
	case containsToken(msg, ReasonMarketNotOpen):
		return ReasonMarketNotOpen
	case containsToken(msg, ReasonSlippage):
		return ReasonSlippage
	case containsToken(msg, ReasonInsufficientLiquidity):
		return ReasonInsufficientLiquidity
	default:
		return "ERR:" + truncate(msg, maxGenericErrLen)
	}
}

// Item is one chunk: the smallest executable unit, corresponding to one
// external swap call.
type Item struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	SessionID uuid.UUID
	Bid       int64
	Status    ItemStatus
	TxID      *string
	Error     *string
}

// Batch is a set of allocations durably reserved atomically in one
// transaction.
type Batch struct {
	ID        uuid.UUID
	PairID    string
	CreatedMs uint64
	Status    Status
	Reason    *string
	Items     []Item
}

// NowMs returns the current time as milliseconds since epoch, the unit
// every timestamp field in this domain uses.
func NowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

func containsToken(msg, token string) bool {
	return strings.Contains(msg, token)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
