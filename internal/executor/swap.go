// Package executor dispatches reserved batches to per-pair FIFO workers,
// each re-checking constraints immediately before a chunk (Gate B) and
// calling an external swap executor (spec §4.9).
package executor

import (
	"context"

	"github.com/google/uuid"
)

// SwapCall is one chunk's worth of work handed to the external executor.
type SwapCall struct {
	PairID    string
	SessionID uuid.UUID
	Bid       int64
	ChunkID   uuid.UUID
}

// SwapReceipt is the successful result of an external swap call.
type SwapReceipt struct {
	TxID string
}

// SwapExecutor is the abstract external collaborator that actually
// broadcasts a chain swap (spec §9: dynamic dispatch, live vs. dummy).
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, call SwapCall) (SwapReceipt, error)
}

// DummyExecutor always succeeds with a deterministic tx id derived from the
// chunk id — used for dry runs and tests.
type DummyExecutor struct{}

func (DummyExecutor) ExecuteSwap(_ context.Context, call SwapCall) (SwapReceipt, error) {
	return SwapReceipt{TxID: "dummy-" + call.ChunkID.String()}, nil
}
