package pulse

import (
	"sync"

	"github.com/0xphen/kaskade/internal/quote"
)

// Snapshot is the set of four pulse results produced from one quote
// update, sharing a single input epoch (spec §4.2).
type Snapshot struct {
	TsMs        uint64
	Spread      Result
	Trend       Result
	Depth       DepthResult
	Slippage    Result
}

// PairEngine groups the four pulse engines for one pair behind a single
// mutex, so a quote update evaluates all of them atomically — the
// "single critical section per incoming quote" rule of spec §4.2.
type PairEngine struct {
	mu    sync.Mutex
	scope quote.ExecutionScope

	spread   *SpreadEngine
	trend    *TrendEngine
	depth    *DepthEngine
}

// NewPairEngine builds a PairEngine whose windows hold maxAgeMs of
// history and whose depth/slippage pulses read the given scope.
func NewPairEngine(maxAgeMs uint64, scope quote.ExecutionScope) *PairEngine {
	return &PairEngine{
		scope:  scope,
		spread: NewSpreadEngine(maxAgeMs),
		trend:  NewTrendEngine(maxAgeMs),
		depth:  NewDepthEngine(maxAgeMs),
	}
}

// Evaluate feeds q through all four pulses under one lock and returns
// their combined Snapshot.
func (p *PairEngine) Evaluate(q quote.Quote) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		TsMs:     q.TsMs,
		Spread:   p.spread.Update(q.TsMs, q.BidUnits, q.AskUnits),
		Trend:    p.trend.Update(q.TsMs, q.BidUnits, q.AskUnits),
		Depth:    p.depth.Update(q.TsMs, q, p.scope),
		Slippage: EvaluateSlippage(q, p.scope),
	}
}
