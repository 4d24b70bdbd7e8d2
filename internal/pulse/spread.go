package pulse

import "github.com/0xphen/kaskade/internal/window"

// SpreadEngine tracks the ask/bid price ratio over time and reports how
// far the current price has drifted from its recent best.
type SpreadEngine struct {
	w          *window.Window[float64]
	minSamples int
	minAgeMs   uint64
}

// NewSpreadEngine returns a SpreadEngine with the default warm-up
// thresholds and the given window max age.
func NewSpreadEngine(maxAgeMs uint64) *SpreadEngine {
	return &SpreadEngine{
		w:          window.New[float64](maxAgeMs),
		minSamples: DefaultMinSamples,
		minAgeMs:   DefaultMinAgeMs,
	}
}

// Update feeds one (ts, bid, ask) observation and returns the spread
// result. Fails closed (Invalid, +Inf) if bidUnits <= 0.
func (e *SpreadEngine) Update(tsMs uint64, bidUnits, askUnits float64) Result {
	if bidUnits <= 0 {
		return invalidResult()
	}
	pNow := askUnits / bidUnits
	e.w.Push(tsMs, pNow)

	if !e.w.IsWarm(e.minSamples, e.minAgeMs) {
		return invalidResult()
	}

	pBest, ok := e.w.Max()
	if !ok || pBest <= 0 {
		return invalidResult()
	}
	bps := (pBest - pNow) / pBest * 10_000
	return Result{Bps: bps, Validity: Valid}
}
