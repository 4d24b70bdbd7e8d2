package pulse

import "github.com/0xphen/kaskade/internal/window"

// TrendEngine tracks the ask/bid ratio over time and reports the drop
// (or, if negative, improvement) relative to the oldest sample in the
// window.
type TrendEngine struct {
	w          *window.Window[float64]
	minSamples int
	minAgeMs   uint64
}

// NewTrendEngine returns a TrendEngine with the default warm-up
// thresholds and the given window max age.
func NewTrendEngine(maxAgeMs uint64) *TrendEngine {
	return &TrendEngine{
		w:          window.New[float64](maxAgeMs),
		minSamples: DefaultMinSamples,
		minAgeMs:   DefaultMinAgeMs,
	}
}

// Update feeds one (ts, bid, ask) observation and returns the trend
// result. Fails closed (Invalid, +Inf) if bidUnits <= 0. Negative values
// signal an improving price.
func (e *TrendEngine) Update(tsMs uint64, bidUnits, askUnits float64) Result {
	if bidUnits <= 0 {
		return invalidResult()
	}
	pNow := askUnits / bidUnits
	e.w.Push(tsMs, pNow)

	if !e.w.IsWarm(e.minSamples, e.minAgeMs) {
		return invalidResult()
	}

	oldest, ok := e.w.Oldest()
	if !ok || oldest.Value <= 0 {
		return invalidResult()
	}
	bps := (oldest.Value - pNow) / oldest.Value * 10_000
	return Result{Bps: bps, Validity: Valid}
}
