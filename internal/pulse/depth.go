package pulse

import (
	"strings"

	"github.com/0xphen/kaskade/internal/quote"
	"github.com/0xphen/kaskade/internal/window"
)

// DepthResult carries both the pulse's health metric (bps deficit) and
// the raw extracted depth, which the market view stores directly (spec
// §4.3's MarketMetricsView.depth_now_in is the raw amount, not the bps
// deficit — the deficit is this engine's internal quality signal).
type DepthResult struct {
	Result
	DepthNow float64
}

// DepthEngine tracks extracted route depth over time and reports how far
// current depth has fallen from its recent best.
type DepthEngine struct {
	w          *window.Window[float64]
	minSamples int
	minAgeMs   uint64
}

// NewDepthEngine returns a DepthEngine with the default warm-up
// thresholds and the given window max age.
func NewDepthEngine(maxAgeMs uint64) *DepthEngine {
	return &DepthEngine{
		w:          window.New[float64](maxAgeMs),
		minSamples: DefaultMinSamples,
		minAgeMs:   DefaultMinAgeMs,
	}
}

// ExtractDepth computes depth_now for a quote under the given scope, per
// spec §4.2: MarketWide reads the quote's top-level input total;
// ProtocolOnly sums input amounts across chunks whose protocol tag
// contains the target string, per route, and takes the route with the
// highest such sum.
func ExtractDepth(q quote.Quote, scope quote.ExecutionScope) float64 {
	if scope.Kind == quote.MarketWide {
		return q.TopLevelInputTotal
	}
	best := 0.0
	for _, route := range q.Routes {
		sum := 0.0
		for _, c := range route.Chunks {
			if scope.Protocol != "" && strings.Contains(c.ProtocolTag, scope.Protocol) {
				sum += c.InputAmount
			}
		}
		if sum > best {
			best = sum
		}
	}
	return best
}

// Update feeds one quote (under scope) and returns the depth result.
// Zero depth is Invalid.
func (e *DepthEngine) Update(tsMs uint64, q quote.Quote, scope quote.ExecutionScope) DepthResult {
	depthNow := ExtractDepth(q, scope)
	e.w.Push(tsMs, depthNow)

	if depthNow <= 0 {
		return DepthResult{Result: invalidResult(), DepthNow: 0}
	}

	if !e.w.IsWarm(e.minSamples, e.minAgeMs) {
		return DepthResult{Result: invalidResult(), DepthNow: depthNow}
	}

	depthBest, ok := e.w.Max()
	if !ok || depthBest <= 0 {
		return DepthResult{Result: invalidResult(), DepthNow: depthNow}
	}
	bps := (1 - depthNow/depthBest) * 10_000
	if bps < 0 {
		bps = 0
	}
	return DepthResult{Result: Result{Bps: bps, Validity: Valid}, DepthNow: depthNow}
}
