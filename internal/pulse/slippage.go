package pulse

import "github.com/0xphen/kaskade/internal/quote"

// EvaluateSlippage is stateless per-quote (spec §4.2): no window is kept.
//
// MarketWide: slippage_bps = (ask_units - min_ask) / ask_units * 10_000.
// Invalid when swap params are missing, ask_units <= 0, or
// min_ask > ask_units.
//
// ProtocolOnly: returns the quote's resolver-recommended bps as a
// synthetic ceiling. Invalid if the target protocol is absent from every
// route.
func EvaluateSlippage(q quote.Quote, scope quote.ExecutionScope) Result {
	if scope.Kind == quote.ProtocolOnly {
		if !q.ProtocolPresent(scope.Protocol) {
			return invalidResult()
		}
		return Result{Bps: q.ResolverRecommendedBps, Validity: Valid}
	}

	if !q.HasSwapParams || q.AskUnits <= 0 || q.MinAskUnits > q.AskUnits {
		return invalidResult()
	}
	bps := (q.AskUnits - q.MinAskUnits) / q.AskUnits * 10_000
	return Result{Bps: bps, Validity: Valid}
}
