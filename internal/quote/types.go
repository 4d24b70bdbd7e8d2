// Package quote defines the data the control plane receives from an
// external quote feed: the typed event stream of spec §6 and the Quote
// payload pulse engines consume (spec §4.2).
package quote

import "strings"

// ScopeKind selects how depth/slippage pulses read a multi-route quote.
type ScopeKind int

const (
	// MarketWide aggregates across the whole quote.
	MarketWide ScopeKind = iota
	// ProtocolOnly restricts attention to routes naming a given protocol.
	ProtocolOnly
)

// ExecutionScope parameterizes depth/slippage pulses.
type ExecutionScope struct {
	Kind     ScopeKind
	Protocol string // only meaningful when Kind == ProtocolOnly
}

// RouteChunk is one leg of a route: an input amount routed through a
// named protocol (e.g. "curve", "uniswap-v3").
type RouteChunk struct {
	ProtocolTag string
	InputAmount float64
}

// Route is one candidate execution path in a quote.
type Route struct {
	Chunks []RouteChunk
}

// Quote is the full per-update payload emitted by the external quote
// feed for a pair. Fields not relevant to a given pulse are simply unused
// by it.
type Quote struct {
	TsMs uint64

	// Spread/trend pulse inputs.
	BidUnits float64
	AskUnits float64

	// Slippage pulse inputs (market-wide).
	HasSwapParams bool
	MinAskUnits   float64 // guaranteed minimum output

	// Depth pulse inputs.
	TopLevelInputTotal float64 // market-wide depth_now
	Routes             []Route

	// Slippage pulse input (protocol-only): resolver-recommended ceiling.
	ResolverRecommendedBps float64
}

// ProtocolPresent reports whether any route of the quote carries a chunk
// whose protocol tag contains the target substring.
func (q Quote) ProtocolPresent(protocol string) bool {
	if protocol == "" {
		return false
	}
	for _, r := range q.Routes {
		for _, c := range r.Chunks {
			if strings.Contains(c.ProtocolTag, protocol) {
				return true
			}
		}
	}
	return false
}
