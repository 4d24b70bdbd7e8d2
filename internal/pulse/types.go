// Package pulse implements the market-quality signals (spec §4.2): spread,
// trend, depth, and slippage, each gated by an explicit warm-up/validity
// check so that downstream consumers can fail closed on uncertainty.
package pulse

import "math"

// Validity is the two-valued gate every pulse result carries.
type Validity int

const (
	Valid Validity = iota
	Invalid
)

// PosInf is the sentinel bps value used whenever a pulse cannot vouch for
// its signal: it guarantees any "<= threshold" downstream check fails.
var PosInf = math.Inf(1)

// Result is one pulse evaluation.
type Result struct {
	Bps      float64
	Validity Validity
}

func invalidResult() Result { return Result{Bps: PosInf, Validity: Invalid} }

// DefaultMinSamples and DefaultMinAgeMs are the warm-up thresholds shared
// by spread, trend, and depth, per spec §4.2.
const (
	DefaultMinSamples = 10
	DefaultMinAgeMs   = 5_000
)
