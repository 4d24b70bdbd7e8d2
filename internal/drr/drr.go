// Package drr implements the Deficit Round Robin fairness rule applied once
// per session per scheduler tick: accumulate credit, then charge the cost
// of service against it (spec §4.7, §9).
package drr

// AccumulateCredit adds quantum to deficit, saturating at 2*preferredChunkBid
// so a long-dormant session cannot monopolize the scheduler on return
// (spec §9, open question on the credit cap).
func AccumulateCredit(deficit, quantum, preferredChunkBid int64) int64 {
	creditCap := 2 * preferredChunkBid
	next := deficit + quantum
	if next > creditCap {
		return creditCap
	}
	return next
}

// CanCharge reports whether deficit covers the cost of serving want.
func CanCharge(deficit, want int64) bool {
	return deficit >= want
}

// Charge debits want from deficit. Callers must check CanCharge first.
func Charge(deficit, want int64) int64 {
	return deficit - want
}
