package market

import "github.com/0xphen/kaskade/internal/pulse"

// FromSnapshot flattens a pulse.Snapshot into the View the scheduler and
// executor actually consult.
//
// Spread, trend and slippage stay fail-closed through their own +Inf/zero
// sentinels once their bps value reaches a threshold check, so an Invalid
// result is passed through unchanged. Depth has no natural "always fails a
// <= check" sentinel — the fix here is to store DepthNowIn = 0 whenever the
// depth pulse is Invalid (warm-up or zero depth). The sizing planner's
// global_cap = min(floor(depth_now_in * depth_utilization), hard_max) then
// evaluates to 0, which is below min_chunk_bid, so the planner returns an
// empty allocation list: fail-closed falls out of the existing cap check
// without a dedicated depth-validity flag on View.
func FromSnapshot(s pulse.Snapshot) View {
	v := View{
		TsMs:         s.TsMs,
		SpreadBps:    s.Spread.Bps,
		TrendDropBps: s.Trend.Bps,
		SlippageBps:  s.Slippage.Bps,
	}
	if s.Depth.Validity == pulse.Valid {
		v.DepthNowIn = s.Depth.DepthNow
	}
	return v
}
