// Package planner converts selected per-tick user intents into bounded,
// chunked allocations against the available market depth (spec §4.6). It is
// a pure function: no I/O, no clock, no locks.
package planner

import "github.com/google/uuid"

// UserIntent is a scheduler-selected, per-tick request for one session.
type UserIntent struct {
	SessionID         uuid.UUID
	DesiredBid        int64
	DesiredChunksHint int64
}

// Policy bounds how the planner may size allocations on a given tick.
type Policy struct {
	HardMaxTotalBidPerTick int64
	DepthUtilization       float64 // in [0, 1]
	MaxBidPerUserPerTick   int64
	MaxChunkBid            int64
	MinChunkBid            int64
}

// Allocation is one session's planned total bid and its chunk split.
type Allocation struct {
	SessionID uuid.UUID
	TotalBid  int64
	Chunks    []int64
}

// Plan runs the first-fit allocation algorithm of spec §4.6 against the
// given depth (depthNowIn, from the market view) and ordered intents.
func Plan(depthNowIn float64, intents []UserIntent, policy Policy) []Allocation {
	globalCap := int64(depthNowIn * policy.DepthUtilization)
	if globalCap > policy.HardMaxTotalBidPerTick {
		globalCap = policy.HardMaxTotalBidPerTick
	}
	if globalCap < policy.MinChunkBid {
		return nil
	}

	remainingBudget := globalCap
	var allocations []Allocation

	for _, intent := range intents {
		if remainingBudget < policy.MinChunkBid {
			break
		}
		if intent.DesiredBid < policy.MinChunkBid {
			continue
		}

		allow := intent.DesiredBid
		if policy.MaxBidPerUserPerTick < allow {
			allow = policy.MaxBidPerUserPerTick
		}
		if remainingBudget < allow {
			allow = remainingBudget
		}
		if allow < policy.MinChunkBid {
			continue
		}

		chunks := splitIntoChunks(allow, policy.MinChunkBid, policy.MaxChunkBid)
		if len(chunks) == 0 {
			continue
		}

		total := int64(0)
		for _, c := range chunks {
			total += c
		}

		allocations = append(allocations, Allocation{
			SessionID: intent.SessionID,
			TotalBid:  total,
			Chunks:    chunks,
		})
		remainingBudget -= total
	}

	return allocations
}

// splitIntoChunks divides allow into chunks no larger than maxChunkBid,
// dropping any tail smaller than minChunkBid ("no dust").
func splitIntoChunks(allow, minChunkBid, maxChunkBid int64) []int64 {
	var chunks []int64
	remaining := allow
	for remaining >= minChunkBid {
		size := remaining
		if size > maxChunkBid {
			size = maxChunkBid
		}
		chunks = append(chunks, size)
		remaining -= size
	}
	return chunks
}
