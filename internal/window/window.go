// Package window implements the bounded time-ordered sample sequence used
// by every pulse engine (spec §4.1): push evicts samples older than a
// max age, max() is O(1) via a monotonic deque, and is_warm() reports
// whether the window has enough history to produce a valid signal.
//
// The backing storage is a plain slice of (timestamp, value) samples;
// eviction re-slices it from the front.
package window

import (
	"golang.org/x/exp/constraints"
)

// Sample is one (timestamp-ms, value) observation.
type Sample[V constraints.Ordered] struct {
	TsMs  uint64
	Value V
}

// Window is a bounded, time-ordered sequence of samples with a maximum
// age. Not safe for concurrent use; callers serialize access (spec §4.2
// evaluates all pulses for a pair inside one critical section).
type Window[V constraints.Ordered] struct {
	maxAgeMs uint64
	samples  []Sample[V]

	// maxDeque holds indices into samples (logical, post-eviction) of a
	// monotonic decreasing sequence of values, front = current max. evict
	// shifts these indices down when samples is trimmed.
	maxDeque []int
}

// New returns an empty window with the given max sample age.
func New[V constraints.Ordered](maxAgeMs uint64) *Window[V] {
	return &Window[V]{maxAgeMs: maxAgeMs}
}

// Push appends (ts, v), then evicts every sample older than ts-maxAgeMs.
// Samples must be pushed in non-decreasing ts order.
func (w *Window[V]) Push(tsMs uint64, v V) {
	w.samples = append(w.samples, Sample[V]{TsMs: tsMs, Value: v})
	newIdx := len(w.samples) - 1

	// maintain the monotonic-decreasing deque: drop everything smaller
	// than or equal to the new value from the back, they can never be
	// the max again while the new value is in range.
	for len(w.maxDeque) > 0 && w.samples[w.maxDeque[len(w.maxDeque)-1]].Value <= v {
		w.maxDeque = w.maxDeque[:len(w.maxDeque)-1]
	}
	w.maxDeque = append(w.maxDeque, newIdx)

	w.evict(tsMs)
}

func (w *Window[V]) evict(nowMs uint64) {
	if w.maxAgeMs == 0 {
		return
	}
	cutoff := int64(nowMs) - int64(w.maxAgeMs)
	dropped := 0
	for dropped < len(w.samples) && int64(w.samples[dropped].TsMs) < cutoff {
		dropped++
	}
	if dropped == 0 {
		return
	}
	// drop indices from the front of the max deque that fell out of range
	for len(w.maxDeque) > 0 && w.maxDeque[0] < dropped {
		w.maxDeque = w.maxDeque[1:]
	}
	w.samples = w.samples[dropped:]
	for i := range w.maxDeque {
		w.maxDeque[i] -= dropped
	}
}

// Len reports the current number of live samples.
func (w *Window[V]) Len() int { return len(w.samples) }

// Max returns the maximum value currently in the window, O(1).
func (w *Window[V]) Max() (V, bool) {
	var zero V
	if len(w.maxDeque) == 0 {
		return zero, false
	}
	return w.samples[w.maxDeque[0]].Value, true
}

// Oldest returns the oldest live sample.
func (w *Window[V]) Oldest() (Sample[V], bool) {
	if len(w.samples) == 0 {
		return Sample[V]{}, false
	}
	return w.samples[0], true
}

// Latest returns the most recently pushed live sample.
func (w *Window[V]) Latest() (Sample[V], bool) {
	if len(w.samples) == 0 {
		return Sample[V]{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// IsWarm reports whether the window has at least minSamples entries and a
// span (latest.ts - oldest.ts) of at least minAgeMs.
func (w *Window[V]) IsWarm(minSamples int, minAgeMs uint64) bool {
	if len(w.samples) < minSamples {
		return false
	}
	oldest, ok := w.Oldest()
	if !ok {
		return false
	}
	latest, _ := w.Latest()
	return latest.TsMs-oldest.TsMs >= minAgeMs
}
