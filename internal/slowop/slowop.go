// Package slowop provides a small watchdog for I/O boundaries that logs —
// but never aborts — operations slower than an operational threshold, per
// spec §5 ("Cancellation and timeouts"). The scheduler wraps
// reserve_execution with it.
package slowop

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/metrics"
)

// Watch runs fn, logging a warning through log if it took longer than
// threshold. The error returned by fn is passed through unchanged.
func Watch(log zerolog.Logger, op string, threshold time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	if elapsed := time.Since(start); elapsed > threshold {
		metrics.SlowOps.WithLabelValues(op).Inc()
		log.Warn().
			Str("op", op).
			Dur("elapsed", elapsed).
			Dur("threshold", threshold).
			Msg("slow operation")
	}
	return err
}
