package store

import (
	"math"

	"github.com/google/uuid"

	"github.com/0xphen/kaskade/internal/kerrors"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// checkedInt64 range-checks a domain quantity before it crosses into the
// signed 64-bit storage column, per spec §4.4's "explicit, fallible
// conversions" rule: overflow returns a typed error, never silent
// wraparound or a panic.
func checkedInt64(v int64) (int64, error) {
	if v < 0 {
		return 0, kerrors.ErrOverflow
	}
	return v, nil
}

// checkedUint64FromInt64 converts a signed storage column back to the
// domain's unsigned timestamp representation, rejecting negatives.
func checkedUint64FromInt64(v int64) (uint64, error) {
	if v < 0 {
		return 0, kerrors.ErrOverflow
	}
	return uint64(v), nil
}

// fitsInt64 reports whether an unsigned domain quantity can be stored
// losslessly in a signed 64-bit column.
func fitsInt64(v uint64) bool {
	return v <= math.MaxInt64
}
