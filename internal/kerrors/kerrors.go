// Package kerrors defines the error taxonomy shared across the control
// plane: sentinel values for the non-fatal cases (§7 of the spec) and a
// typed Invariant error for violations that must abort the current
// operation rather than be swallowed.
package kerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrCASMiss indicates a conditional persistence update affected zero
	// rows because a concurrent writer won the race. Never fatal.
	ErrCASMiss = errors.New("kaskade: CAS miss")

	// ErrPoisonRow indicates a single stored row failed to decode (bad
	// UUID, out-of-range numeric). The caller skips the row and continues.
	ErrPoisonRow = errors.New("kaskade: poison row")

	// ErrOverflow indicates a numeric conversion at the persistence
	// boundary (u128/i128 -> int64) would overflow. Never truncated silently.
	ErrOverflow = errors.New("kaskade: numeric overflow at persistence boundary")

	// ErrNotFound indicates a lookup by id found no row.
	ErrNotFound = errors.New("kaskade: not found")

	// ErrNoMarketSnapshot indicates the market view store holds no
	// snapshot yet for a pair; callers must fail closed.
	ErrNoMarketSnapshot = errors.New("kaskade: no market snapshot")
)

// Invariant wraps a violation of a data-model invariant (§8). These
// propagate to the supervising task, which logs and abandons the current
// batch rather than committing inconsistent state.
type Invariant struct {
	Op  string
	Msg string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("kaskade: invariant violation in %s: %s", e.Op, e.Msg)
}

// NewInvariant builds an *Invariant for the given operation and message.
func NewInvariant(op, msg string) error {
	return &Invariant{Op: op, Msg: msg}
}

// IsInvariant reports whether err is (or wraps) an *Invariant.
func IsInvariant(err error) bool {
	var inv *Invariant
	return errors.As(err, &inv)
}
