package engine

import "errors"

// Domain error values. Callers are expected to test with errors.Is; none of
// these are retried automatically.
var (
	// ErrInvalidSession marks a session with a malformed duration. The
	// session is discarded and stats are left untouched.
	ErrInvalidSession = errors.New("invalid session")

	// ErrStaleEvent marks an out-of-order monitor event. Logged and ignored,
	// never fatal.
	ErrStaleEvent = errors.New("stale event")

	// ErrMissingGoal marks a request for an app with no enabled goal.
	ErrMissingGoal = errors.New("no enabled goal for app")

	// ErrInsufficientData marks an analytics query below the minimum sample
	// size. Callers receive a neutral default alongside it.
	ErrInsufficientData = errors.New("insufficient data")
)
