package ledger

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrClockConsistency reports a STOP found while the clock was not running.
	// The log itself is inconsistent and no derived number can be trusted.
	ErrClockConsistency = errors.New("clock stopped while not running")
)
