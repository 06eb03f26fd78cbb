package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors.
var (
	ErrDuplicateNumber = errors.New("roster number already exists")
	ErrStoreClosed     = errors.New("store is closed")
	ErrInvalidEvent    = errors.New("invalid event")
)

// DuplicateNumber wraps ErrDuplicateNumber with the offending number.
func DuplicateNumber(number int) error {
	return fmt.Errorf("%w: %d", ErrDuplicateNumber, number)
}
