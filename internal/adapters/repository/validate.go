package repository

import (
	"fmt"

	"github.com/okian/courttime/internal/domain/model"
)

// Validate checks an event before it is written.
func Validate(e model.Event) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.Time.IsZero() {
		return fmt.Errorf("%w: %s without timestamp", ErrInvalidEvent, e.Kind)
	}
	if e.Kind.IsClock() && e.Player != model.NoPlayer {
		return fmt.Errorf("%w: %s carries player %d", ErrInvalidEvent, e.Kind, e.Player)
	}
	if e.Kind.IsPresence() && e.Player < 0 {
		return fmt.Errorf("%w: %s for player %d", ErrInvalidEvent, e.Kind, e.Player)
	}
	return nil
}
