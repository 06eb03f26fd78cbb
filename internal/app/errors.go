package app

import (
	"errors"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/domain/ledger"
)

// Sentinel error kinds for tracker operations. These allow errors.Is/As from callers.
var (
	ErrAlreadyStarted = errors.New("game already created; reset it first")
	ErrAlreadyRunning = errors.New("clock is already running")
	ErrAlreadyStopped = errors.New("clock is already stopped")
	ErrNotOnCourt     = errors.New("player is not on the court")
	ErrAlreadyOnCourt = errors.New("player is already on the court")
	ErrInvalidLineup  = errors.New("invalid lineup")
	ErrInvalidPlayer  = errors.New("invalid player number")
	ErrNoRoster       = errors.New("no roster store configured")
)

// reason maps an error to a short metrics label.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, ErrAlreadyStopped):
		return "already_stopped"
	case errors.Is(err, ErrNotOnCourt):
		return "not_on_court"
	case errors.Is(err, ErrAlreadyOnCourt):
		return "already_on_court"
	case errors.Is(err, ErrInvalidLineup):
		return "invalid_lineup"
	case errors.Is(err, ErrInvalidPlayer):
		return "invalid_player"
	case errors.Is(err, ErrNoRoster):
		return "no_roster"
	case errors.Is(err, ledger.ErrClockConsistency):
		return "clock_consistency"
	case errors.Is(err, repository.ErrDuplicateNumber):
		return "duplicate_number"
	case errors.Is(err, repository.ErrStoreClosed):
		return "store_closed"
	case errors.Is(err, repository.ErrInvalidEvent):
		return "invalid_event"
	default:
		return "internal"
	}
}
