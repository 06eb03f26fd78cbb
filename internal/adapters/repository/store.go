// Package repository defines the game log and roster store contracts.
package repository

import (
	"context"

	"github.com/okian/courttime/internal/domain/model"
)

// EventStore holds the append-only game log.
type EventStore interface {
	// Append records events in the given order. One call is atomic and
	// assigns increasing Seq values. Events are never reordered or deduplicated.
	Append(ctx context.Context, events ...model.Event) error

	// All returns every recorded event in no guaranteed order.
	All(ctx context.Context) ([]model.Event, error)

	// PlayerEvents returns the CHECK_IN/CHECK_OUT events of one player.
	PlayerEvents(ctx context.Context, player int) ([]model.Event, error)

	// ClockEvents returns the START/STOP events.
	ClockEvents(ctx context.Context) ([]model.Event, error)

	// Reset deletes every event.
	Reset(ctx context.Context) error

	// IsEmpty reports whether no event has been recorded.
	IsEmpty(ctx context.Context) (bool, error)
}

// RosterStore maps jersey numbers to names.
type RosterStore interface {
	// SaveRoster inserts entries. A number already present fails the whole
	// call with ErrDuplicateNumber.
	SaveRoster(ctx context.Context, entries []model.RosterEntry) error

	// Roster returns the stored entries keyed by number.
	Roster(ctx context.Context) (map[int]model.RosterEntry, error)

	// ResetRoster deletes every entry.
	ResetRoster(ctx context.Context) error
}

// Store is a backend holding both the log and the roster.
type Store interface {
	EventStore
	RosterStore
	Close() error
}
