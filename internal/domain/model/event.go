// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// NoPlayer is the player value carried by clock events.
const NoPlayer = -1

// Kind enumerates the event types recorded in the game log.
// Values mirror the event_type column of the log.
type Kind string

// Event kinds.
const (
	CheckIn  Kind = "check_in"
	CheckOut Kind = "check_out"
	Start    Kind = "start"
	Stop     Kind = "stop"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case CheckIn, CheckOut, Start, Stop:
		return true
	}
	return false
}

// IsClock reports whether k drives the game clock.
func (k Kind) IsClock() bool { return k == Start || k == Stop }

// IsPresence reports whether k changes a player's court presence.
func (k Kind) IsPresence() bool { return k == CheckIn || k == CheckOut }

// Event is one timestamped fact in the game log.
type Event struct {
	ID     string    `msgpack:"id"`     // UUIDv7, stable storage key
	Seq    uint64    `msgpack:"seq"`    // insertion order, assigned by the store
	Time   time.Time `msgpack:"time"`   // when the event happened
	Kind   Kind      `msgpack:"kind"`   // what happened
	Player int       `msgpack:"player"` // NoPlayer for clock events
}

// NewEvent builds an event with a fresh ID. Clock kinds always get NoPlayer.
func NewEvent(kind Kind, player int, at time.Time) Event {
	if kind.IsClock() {
		player = NoPlayer
	}
	return Event{
		ID:     newID(),
		Time:   at,
		Kind:   kind,
		Player: player,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Before orders events by time, then by insertion sequence.
func (e Event) Before(o Event) bool {
	if !e.Time.Equal(o.Time) {
		return e.Time.Before(o.Time)
	}
	return e.Seq < o.Seq
}

// RosterEntry maps a jersey number to a display name.
type RosterEntry struct {
	Number int    `msgpack:"number"`
	Name   string `msgpack:"name"`
}
