package ledger

import "time"

// Status describes the game as seen by one computation.
type Status int

// Game statuses.
const (
	NotCreated Status = iota // nobody has ever checked in
	NotStarted               // lineup exists, clock never started
	Paused
	Running
)

func (s Status) String() string {
	switch s {
	case NotCreated:
		return "not created"
	case NotStarted:
		return "not started"
	case Paused:
		return "paused"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Aggregate is the per-player result of one computation.
type Aggregate struct {
	Player int
	// Accumulated is the time spent on court while the clock was running.
	Accumulated time.Duration
	// Current is the latest playing segment when on court, or the time
	// since the last check-out when on the bench.
	Current time.Duration
	OnCourt bool
}

// State is the derived view of the whole log at ComputedAt.
type State struct {
	Status     Status
	Running    bool
	OnCourt    []Aggregate
	OffCourt   []Aggregate
	ComputedAt time.Time
}

// Find returns the aggregate for player from either partition.
func (s State) Find(player int) (Aggregate, bool) {
	for _, a := range s.OnCourt {
		if a.Player == player {
			return a, true
		}
	}
	for _, a := range s.OffCourt {
		if a.Player == player {
			return a, true
		}
	}
	return Aggregate{}, false
}

// IsOnCourt reports whether player is currently checked in.
func (s State) IsOnCourt(player int) bool {
	for _, a := range s.OnCourt {
		if a.Player == player {
			return true
		}
	}
	return false
}

// Players returns the number of players known to the computation.
func (s State) Players() int { return len(s.OnCourt) + len(s.OffCourt) }
