// Package ledger turns the raw game log into per-player playing time.
//
// Compute is a pure function of the event set and a reference time. It never
// writes anything back: the STOP synthesized for a running game lives only
// inside one call.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/courttime/internal/domain/model"
)

// Compute derives the on-court/off-court partition and per-player totals
// from events as of now. Events may be passed in any order.
func Compute(events []model.Event, now time.Time) (State, error) {
	st := State{ComputedAt: now}

	sorted := Sorted(events)

	var (
		players []int
		seen    = make(map[int]bool)
		own     = make(map[int][]model.Event)
		clock   []model.Event
	)
	for _, e := range sorted {
		switch {
		case e.Kind.IsClock():
			clock = append(clock, e)
		case e.Kind.IsPresence():
			own[e.Player] = append(own[e.Player], e)
			if e.Kind == model.CheckIn && !seen[e.Player] {
				seen[e.Player] = true
				players = append(players, e.Player)
			}
		}
	}

	if len(players) == 0 {
		st.Status = NotCreated
		return st, nil
	}

	switch {
	case len(clock) == 0:
		st.Status = NotStarted
	case clock[len(clock)-1].Kind == model.Start:
		st.Status = Running
		st.Running = true
		clock = withClosingStop(clock, now)
	default:
		st.Status = Paused
	}

	for _, p := range players {
		agg, err := fold(p, own[p], clock, now)
		if err != nil {
			return State{}, err
		}
		if agg.OnCourt {
			st.OnCourt = append(st.OnCourt, agg)
		} else {
			st.OffCourt = append(st.OffCourt, agg)
		}
	}
	return st, nil
}

// Sorted returns a copy of events ordered by time, then insertion sequence.
func Sorted(events []model.Event) []model.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out
}

// withClosingStop returns clock plus a transient STOP at now. The input
// slice is never modified.
func withClosingStop(clock []model.Event, now time.Time) []model.Event {
	last := clock[len(clock)-1].Time
	if now.Before(last) {
		now = last
	}
	out := make([]model.Event, len(clock), len(clock)+1)
	copy(out, clock)
	return append(out, model.Event{Time: now, Kind: model.Stop, Player: model.NoPlayer})
}

// tally is the fold state for one player.
type tally struct {
	checkedIn bool
	running   bool
	open      bool
	openSince time.Time

	accumulated time.Duration
	lastOn      time.Duration
	lastOff     time.Duration
}

func (t *tally) close(at time.Time) {
	if !t.open {
		return
	}
	seg := at.Sub(t.openSince)
	t.accumulated += seg
	t.lastOn = seg
	t.open = false
}

func (t *tally) openAt(at time.Time) {
	t.open = true
	t.openSince = at
}

// fold walks one player's events merged with the clock events.
// At equal timestamps the player's own event is applied first.
func fold(player int, own, clock []model.Event, now time.Time) (Aggregate, error) {
	var t tally
	i, j := 0, 0
	for i < len(own) || j < len(clock) {
		var e model.Event
		if j >= len(clock) || (i < len(own) && !clock[j].Time.Before(own[i].Time)) {
			e = own[i]
			i++
		} else {
			e = clock[j]
			j++
		}

		switch e.Kind {
		case model.Start:
			t.running = true
			if t.checkedIn {
				t.openAt(e.Time)
			}
		case model.Stop:
			if !t.running {
				return Aggregate{}, fmt.Errorf("%w: player %d at %s",
					ErrClockConsistency, player, e.Time.Format(time.RFC3339Nano))
			}
			t.close(e.Time)
			t.running = false
		case model.CheckIn:
			t.checkedIn = true
			if t.running {
				t.openAt(e.Time)
			} else {
				t.open = false
			}
		case model.CheckOut:
			if t.running && !t.open {
				return Aggregate{}, fmt.Errorf("%w: player %d checked out at %s without being on court",
					ErrClockConsistency, player, e.Time.Format(time.RFC3339Nano))
			}
			t.checkedIn = false
			t.close(e.Time)
			t.lastOff = max(now.Sub(e.Time), 0)
		}
	}

	agg := Aggregate{
		Player:      player,
		Accumulated: t.accumulated,
		OnCourt:     len(own) > 0 && own[len(own)-1].Kind == model.CheckIn,
	}
	if agg.OnCourt {
		agg.Current = t.lastOn
	} else {
		agg.Current = t.lastOff
	}
	return agg, nil
}
