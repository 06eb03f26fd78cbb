package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/domain/ledger"
	"github.com/okian/courttime/internal/domain/model"
	"github.com/okian/courttime/pkg/logger"
	"github.com/okian/courttime/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(&bytes.Buffer{}))
}

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctx     context.Context
	store   *repository.MemoryStore
	clock   *fakeClock
	metrics *metrics.Manager
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		ctx:     context.Background(),
		store:   repository.NewMemoryStore(),
		clock:   &fakeClock{t: time.Unix(1_700_000_000, 0)},
		metrics: metrics.NewManager(),
	}
	f.svc = New(f.store,
		WithClock(f.clock.now),
		WithMetrics(f.metrics),
		WithLogger(logger.Nop()),
		WithRoster(f.store),
	)
	return f
}

func (f *fixture) count() int {
	all, err := f.store.All(f.ctx)
	So(err, ShouldBeNil)
	return len(all)
}

func (f *fixture) exposition() string {
	var buf bytes.Buffer
	So(f.metrics.WriteText(&buf), ShouldBeNil)
	return buf.String()
}

func find(st ledger.State, player int) ledger.Aggregate {
	a, ok := st.Find(player)
	So(ok, ShouldBeTrue)
	return a
}

func TestService_NewGame(t *testing.T) {
	Convey("Given an empty log", t, func() {
		f := newFixture()

		Convey("When recomputing", func() {
			st, err := f.svc.Recompute(f.ctx)

			Convey("Then the game is not created", func() {
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, ledger.NotCreated)
				So(st.Players(), ShouldEqual, 0)
			})
		})

		Convey("When the starters are checked in", func() {
			So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
			f.clock.advance(30 * time.Second)
			st, err := f.svc.Recompute(f.ctx)

			Convey("Then the game is not started and everyone has zero time", func() {
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, ledger.NotStarted)
				So(st.Running, ShouldBeFalse)
				So(len(st.OnCourt), ShouldEqual, 5)
				So(st.OffCourt, ShouldBeEmpty)
				for _, a := range st.OnCourt {
					So(a.Accumulated, ShouldEqual, 0)
				}
			})

			Convey("Then the check-ins share one timestamp", func() {
				all, err := f.store.All(f.ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 5)
				for _, e := range all {
					So(e.Kind, ShouldEqual, model.CheckIn)
					So(e.Time, ShouldEqual, all[0].Time)
				}
			})

			Convey("Then a second lineup is rejected without writing", func() {
				err := f.svc.SetStarters(f.ctx, []int{6, 7, 8, 9, 10})
				So(errors.Is(err, ErrAlreadyStarted), ShouldBeTrue)
				So(f.count(), ShouldEqual, 5)
			})
		})

		Convey("When the lineup has a duplicate", func() {
			err := f.svc.SetStarters(f.ctx, []int{1, 2, 2})

			Convey("Then it is rejected and nothing is written", func() {
				So(errors.Is(err, ErrInvalidLineup), ShouldBeTrue)
				So(f.count(), ShouldEqual, 0)
			})
		})

		Convey("When the lineup has a negative number", func() {
			err := f.svc.SetStarters(f.ctx, []int{1, -2})

			Convey("Then it is rejected as an invalid player", func() {
				So(errors.Is(err, ErrInvalidPlayer), ShouldBeTrue)
				So(f.count(), ShouldEqual, 0)
			})
		})

		Convey("When the lineup is empty", func() {
			So(errors.Is(f.svc.SetStarters(f.ctx, nil), ErrInvalidLineup), ShouldBeTrue)
		})
	})
}

func TestService_ClockAndSubstitution(t *testing.T) {
	Convey("Given a started game", t, func() {
		f := newFixture()
		So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
		st, err := f.svc.StartClock(f.ctx)
		So(err, ShouldBeNil)
		So(st.Status, ShouldEqual, ledger.Running)

		Convey("When player 1 is replaced by 6 after ten seconds", func() {
			f.clock.advance(10 * time.Second)
			st, err := f.svc.Substitute(f.ctx, 1, 6)

			Convey("Then 1 sits with ten seconds and 6 starts from zero", func() {
				So(err, ShouldBeNil)
				one := find(st, 1)
				So(one.OnCourt, ShouldBeFalse)
				So(one.Accumulated, ShouldEqual, 10*time.Second)
				So(one.Current, ShouldEqual, 0)

				six := find(st, 6)
				So(six.OnCourt, ShouldBeTrue)
				So(six.Accumulated, ShouldEqual, 0)
				So(six.Current, ShouldEqual, 0)
			})

			Convey("Then both events carry the same timestamp", func() {
				h1, err := f.svc.History(f.ctx, 1)
				So(err, ShouldBeNil)
				h6, err := f.svc.History(f.ctx, 6)
				So(err, ShouldBeNil)
				So(h1[len(h1)-1].Kind, ShouldEqual, model.CheckOut)
				So(h6, ShouldHaveLength, 1)
				So(h6[0].Time, ShouldEqual, h1[len(h1)-1].Time)
			})

			Convey("Then the bench time keeps growing", func() {
				f.clock.advance(7 * time.Second)
				st, err := f.svc.Recompute(f.ctx)
				So(err, ShouldBeNil)
				So(find(st, 1).Current, ShouldEqual, 7*time.Second)
				So(find(st, 6).Accumulated, ShouldEqual, 7*time.Second)
			})
		})

		Convey("When the clock is paused and resumed", func() {
			f.clock.advance(20 * time.Second)
			st, err := f.svc.StopClock(f.ctx)
			So(err, ShouldBeNil)
			So(st.Status, ShouldEqual, ledger.Paused)

			f.clock.advance(10 * time.Second)
			_, err = f.svc.StartClock(f.ctx)
			So(err, ShouldBeNil)
			f.clock.advance(15 * time.Second)
			st, err = f.svc.Recompute(f.ctx)

			Convey("Then only running time is counted", func() {
				So(err, ShouldBeNil)
				So(st.Running, ShouldBeTrue)
				one := find(st, 1)
				So(one.Accumulated, ShouldEqual, 35*time.Second)
				So(one.Current, ShouldEqual, 15*time.Second)
			})
		})

		Convey("When the clock is started twice", func() {
			before := f.count()
			_, err := f.svc.StartClock(f.ctx)

			Convey("Then the second start is rejected and not written", func() {
				So(errors.Is(err, ErrAlreadyRunning), ShouldBeTrue)
				So(f.count(), ShouldEqual, before)
				So(f.exposition(), ShouldContainSubstring,
					`courttime_ledger_operation_errors_total{operation="start_clock",reason="already_running"} 1`)
			})
		})

		Convey("When the clock is stopped twice", func() {
			_, err := f.svc.StopClock(f.ctx)
			So(err, ShouldBeNil)
			before := f.count()
			_, err = f.svc.StopClock(f.ctx)

			Convey("Then the second stop is rejected", func() {
				So(errors.Is(err, ErrAlreadyStopped), ShouldBeTrue)
				So(f.count(), ShouldEqual, before)
			})
		})

		Convey("When substituting a player who is on the bench", func() {
			before := f.count()
			_, err := f.svc.Substitute(f.ctx, 9, 6)

			Convey("Then it fails and the log is unchanged", func() {
				So(errors.Is(err, ErrNotOnCourt), ShouldBeTrue)
				So(f.count(), ShouldEqual, before)
			})
		})

		Convey("When bringing in a player who is already on court", func() {
			before := f.count()
			_, err := f.svc.Substitute(f.ctx, 1, 2)

			Convey("Then it fails and the log is unchanged", func() {
				So(errors.Is(err, ErrAlreadyOnCourt), ShouldBeTrue)
				So(f.count(), ShouldEqual, before)
			})
		})

		Convey("When substituting with a negative number", func() {
			_, err := f.svc.Substitute(f.ctx, 1, -6)
			So(errors.Is(err, ErrInvalidPlayer), ShouldBeTrue)
		})

		Convey("When a player comes back after resting", func() {
			f.clock.advance(10 * time.Second)
			_, err := f.svc.Substitute(f.ctx, 1, 6)
			So(err, ShouldBeNil)
			f.clock.advance(5 * time.Second)
			_, err = f.svc.Substitute(f.ctx, 6, 1)
			So(err, ShouldBeNil)
			f.clock.advance(3 * time.Second)
			st, err := f.svc.Recompute(f.ctx)

			Convey("Then the earlier and current segments add up", func() {
				So(err, ShouldBeNil)
				one := find(st, 1)
				So(one.OnCourt, ShouldBeTrue)
				So(one.Accumulated, ShouldEqual, 13*time.Second)
				So(one.Current, ShouldEqual, 3*time.Second)
				So(find(st, 6).Accumulated, ShouldEqual, 5*time.Second)
			})
		})
	})

	Convey("Given a game that was never created", t, func() {
		f := newFixture()

		Convey("When substituting", func() {
			_, err := f.svc.Substitute(f.ctx, 1, 6)

			Convey("Then nobody is on court", func() {
				So(errors.Is(err, ErrNotOnCourt), ShouldBeTrue)
				So(f.count(), ShouldEqual, 0)
			})
		})
	})
}

func TestService_SubstituteWhilePaused(t *testing.T) {
	Convey("Given a paused game", t, func() {
		f := newFixture()
		So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
		_, err := f.svc.StartClock(f.ctx)
		So(err, ShouldBeNil)
		f.clock.advance(12 * time.Second)
		_, err = f.svc.StopClock(f.ctx)
		So(err, ShouldBeNil)

		Convey("When a substitution happens during the pause", func() {
			f.clock.advance(4 * time.Second)
			_, err := f.svc.Substitute(f.ctx, 2, 7)
			So(err, ShouldBeNil)
			f.clock.advance(4 * time.Second)
			_, err = f.svc.StartClock(f.ctx)
			So(err, ShouldBeNil)
			f.clock.advance(6 * time.Second)
			st, err := f.svc.Recompute(f.ctx)

			Convey("Then the newcomer accrues only after the resume", func() {
				So(err, ShouldBeNil)
				So(find(st, 2).Accumulated, ShouldEqual, 12*time.Second)
				So(find(st, 7).Accumulated, ShouldEqual, 6*time.Second)
				So(find(st, 1).Accumulated, ShouldEqual, 18*time.Second)
			})
		})
	})
}

func TestService_ResetAndRoster(t *testing.T) {
	Convey("Given a game with a roster", t, func() {
		f := newFixture()
		So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
		So(f.svc.LoadRoster(f.ctx, []model.RosterEntry{{Number: 1, Name: "Ada"}, {Number: 2, Name: "Grace"}}), ShouldBeNil)

		Convey("When reading the roster", func() {
			r, err := f.svc.Roster(f.ctx)
			So(err, ShouldBeNil)
			So(r, ShouldHaveLength, 2)
			So(r[1].Name, ShouldEqual, "Ada")
		})

		Convey("When the log is reset", func() {
			So(f.svc.Reset(f.ctx), ShouldBeNil)

			Convey("Then the game is gone but the roster stays", func() {
				st, err := f.svc.Recompute(f.ctx)
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, ledger.NotCreated)

				r, err := f.svc.Roster(f.ctx)
				So(err, ShouldBeNil)
				So(r, ShouldHaveLength, 2)
			})

			Convey("Then a new lineup is accepted", func() {
				So(f.svc.SetStarters(f.ctx, []int{6, 7, 8, 9, 10}), ShouldBeNil)
			})
		})

		Convey("When the roster is reset", func() {
			So(f.svc.ResetRoster(f.ctx), ShouldBeNil)
			r, err := f.svc.Roster(f.ctx)
			So(err, ShouldBeNil)
			So(r, ShouldBeEmpty)
		})

		Convey("When loading a roster with a duplicate number", func() {
			err := f.svc.LoadRoster(f.ctx, []model.RosterEntry{{Number: 3, Name: "a"}, {Number: 3, Name: "b"}})
			So(errors.Is(err, repository.ErrDuplicateNumber), ShouldBeTrue)
		})
	})

	Convey("Given a service without a roster store", t, func() {
		svc := New(repository.NewMemoryStore(), WithLogger(logger.Nop()), WithMetrics(metrics.NewManager()))
		ctx := context.Background()

		Convey("Then roster writes fail and reads are empty", func() {
			So(errors.Is(svc.LoadRoster(ctx, nil), ErrNoRoster), ShouldBeTrue)
			So(errors.Is(svc.ResetRoster(ctx), ErrNoRoster), ShouldBeTrue)
			r, err := svc.Roster(ctx)
			So(err, ShouldBeNil)
			So(r, ShouldBeEmpty)
		})
	})
}

func TestService_History(t *testing.T) {
	Convey("Given a player who was swapped out", t, func() {
		f := newFixture()
		So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
		_, err := f.svc.StartClock(f.ctx)
		So(err, ShouldBeNil)
		f.clock.advance(time.Second)
		_, err = f.svc.Substitute(f.ctx, 3, 8)
		So(err, ShouldBeNil)

		Convey("Then the history lists only that player's presence events in order", func() {
			h, err := f.svc.History(f.ctx, 3)
			So(err, ShouldBeNil)
			So(h, ShouldHaveLength, 2)
			So(h[0].Kind, ShouldEqual, model.CheckIn)
			So(h[1].Kind, ShouldEqual, model.CheckOut)
			So(h[0].Seq, ShouldBeLessThan, h[1].Seq)
		})

		Convey("Then an unknown player has no history", func() {
			h, err := f.svc.History(f.ctx, 42)
			So(err, ShouldBeNil)
			So(h, ShouldBeEmpty)
		})
	})
}

func TestService_StoreFailures(t *testing.T) {
	Convey("Given a closed store", t, func() {
		f := newFixture()
		So(f.store.Close(), ShouldBeNil)

		Convey("Then every operation surfaces the store error", func() {
			So(errors.Is(f.svc.SetStarters(f.ctx, []int{1}), repository.ErrStoreClosed), ShouldBeTrue)
			_, err := f.svc.StartClock(f.ctx)
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
			_, err = f.svc.Recompute(f.ctx)
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
			So(f.exposition(), ShouldContainSubstring, `reason="store_closed"`)
		})
	})

}

func TestService_StopBeforeStart(t *testing.T) {
	Convey("Given a lineup whose clock never started", t, func() {
		f := newFixture()
		So(f.svc.SetStarters(f.ctx, []int{1, 2, 3, 4, 5}), ShouldBeNil)
		before := f.count()

		Convey("When the clock is stopped", func() {
			_, err := f.svc.StopClock(f.ctx)

			Convey("Then it is already stopped and nothing is written", func() {
				So(errors.Is(err, ErrAlreadyStopped), ShouldBeTrue)
				So(f.count(), ShouldEqual, before)
			})

			Convey("Then the game can still start and substitute", func() {
				st, err := f.svc.StartClock(f.ctx)
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, ledger.Running)

				f.clock.advance(5 * time.Second)
				st, err = f.svc.Substitute(f.ctx, 1, 6)
				So(err, ShouldBeNil)
				So(find(st, 1).Accumulated, ShouldEqual, 5*time.Second)
			})
		})
	})

	Convey("Given an empty log", t, func() {
		f := newFixture()
		_, err := f.svc.StopClock(f.ctx)

		Convey("Then stopping is rejected without writing", func() {
			So(errors.Is(err, ErrAlreadyStopped), ShouldBeTrue)
			So(f.count(), ShouldEqual, 0)
		})
	})
}

func TestValidateLineup(t *testing.T) {
	Convey("Given the five-player rule", t, func() {
		So(ValidateLineup([]int{1, 2, 3, 4, 5}, 5), ShouldBeNil)
		So(errors.Is(ValidateLineup([]int{1, 2, 3, 4}, 5), ErrInvalidLineup), ShouldBeTrue)
		So(errors.Is(ValidateLineup([]int{1, 2, 3, 4, 4}, 5), ErrInvalidLineup), ShouldBeTrue)
		So(errors.Is(ValidateLineup([]int{1, 2, 3, 4, -5}, 5), ErrInvalidPlayer), ShouldBeTrue)
		So(ValidateLineup([]int{9, 8, 7}, 3), ShouldBeNil)
	})
}
