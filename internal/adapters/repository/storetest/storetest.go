// Package storetest holds the behavior every repository.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) repository.Store

// Run exercises open against the store contract.
func Run(t *testing.T, open Opener) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 123_456_789)

	Convey("Given a fresh store", t, func() {
		s := open(t)
		Reset(func() { _ = s.Close() })

		Convey("Then it should be empty", func() {
			empty, err := s.IsEmpty(ctx)
			So(err, ShouldBeNil)
			So(empty, ShouldBeTrue)

			all, err := s.All(ctx)
			So(err, ShouldBeNil)
			So(all, ShouldBeEmpty)
		})

		Convey("When appending a lineup and clock events", func() {
			err := s.Append(ctx,
				model.NewEvent(model.CheckIn, 4, base),
				model.NewEvent(model.CheckIn, 9, base),
			)
			So(err, ShouldBeNil)
			So(s.Append(ctx, model.NewEvent(model.Start, model.NoPlayer, base.Add(time.Second))), ShouldBeNil)
			So(s.Append(ctx,
				model.NewEvent(model.CheckOut, 4, base.Add(3*time.Second)),
				model.NewEvent(model.CheckIn, 11, base.Add(3*time.Second)),
			), ShouldBeNil)

			Convey("Then every event is returned with increasing sequence numbers", func() {
				all, err := s.All(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 5)

				bySeq := make(map[uint64]model.Event)
				for _, e := range all {
					So(e.Seq, ShouldBeGreaterThan, 0)
					bySeq[e.Seq] = e
				}
				So(len(bySeq), ShouldEqual, 5)

				empty, err := s.IsEmpty(ctx)
				So(err, ShouldBeNil)
				So(empty, ShouldBeFalse)
			})

			Convey("Then timestamps survive at nanosecond precision", func() {
				evs, err := s.PlayerEvents(ctx, 9)
				So(err, ShouldBeNil)
				So(len(evs), ShouldEqual, 1)
				So(evs[0].Time.Equal(base), ShouldBeTrue)
				So(evs[0].Kind, ShouldEqual, model.CheckIn)
				So(evs[0].ID, ShouldNotBeBlank)
			})

			Convey("Then player queries return only that player's presence events", func() {
				evs, err := s.PlayerEvents(ctx, 4)
				So(err, ShouldBeNil)
				So(len(evs), ShouldEqual, 2)
				for _, e := range evs {
					So(e.Player, ShouldEqual, 4)
					So(e.Kind.IsPresence(), ShouldBeTrue)
				}

				none, err := s.PlayerEvents(ctx, 77)
				So(err, ShouldBeNil)
				So(none, ShouldBeEmpty)
			})

			Convey("Then clock queries return only START/STOP", func() {
				evs, err := s.ClockEvents(ctx)
				So(err, ShouldBeNil)
				So(len(evs), ShouldEqual, 1)
				So(evs[0].Kind, ShouldEqual, model.Start)
				So(evs[0].Player, ShouldEqual, model.NoPlayer)
			})

			Convey("Then events of one batch keep their relative order", func() {
				evs, err := s.All(ctx)
				So(err, ShouldBeNil)
				var out, in model.Event
				for _, e := range evs {
					switch {
					case e.Kind == model.CheckOut:
						out = e
					case e.Player == 11:
						in = e
					}
				}
				So(out.Seq, ShouldBeLessThan, in.Seq)
			})

			Convey("And the log is reset", func() {
				So(s.Reset(ctx), ShouldBeNil)

				Convey("Then it should be empty again", func() {
					empty, err := s.IsEmpty(ctx)
					So(err, ShouldBeNil)
					So(empty, ShouldBeTrue)
					clock, err := s.ClockEvents(ctx)
					So(err, ShouldBeNil)
					So(clock, ShouldBeEmpty)
				})
			})
		})

		Convey("When a batch contains an invalid event", func() {
			err := s.Append(ctx,
				model.NewEvent(model.CheckIn, 1, base),
				model.Event{Kind: "timeout", Time: base},
			)

			Convey("Then nothing is written", func() {
				So(errors.Is(err, repository.ErrInvalidEvent), ShouldBeTrue)
				empty, err := s.IsEmpty(ctx)
				So(err, ShouldBeNil)
				So(empty, ShouldBeTrue)
			})
		})

		Convey("When saving a roster", func() {
			err := s.SaveRoster(ctx, []model.RosterEntry{
				{Number: 4, Name: "Ada"},
				{Number: 9, Name: "Grace"},
			})
			So(err, ShouldBeNil)

			Convey("Then names can be looked up by number", func() {
				roster, err := s.Roster(ctx)
				So(err, ShouldBeNil)
				So(len(roster), ShouldEqual, 2)
				So(roster[9].Name, ShouldEqual, "Grace")
			})

			Convey("Then a duplicate number is rejected without partial writes", func() {
				err := s.SaveRoster(ctx, []model.RosterEntry{
					{Number: 12, Name: "Linus"},
					{Number: 4, Name: "Other"},
				})
				So(errors.Is(err, repository.ErrDuplicateNumber), ShouldBeTrue)

				roster, err := s.Roster(ctx)
				So(err, ShouldBeNil)
				So(len(roster), ShouldEqual, 2)
				So(roster[4].Name, ShouldEqual, "Ada")
			})

			Convey("Then resetting the log keeps the roster", func() {
				So(s.Reset(ctx), ShouldBeNil)
				roster, err := s.Roster(ctx)
				So(err, ShouldBeNil)
				So(len(roster), ShouldEqual, 2)
			})

			Convey("Then resetting the roster empties it", func() {
				So(s.ResetRoster(ctx), ShouldBeNil)
				roster, err := s.Roster(ctx)
				So(err, ShouldBeNil)
				So(roster, ShouldBeEmpty)
			})
		})
	})
}
