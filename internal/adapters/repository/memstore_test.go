package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/adapters/repository/storetest"
	"github.com/okian/courttime/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store {
		return repository.NewMemoryStore()
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		s := repository.NewMemoryStore()
		So(s.Close(), ShouldBeNil)
		ctx := context.Background()

		Convey("Then every operation fails with ErrStoreClosed", func() {
			err := s.Append(ctx, model.NewEvent(model.Start, model.NoPlayer, time.Now()))
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
			_, err = s.All(ctx)
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
			_, err = s.IsEmpty(ctx)
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
			So(errors.Is(s.Reset(ctx), repository.ErrStoreClosed), ShouldBeTrue)
		})
	})

	Convey("Given a cancelled context", t, func() {
		s := repository.NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then reads and writes return the context error", func() {
			_, err := s.All(ctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(errors.Is(s.Append(ctx), context.Canceled), ShouldBeTrue)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given event validation", t, func() {
		now := time.Now()

		Convey("Then well-formed events pass", func() {
			So(repository.Validate(model.NewEvent(model.CheckIn, 0, now)), ShouldBeNil)
			So(repository.Validate(model.NewEvent(model.Stop, model.NoPlayer, now)), ShouldBeNil)
		})

		Convey("Then malformed events fail with ErrInvalidEvent", func() {
			cases := []model.Event{
				{Kind: "bogus", Time: now},
				{Kind: model.CheckIn, Player: 3},
				{Kind: model.Start, Player: 3, Time: now},
				{Kind: model.CheckOut, Player: model.NoPlayer, Time: now},
			}
			for _, e := range cases {
				So(errors.Is(repository.Validate(e), repository.ErrInvalidEvent), ShouldBeTrue)
			}
		})
	})
}
