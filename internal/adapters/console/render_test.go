package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/okian/courttime/internal/domain/ledger"
	"github.com/okian/courttime/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRender(t *testing.T) {
	Convey("Given a running game with one player resting", t, func() {
		st := ledger.State{
			Status:  ledger.Running,
			Running: true,
			OnCourt: []ledger.Aggregate{
				{Player: 7, Accumulated: 95*time.Second + 900*time.Millisecond, Current: 35 * time.Second, OnCourt: true},
				{Player: 12, Accumulated: 60 * time.Second, Current: 60 * time.Second, OnCourt: true},
			},
			OffCourt: []ledger.Aggregate{
				{Player: 3, Accumulated: 10 * time.Second, Current: 4 * time.Second},
			},
		}
		roster := map[int]model.RosterEntry{7: {Number: 7, Name: "Ada"}}

		var buf bytes.Buffer
		So(Render(&buf, st, roster), ShouldBeNil)
		out := buf.String()

		Convey("Then the banner shows the clock state", func() {
			So(out, ShouldContainSubstring, "Game is RUNNING")
		})

		Convey("Then court rows come before bench rows", func() {
			court := strings.Index(out, "On the court:")
			bench := strings.Index(out, "On the bench:")
			So(court, ShouldBeGreaterThan, -1)
			So(bench, ShouldBeGreaterThan, court)
			So(strings.Index(out, "Ada"), ShouldBeBetween, court, bench)
			So(strings.Index(out, "0:04"), ShouldBeGreaterThan, bench)
		})

		Convey("Then durations are truncated to whole seconds", func() {
			So(out, ShouldContainSubstring, "1:35")
			So(out, ShouldContainSubstring, "0:35")
			So(out, ShouldNotContainSubstring, "1:36")
		})

		Convey("Then unknown numbers render without a name", func() {
			for _, line := range strings.Split(out, "\n") {
				if strings.HasPrefix(line, "12 ") {
					So(strings.Fields(line), ShouldResemble, []string{"12", "1:00", "1:00"})
				}
			}
		})
	})

	Convey("Given a paused game", t, func() {
		var buf bytes.Buffer
		So(Render(&buf, ledger.State{Status: ledger.Paused}, nil), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "Game is PAUSED")
	})

	Convey("Given a game that was never created", t, func() {
		var buf bytes.Buffer
		So(Render(&buf, ledger.State{Status: ledger.NotCreated}, nil), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "Game is NOT CREATED")
	})
}

func TestRenderHistory(t *testing.T) {
	Convey("Given a player's events", t, func() {
		at := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
		in := model.NewEvent(model.CheckIn, 5, at)
		in.Seq = 1
		out := model.NewEvent(model.CheckOut, 5, at.Add(time.Minute))
		out.Seq = 9

		var buf bytes.Buffer
		So(RenderHistory(&buf, 5, []model.Event{in, out}, map[int]model.RosterEntry{5: {Number: 5, Name: "Grace"}}), ShouldBeNil)
		text := buf.String()

		So(text, ShouldContainSubstring, "Player 5 Grace")
		So(text, ShouldContainSubstring, "2024-03-01 18:00:00")
		So(strings.Index(text, string(model.CheckIn)), ShouldBeLessThan, strings.Index(text, string(model.CheckOut)))
	})

	Convey("Given a player with no events", t, func() {
		var buf bytes.Buffer
		So(RenderHistory(&buf, 42, nil, nil), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "no events")
	})
}
