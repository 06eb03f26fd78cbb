// Package console renders ledger state for an operator's terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/courttime/internal/domain/ledger"
	"github.com/okian/courttime/internal/domain/model"
)

const width = 60

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// Render prints st as an "on the court" and an "on the bench" section.
// Numbers missing from roster render with an empty name.
func Render(w io.Writer, st ledger.State, roster map[int]model.RosterEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, heavyRule)
	fmt.Fprintf(tw, "Game is %s\n", banner(st.Status))
	fmt.Fprintln(tw, lightRule)

	fmt.Fprintln(tw, "On the court:")
	fmt.Fprintln(tw, "#\tNAME\tTOTAL\tPLAYING FOR\t")
	for _, a := range st.OnCourt {
		row(tw, a, roster)
	}

	fmt.Fprintln(tw, lightRule)
	fmt.Fprintln(tw, "On the bench:")
	fmt.Fprintln(tw, "#\tNAME\tTOTAL\tRESTING FOR\t")
	for _, a := range st.OffCourt {
		row(tw, a, roster)
	}
	fmt.Fprintln(tw, heavyRule)

	return tw.Flush()
}

func row(w io.Writer, a ledger.Aggregate, roster map[int]model.RosterEntry) {
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", a.Player, roster[a.Player].Name, clock(a.Accumulated), clock(a.Current))
}

func banner(s ledger.Status) string {
	switch s {
	case ledger.Running:
		return "RUNNING"
	case ledger.Paused:
		return "PAUSED"
	default:
		return strings.ToUpper(s.String())
	}
}

// clock formats d as m:ss, truncated to whole seconds.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// RenderHistory prints one player's presence events in order.
func RenderHistory(w io.Writer, player int, events []model.Event, roster map[int]model.RosterEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	name := roster[player].Name
	if name == "" {
		fmt.Fprintf(tw, "Player %d\n", player)
	} else {
		fmt.Fprintf(tw, "Player %d %s\n", player, name)
	}
	if len(events) == 0 {
		fmt.Fprintln(tw, "no events")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "SEQ\tTIME\tEVENT\t")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", e.Seq, e.Time.Format(time.DateTime), e.Kind)
	}
	return tw.Flush()
}
