package runner

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderSummary writes one row per session followed by the totals.
func RenderSummary(w io.Writer, summary Summary) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s run %s", summary.Site, summary.RunID))
	t.AppendHeader(table.Row{"Account", "State", "Outcome", "Reason", "Duration"})
	for _, result := range summary.Results {
		t.AppendRow(table.Row{
			result.Account,
			result.State.Kind,
			result.Outcome,
			result.Reason,
			result.Duration.Round(time.Millisecond),
		})
	}
	for _, identifier := range summary.Skipped {
		t.AppendRow(table.Row{identifier, "", "skipped", "not eligible", ""})
	}
	t.AppendFooter(table.Row{
		"Total",
		"",
		fmt.Sprintf("%d ok / %d failed", summary.Succeeded(), summary.Failed()),
		fmt.Sprintf("%d skipped", len(summary.Skipped)),
		summary.Duration.Round(time.Millisecond),
	})
	t.Render()
}
