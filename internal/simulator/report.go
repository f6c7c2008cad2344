package simulator

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/metrics"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// WriteSummary renders the end-of-run totals and, when given, the per-visit
// distributions
func WriteSummary(w io.Writer, s models.RunSummary, dists map[string]*metrics.Aggregation) {
	p := message.NewPrinter(language.AmericanEnglish)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Session %d: %s", s.SessionID, s.Status)
	tw.AppendHeader(table.Row{"Counter", "Value"})
	tw.AppendRows([]table.Row{
		{"Nights", p.Sprintf("%d", s.Nights)},
		{"Dark nights", p.Sprintf("%d", s.DarkNights)},
		{"Targets received", p.Sprintf("%d", s.TargetsReceived)},
		{"Targets missed", p.Sprintf("%d", s.TargetsMissed)},
		{"Observations", p.Sprintf("%d", s.ObservationsMade)},
		{"Filter swaps", p.Sprintf("%d", s.FilterSwaps)},
		{"Missing replies", p.Sprintf("%d", s.MissingReplies)},
		{"Write failures", p.Sprintf("%d", s.WriteFailures)},
		{"Wall time", utils.FormatDuration(s.WallTime)},
	})
	if s.Error != "" {
		tw.AppendFooter(table.Row{"Error", s.Error})
		tw.Style().Format.Footer = text.FormatDefault
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.Render()

	if len(dists) == 0 {
		return
	}
	names := make([]string, 0, len(dists))
	for name := range dists {
		names = append(names, name)
	}
	sort.Strings(names)

	dw := table.NewWriter()
	dw.SetOutputMirror(w)
	dw.AppendHeader(table.Row{"Metric", "Count", "Mean", "Min", "P50", "P95", "Max"})
	for _, name := range names {
		a := dists[name]
		dw.AppendRow(table.Row{
			name,
			p.Sprintf("%d", a.Count),
			p.Sprintf("%.3f", a.Mean),
			p.Sprintf("%.3f", a.Min),
			p.Sprintf("%.3f", a.P50),
			p.Sprintf("%.3f", a.P95),
			p.Sprintf("%.3f", a.Max),
		})
	}
	dw.Render()
}

// WriteSessions renders tracking-store rows
func WriteSessions(w io.Writer, sessions []models.Session) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "User", "Host", "Date", "Version", "Status", "Comment"})
	for _, s := range sessions {
		comment := s.RunComment
		if s.ErrorDetail != "" {
			comment = s.ErrorDetail
		}
		tw.AppendRow(table.Row{s.SessionID, s.User, s.Host, s.Date.Format(time.RFC3339), s.Version, s.Status, comment})
	}
	tw.Render()
}
