// Package report renders end-of-run summaries and lookup listings for the CLI.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aluiziolira/go-scrape-races/analyzer"
	"github.com/aluiziolira/go-scrape-races/courses"
	"github.com/aluiziolira/go-scrape-races/models"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// PrintSummary writes the run counts and, when anything failed, the diagnosis.
func PrintSummary(w io.Writer, res *models.RunResult, outputFile string) {
	meta := res.Metadata

	t := newTable(w)
	t.SetTitle("Scrape summary")
	t.AppendRows([]table.Row{
		{"Run", meta.RunID},
		{"Output", outputFile},
		{"Races discovered", meta.Discovered},
		{"Succeeded", meta.Succeeded},
		{"Void", meta.Void},
		{"Failed", meta.Failed},
		{"Rows written", meta.RowsWritten},
		{"Completeness", fmt.Sprintf("%.2f%%", meta.CompletenessPct)},
		{"Duration", fmt.Sprintf("%.1fs", meta.DurationSeconds)},
	})
	if meta.Interrupted {
		t.AppendRow(table.Row{"Interrupted", fmt.Sprintf("yes, %d not attempted", meta.Skipped)})
	}
	if meta.Failed > 0 {
		pattern := analyzer.Pattern(meta.ErrorPattern)
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Block errors", meta.BlockErrors},
			{"Error pattern", pattern},
			{"Likely rate limited", meta.LikelyRateLimited},
		})
		if advice := pattern.Advice(); advice != "" {
			t.AppendRow(table.Row{"Advice", advice})
		}
		if res.FailureLogPath != "" {
			t.AppendRow(table.Row{"Failure log", res.FailureLogPath})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
	})
	t.Render()

	if len(res.Failures) > 0 {
		PrintFailures(w, res.Failures)
	}
}

// PrintFailures lists failed URLs with their error type.
func PrintFailures(w io.Writer, failures []models.FailureRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Race", "Course", "Date", "Kind", "Type", "Attempts"})
	for _, f := range failures {
		t.AppendRow(table.Row{f.RaceID, f.Course, f.Date, f.ErrorKind, f.ErrorType, f.Attempts})
	}
	t.Render()
}

// PrintCourses lists courses, with a score column when they come from a search.
func PrintCourses(w io.Writer, matches []courses.Match) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Course", "Region", "Score"})
	for _, m := range matches {
		score := ""
		if m.Score > 0 {
			score = fmt.Sprintf("%.2f", m.Score)
		}
		t.AppendRow(table.Row{m.ID, m.Name, m.Region, score})
	}
	t.Render()
}

// PrintRegions lists region codes and names.
func PrintRegions(w io.Writer, lookup *courses.Table) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Region", "Courses"})
	for _, code := range lookup.Regions() {
		t.AppendRow(table.Row{code, lookup.RegionName(code), len(lookup.RegionCourses(code))})
	}
	t.Render()
}
