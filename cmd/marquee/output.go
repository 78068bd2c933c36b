package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"marquee/internal/feed"
)

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

// resolveOutputFormat turns "auto" into table for terminals and JSON for
// pipes and files.
func resolveOutputFormat(out io.Writer, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatAuto:
		if isTerminal(out) {
			return formatTable, nil
		}
		return formatJSON, nil
	case formatTable:
		return formatTable, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected auto, table or json)", format)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type summaryRecord struct {
	Title     string  `json:"title"`
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	PosterURL string  `json:"poster_url"`
}

type runSummary struct {
	Feed      string          `json:"feed"`
	RunID     string          `json:"run_id,omitempty"`
	Status    string          `json:"status"`
	Scraped   int             `json:"scraped"`
	Emitted   int             `json:"emitted"`
	Dropped   map[string]int  `json:"dropped,omitempty"`
	Locations []string        `json:"locations,omitempty"`
	Records   []summaryRecord `json:"records,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func summarize(feedName string, result *runResult, err error) runSummary {
	summary := runSummary{Feed: feedName, Status: "succeeded"}
	if err != nil {
		summary.Status = "failed"
		summary.Error = err.Error()
	}
	if result == nil {
		return summary
	}
	summary.RunID = result.RunID
	summary.Locations = result.Locations
	report := result.Report
	if report == nil {
		return summary
	}
	summary.Scraped = report.Scraped
	summary.Emitted = len(report.Records)
	if counts := report.DropCounts(); len(counts) > 0 {
		summary.Dropped = make(map[string]int, len(counts))
		for reason, n := range counts {
			summary.Dropped[string(reason)] = n
		}
	}
	for i, record := range report.Records {
		row := summaryRecord{Title: record.Title, ID: record.ID, PosterURL: record.PosterURL}
		if i < len(report.Selected) {
			row.Score = report.Selected[i].Score
		}
		summary.Records = append(summary.Records, row)
	}
	return summary
}

func renderSummaries(cmd *cobra.Command, mode string, summaries []runSummary) error {
	if mode == formatJSON {
		return writeJSON(cmd, summaries)
	}
	out := cmd.OutOrStdout()
	for i, summary := range summaries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s, %d of %d scraped titles emitted\n",
			summary.Feed, summary.Status, summary.Emitted, summary.Scraped)
		if summary.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", summary.Error)
		}
		if len(summary.Dropped) > 0 {
			fmt.Fprintf(out, "  dropped: %s\n", formatDropCounts(summary.Dropped))
		}
		for _, location := range summary.Locations {
			fmt.Fprintf(out, "  wrote %s\n", location)
		}
		if len(summary.Records) == 0 {
			continue
		}
		rows := make([][]string, 0, len(summary.Records))
		for j, record := range summary.Records {
			rows = append(rows, []string{
				strconv.Itoa(j + 1),
				record.Title,
				record.ID,
				strconv.FormatFloat(record.Score, 'f', 1, 64),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Title", idHeader(summary.Feed), "Score"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		))
	}
	return nil
}

func idHeader(feedName string) string {
	profile, err := feed.ProfileByName(feedName)
	if err != nil {
		return "ID"
	}
	return profile.IDKey
}

func formatDropCounts(counts map[string]int) string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, counts[reason]))
	}
	return strings.Join(parts, ", ")
}
