package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded generation runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var feedName string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), feedName, limit)
				if err != nil {
					return err
				}
				if asJSON {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Feed,
						string(run.Status),
						formatTime(run.StartedAt),
						formatDuration(run.FinishedAt.Sub(run.StartedAt)),
						strconv.Itoa(run.Scraped),
						strconv.Itoa(run.Emitted),
						strconv.Itoa(run.Dropped),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Feed", "Status", "Started", "Took", "Scraped", "Emitted", "Dropped"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&feedName, "feed", "f", "", "Only list runs of this feed")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's scored entries and drops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				if asJSON {
					return writeJSON(cmd, run)
				}
				renderRun(cmd, run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRun(cmd *cobra.Command, run *history.Run) {
	out := cmd.OutOrStdout()
	details := [][2]string{
		{"Run", run.ID},
		{"Feed", run.Feed},
		{"Status", string(run.Status)},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
		{"Scraped", strconv.Itoa(run.Scraped)},
		{"Emitted", strconv.Itoa(run.Emitted)},
		{"Output", valueOrDash(run.OutputPath)},
	}
	if run.ErrorMessage != "" {
		details = append(details, [2]string{"Error", run.ErrorMessage})
	}
	fmt.Fprintln(out, renderDetails(details))

	if len(run.Entries) > 0 {
		rows := make([][]string, 0, len(run.Entries))
		for _, entry := range run.Entries {
			secondary := "-"
			if entry.RatingSecondary != nil {
				secondary = strconv.FormatFloat(*entry.RatingSecondary, 'f', 0, 64)
			}
			selected := ""
			if entry.Selected {
				selected = "*"
			}
			rows = append(rows, []string{
				selected,
				entry.Title,
				valueOrDash(entry.ExternalID),
				strconv.FormatFloat(entry.Popularity, 'f', 1, 64),
				strconv.FormatFloat(entry.RatingPrimary, 'f', 0, 64),
				secondary,
				strconv.FormatFloat(entry.Score, 'f', 1, 64),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"", "Title", "ID", "Popularity", "Rating", "Critics", "Score"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	if len(run.Drops) > 0 {
		rows := make([][]string, 0, len(run.Drops))
		for _, drop := range run.Drops {
			rows = append(rows, []string{drop.Title, yearLabel(drop.Year), drop.Reason, valueOrDash(drop.ErrorMessage)})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Dropped", "Year", "Reason", "Error"}, rows, nil))
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := parseAge(olderThan)
			if err != nil {
				return err
			}
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "Age cutoff such as 30d or 72h")
	return cmd
}

// parseAge accepts Go durations plus a whole-day "Nd" form.
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil || age < 0 {
		return 0, fmt.Errorf("invalid age %q", value)
	}
	return age, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}
