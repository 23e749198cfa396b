package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/harrison/nbcheck/internal/history"
	"github.com/harrison/nbcheck/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'nbcheck history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded notebook runs",
		Long: `Display the run history stored by 'nbcheck run':
  - Recent suite runs with their status breakdown (default)
  - Every notebook outcome of one run (--run)
  - Recent outcomes of one notebook (--notebook)
  - Per-notebook pass rates and average durations (--stats)`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	cmd.Flags().String("notebook", "", "Show the history of one notebook path")
	cmd.Flags().String("run", "", "Show the notebook outcomes of one run ID")
	cmd.Flags().Bool("stats", false, "Show per-notebook statistics")
	cmd.Flags().Int("limit", 20, "Maximum number of rows to show")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dbPath := p.path(p.cfg.History.DBPath)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No run history found")
		fmt.Fprintf(out, "Database path: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	notebookPath, _ := cmd.Flags().GetString("notebook")
	runID, _ := cmd.Flags().GetString("run")
	showStats, _ := cmd.Flags().GetBool("stats")
	limit, _ := cmd.Flags().GetInt("limit")

	switch {
	case showStats:
		stats, err := store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		printStats(out, stats)
	case runID != "":
		records, err := store.RunResults(ctx, runID)
		if err != nil {
			return fmt.Errorf("get run results: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintf(out, "No results found for run: %s\n", runID)
			return nil
		}
		printNotebookRecords(out, records)
	case notebookPath != "":
		records, err := store.NotebookHistory(ctx, notebookPath, limit)
		if err != nil {
			return fmt.Errorf("get notebook history: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintf(out, "No history found for notebook: %s\n", notebookPath)
			return nil
		}
		printNotebookRecords(out, records)
	default:
		runs, err := store.RecentRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("get recent runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No run history found")
			return nil
		}
		printRuns(out, runs)
	}

	return nil
}

func statusText(status string) string {
	switch status {
	case models.StatusPassed:
		return color.GreenString(status)
	case models.StatusSkipped:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

func printRuns(w io.Writer, runs []*history.RunRecord) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s\n\n", bold("=== Recent Runs ==="))
	for _, r := range runs {
		status := models.StatusPassed
		if r.Failed+r.Errored > 0 {
			status = models.StatusFailed
		}
		fmt.Fprintf(w, "%s  %s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.RunID, statusText(status))
		fmt.Fprintf(w, "    kernel %s, %d total: %d passed, %d skipped, %d failed, %d errored (%.1fs)\n",
			r.KernelName, r.Total, r.Passed, r.Skipped, r.Failed, r.Errored, r.Duration.Seconds())
	}
}

func printNotebookRecords(w io.Writer, records []*history.NotebookRecord) {
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-8s %s (%.1fs)\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), statusText(r.Status), r.Path, r.Duration.Seconds())
		if r.Reason != "" {
			fmt.Fprintf(w, "    %s\n", r.Reason)
		}
	}
}

func printStats(w io.Writer, stats []*history.NotebookStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No run history found")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s\n\n", bold("=== Notebook Statistics ==="))
	for _, s := range stats {
		fmt.Fprintf(w, "%s\n", s.Path)
		fmt.Fprintf(w, "    runs %d, pass rate %.1f%%, avg %.1fs, last %s\n",
			s.Runs, s.PassRate()*100, s.AvgDuration.Seconds(), statusText(s.LastStatus))
		fmt.Fprintf(w, "    %d passed, %d skipped, %d failed, %d errored\n", s.Passed, s.Skipped, s.Failed, s.Errored)
	}
}
