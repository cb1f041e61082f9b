package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

var (
	historyRunID string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted migration runs",
	Long: `List the runs recorded in the run-history database, newest first. Pass
--run with a run ID to print that run's per-entry results.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show per-entry results for one run ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("run history requires the database (set database.enabled: true)")
	}
	ctx := cmd.Context()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if historyRunID != "" {
		summary, err := db.GetRun(ctx, historyRunID)
		if err != nil {
			return err
		}
		if summary == nil {
			return fmt.Errorf("run %s not found", historyRunID)
		}
		printRunDetail(summary)
		return nil
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-3s  %-19s  %7s  %7s  %7s  %7s\n",
		"RUN ID", "MODE", "DRY", "STARTED", "CREATED", "UPDATED", "SKIPPED", "FAILED")
	for _, run := range runs {
		dry := ""
		if run.DryRun {
			dry = "yes"
		}
		fmt.Printf("%-36s  %-8s  %-3s  %-19s  %7d  %7d  %7d  %7d\n",
			run.RunID,
			run.Mode,
			dry,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Created,
			run.Updated,
			run.SkippedExists+run.SkippedUnmappable,
			run.Failed)
	}
	return nil
}

func printRunDetail(summary *models.RunSummary) {
	fmt.Printf("Run %s\n", summary.RunID)
	fmt.Printf("  %s -> %s, mode %s", summary.SourceOrg, summary.TargetOrg, summary.Mode)
	if summary.DryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()
	fmt.Printf("  started:  %s\n", summary.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  finished: %s\n", summary.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, result := range summary.Results {
		line := fmt.Sprintf("  %-19s %s", result.Outcome, result.Entry.Describe())
		if result.Reason != "" {
			line += "  (" + result.Reason + ")"
		}
		fmt.Println(line)
	}
}
