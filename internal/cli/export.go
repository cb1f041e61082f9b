package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/export"
	"github.com/kuhlman-labs/actions-migrator/internal/inventory"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the source organization's configuration to a CSV table",
	Long: `Collect every Actions secret and variable from the source organization and
write them as a CSV table. Secret values are written as a sentinel; fill them
in by hand to import without placeholders.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "actions-config.csv", "Output CSV path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newSourceClient()
	if err != nil {
		return err
	}

	collector := inventory.NewCollector(client, slog.Default())
	entries, err := collector.Collect(ctx, cfg.Source.Organization)
	if err != nil {
		return err
	}

	if err := export.WriteFile(exportOutput, entries); err != nil {
		return err
	}

	fmt.Printf("Exported %d entries to %s\n", len(entries), exportOutput)
	return nil
}
