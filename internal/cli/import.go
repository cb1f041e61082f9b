package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/export"
	"github.com/kuhlman-labs/actions-migrator/internal/migration"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

var (
	importInput           string
	importPlaceholder     bool
	importUpdateVariables bool
	importDryRun          bool
	importSecretsOnly     bool
	importVariablesOnly   bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Apply entries from a CSV table to the target organization",
	Long: `Read an exported (and possibly hand-edited) CSV table and apply its entries
to the target organization. With --placeholder=false, secret rows must carry
real values: rows still holding the export sentinel fail individually.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Input CSV path (required)")
	importCmd.Flags().BoolVar(&importPlaceholder, "placeholder", false, "Create secrets with a placeholder value instead of the table's values")
	importCmd.Flags().BoolVar(&importUpdateVariables, "update-variables", false, "Overwrite variables that already exist on the target")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would change without writing anything")
	importCmd.Flags().BoolVar(&importSecretsOnly, "secrets-only", false, "Import secrets only")
	importCmd.Flags().BoolVar(&importVariablesOnly, "variables-only", false, "Import variables only")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importSecretsOnly && importVariablesOnly {
		return fmt.Errorf("--secrets-only and --variables-only are mutually exclusive")
	}
	ctx := cmd.Context()

	entries, err := export.ReadFile(importInput)
	if err != nil {
		return err
	}

	entries = filterEntries(entries, importSecretsOnly, importVariablesOnly)
	if len(entries) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	return applyEntries(ctx, entries, migration.Options{
		CreatePlaceholder: importPlaceholder,
		UpdateVariables:   importUpdateVariables,
		DryRun:            importDryRun,
		Mode:              models.RunModeImport,
	})
}
