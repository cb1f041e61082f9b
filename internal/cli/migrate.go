package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/inventory"
	"github.com/kuhlman-labs/actions-migrator/internal/migration"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

var (
	migratePlaceholder     bool
	migrateUpdateVariables bool
	migrateDryRun          bool
	migrateSecretsOnly     bool
	migrateVariablesOnly   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Collect the source organization's configuration and apply it to the target",
	Long: `Collect every Actions secret and variable from the source organization and
create the missing ones on the target. Entries that already exist on the
target are skipped; secrets are created with a placeholder value unless
--placeholder=false.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePlaceholder, "placeholder", true, "Create secrets with a placeholder value (source values are not readable)")
	migrateCmd.Flags().BoolVar(&migrateUpdateVariables, "update-variables", false, "Overwrite variables that already exist on the target")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Report what would change without writing anything")
	migrateCmd.Flags().BoolVar(&migrateSecretsOnly, "secrets-only", false, "Migrate secrets only")
	migrateCmd.Flags().BoolVar(&migrateVariablesOnly, "variables-only", false, "Migrate variables only")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateSecretsOnly && migrateVariablesOnly {
		return fmt.Errorf("--secrets-only and --variables-only are mutually exclusive")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
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

	entries = filterEntries(entries, migrateSecretsOnly, migrateVariablesOnly)
	if len(entries) == 0 {
		fmt.Println("Nothing to migrate.")
		return nil
	}

	return applyEntries(ctx, entries, migration.Options{
		CreatePlaceholder: migratePlaceholder,
		UpdateVariables:   migrateUpdateVariables,
		DryRun:            migrateDryRun,
		Mode:              models.RunModeMigrate,
	})
}
