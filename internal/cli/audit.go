package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/audit"
	"github.com/kuhlman-labs/actions-migrator/internal/inventory"
)

var (
	auditOutput           string
	auditAgainstInventory bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Scan the source organization's workflows for secret and variable references",
	Long: `Scan every workflow file in the source organization for ${{ secrets.* }} and
${{ vars.* }} expressions. With --against-inventory, cross-check the
references against the collected configuration and report the ones nothing
satisfies: those are the values someone must supply after a migration.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Write the reference table to a CSV file")
	auditCmd.Flags().BoolVar(&auditAgainstInventory, "against-inventory", false, "Cross-check references against the collected inventory")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newSourceClient()
	if err != nil {
		return err
	}

	scanner := audit.NewScanner(client, slog.Default())
	references, err := scanner.Scan(ctx, cfg.Source.Organization)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d secret and variable references across the organization's workflows.\n", len(references))

	var gaps []audit.Reference
	if auditAgainstInventory {
		collector := inventory.NewCollector(client, slog.Default())
		entries, err := collector.Collect(ctx, cfg.Source.Organization)
		if err != nil {
			return err
		}

		gaps = audit.Gaps(references, entries)
		if len(gaps) == 0 {
			fmt.Println("Every reference is satisfied by the inventory.")
		} else {
			fmt.Printf("%d references have no matching entry:\n", len(gaps))
			for _, gap := range gaps {
				fmt.Printf("  %s/%s references %s %q\n", gap.Repository, gap.WorkflowFile, gap.Kind, gap.Name)
			}
		}
	}

	if auditOutput != "" {
		if err := audit.WriteFile(auditOutput, references, gaps); err != nil {
			return err
		}
		fmt.Printf("Wrote reference table to %s\n", auditOutput)
	}

	return nil
}
