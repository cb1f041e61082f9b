package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check credentials, organization access and rate limits on both sides",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pair, err := newPair()
	if err != nil {
		return err
	}

	if err := pair.ValidateAccess(ctx); err != nil {
		return err
	}

	fmt.Printf("Access verified: %s -> %s\n", pair.SourceOrg, pair.TargetOrg)
	printRateLimit(ctx, "source", pair.Source)
	printRateLimit(ctx, "target", pair.Target)
	return nil
}

func printRateLimit(ctx context.Context, side string, client *github.Client) {
	limits, err := client.GetRateLimitStatus(ctx)
	if err != nil {
		fmt.Printf("  %s: rate limit status unavailable: %v\n", side, err)
		return
	}
	if core := limits.Core; core != nil {
		fmt.Printf("  %s: %d of %d requests remaining, resets %s\n",
			side, core.Remaining, core.Limit, core.Reset.Time.Format(time.RFC3339))
	}
}
