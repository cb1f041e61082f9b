// Package cli wires the migrator's commands: configuration and logger
// setup, client construction, and the apply pipeline shared by migrate
// and import.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/actions-migrator/internal/config"
	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/logging"
	"github.com/kuhlman-labs/actions-migrator/internal/migration"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
	"github.com/kuhlman-labs/actions-migrator/internal/storage"
)

var (
	// Global flags
	cfgFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "actions-migrator",
	Short: "Migrate GitHub Actions secrets and variables between organizations",
	Long: `actions-migrator copies an organization's Actions configuration (secrets
and variables, at organization and repository scope) to another organization,
typically as the follow-up step after a repository migration.

Secret values cannot be read from the source, so secrets are created on the
target with a placeholder value by default, or from a hand-filled CSV via the
import command. Variables migrate with their real values.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file (default: ./configs/config.yaml, optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
}

// initConfig loads configuration and installs the process logger before any
// command runs.
func initConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	slog.SetDefault(logging.NewLogger(cfg.Logging))
	return nil
}

// clientConfig maps one side's settings onto a client configuration.
func clientConfig(side config.GitHubConfig) github.ClientConfig {
	retry := github.DefaultRetryConfig()
	if cfg.Migration.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Migration.MaxRetries
	}

	return github.ClientConfig{
		BaseURL:            side.BaseURL,
		Token:              side.Token,
		AppID:              side.AppID,
		AppPrivateKey:      side.AppPrivateKey,
		AppInstallationID:  side.AppInstallationID,
		Timeout:            time.Duration(cfg.Migration.RequestTimeoutSeconds) * time.Second,
		RateLimitThreshold: cfg.Migration.RateLimitThreshold,
		RetryConfig:        retry,
		Logger:             slog.Default(),
	}
}

// newSourceClient builds a client for source-only commands (export, audit).
func newSourceClient() (*github.Client, error) {
	if err := cfg.ValidateSource(); err != nil {
		return nil, err
	}
	return github.NewClient(clientConfig(cfg.Source))
}

// newPair builds both sides' clients for commands that write to the target.
func newPair() (*github.Pair, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return github.NewPair(github.PairConfig{
		Source:    clientConfig(cfg.Source),
		Target:    clientConfig(cfg.Target),
		SourceOrg: cfg.Source.Organization,
		TargetOrg: cfg.Target.Organization,
		Logger:    slog.Default(),
	})
}

// openStore opens the run-history store when one is configured. Returns nil
// without error when the database is disabled: runs work fine unrecorded.
func openStore() (*storage.Database, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}

	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open run-history database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate run-history database: %w", err)
	}
	return db, nil
}

// applyEntries runs the shared apply pipeline for migrate and import.
func applyEntries(ctx context.Context, entries []models.ConfigEntry, opts migration.Options) error {
	pair, err := newPair()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	engineCfg := migration.EngineConfig{
		Pair:   pair,
		Logger: slog.Default(),
	}
	// Leave Store unset when no database is open; a typed nil would defeat
	// the engine's nil check
	if db != nil {
		engineCfg.Store = db
	}

	engine, err := migration.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	summary, err := engine.Apply(ctx, entries, opts)
	if err != nil {
		return err
	}

	printSummary(summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed", summary.Failed, summary.Total())
	}
	return nil
}

// filterEntries narrows an inventory when one of the kind filters is set.
func filterEntries(entries []models.ConfigEntry, secretsOnly, variablesOnly bool) []models.ConfigEntry {
	if !secretsOnly && !variablesOnly {
		return entries
	}

	keep := models.KindSecret
	if variablesOnly {
		keep = models.KindVariable
	}

	filtered := make([]models.ConfigEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind == keep {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func printSummary(summary *models.RunSummary) {
	fmt.Println()
	if summary.DryRun {
		fmt.Printf("Dry run %s: no changes were made\n", summary.RunID)
	} else {
		fmt.Printf("Run %s complete\n", summary.RunID)
	}
	fmt.Printf("  entries:             %d\n", summary.Total())
	fmt.Printf("  created:             %d\n", summary.Created)
	fmt.Printf("  updated:             %d\n", summary.Updated)
	fmt.Printf("  skipped (exists):    %d\n", summary.SkippedExists)
	fmt.Printf("  skipped (unmapped):  %d\n", summary.SkippedUnmappable)
	fmt.Printf("  failed:              %d\n", summary.Failed)

	for _, result := range summary.Results {
		if result.Outcome == models.OutcomeFailed {
			fmt.Printf("  FAILED %s: %s\n", result.Entry.Describe(), result.Reason)
		}
	}
}
