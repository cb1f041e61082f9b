// Package migration reconciles collected configuration entries against a
// target organization: each entry is checked for existence, resolved
// against the target's repositories, and created (or for variables,
// optionally updated) through the target client. One failing entry never
// aborts the batch.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/mapping"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
	"github.com/kuhlman-labs/actions-migrator/internal/sealing"
)

// RunStore persists run summaries. Persistence is best-effort: a nil store
// disables it, and a failing save is logged rather than failing the run.
type RunStore interface {
	SaveRun(ctx context.Context, summary *models.RunSummary) error
}

// Options controls how one Apply run treats its entries.
type Options struct {
	// CreatePlaceholder writes the placeholder literal for secret values
	// instead of requiring supplied ones.
	CreatePlaceholder bool

	// UpdateVariables replaces the value (and org-scope visibility) of
	// variables that already exist on the target. Secrets are never
	// updated regardless of this flag.
	UpdateVariables bool

	// DryRun stops each entry after the existence check and mapping
	// resolution, recording the would-be outcome without mutating.
	DryRun bool

	// Mode labels the run in summaries and history. Defaults to migrate.
	Mode string
}

// Engine applies configuration entries to the target side of a client pair.
type Engine struct {
	pair   *github.Pair
	mapper *mapping.Mapper
	sealer *sealing.Sealer
	store  RunStore
	logger *slog.Logger
}

// EngineConfig configures the apply engine
type EngineConfig struct {
	Pair   *github.Pair
	Store  RunStore // optional
	Logger *slog.Logger
}

// NewEngine creates an apply engine over a validated client pair.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Pair == nil {
		return nil, fmt.Errorf("client pair is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		pair:   cfg.Pair,
		mapper: mapping.NewMapper(cfg.Pair.Target, cfg.Logger),
		sealer: sealing.NewSealer(cfg.Pair.Target, cfg.Logger),
		store:  cfg.Store,
		logger: cfg.Logger,
	}, nil
}

// runContext carries per-run state between entry applications.
type runContext struct {
	mapping *mapping.RepositoryMapping
	opts    Options
}

// Apply reconciles entries against the target organization in collection
// order and returns the run summary. Preflight and mapping failures abort
// before any mutation; after that, per-entry failures are recorded and the
// batch continues. Context cancellation stops the run and returns the
// partial summary alongside the error.
func (e *Engine) Apply(ctx context.Context, entries []models.ConfigEntry, opts Options) (*models.RunSummary, error) {
	if opts.Mode == "" {
		opts.Mode = models.RunModeMigrate
	}

	if err := e.pair.ValidateAccess(ctx); err != nil {
		return nil, fmt.Errorf("preflight validation failed: %w", err)
	}

	targetMapping, err := e.mapper.BuildMapping(ctx, e.pair.TargetOrg)
	if err != nil {
		return nil, fmt.Errorf("failed to build target repository mapping: %w", err)
	}

	summary := &models.RunSummary{
		RunID:     uuid.New().String(),
		SourceOrg: e.pair.SourceOrg,
		TargetOrg: e.pair.TargetOrg,
		Mode:      opts.Mode,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}

	e.logger.Info("Applying configuration entries to target",
		"run_id", summary.RunID,
		"entries", len(entries),
		"target_org", e.pair.TargetOrg,
		"dry_run", opts.DryRun)

	rc := &runContext{
		mapping: targetMapping,
		opts:    opts,
	}

	for i := range entries {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now()
			e.saveSummary(summary)
			return summary, fmt.Errorf("run canceled after %d of %d entries: %w", i, len(entries), err)
		}

		entry := entries[i]
		outcome, reason := e.applyEntry(ctx, rc, &entry)
		summary.Record(entry, outcome, reason)
	}

	summary.FinishedAt = time.Now()

	e.logger.Info("Run complete",
		"run_id", summary.RunID,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped_exists", summary.SkippedExists,
		"skipped_unmappable", summary.SkippedUnmappable,
		"failed", summary.Failed)

	e.saveSummary(summary)

	return summary, nil
}

// saveSummary persists the summary when a store is configured. Storage
// failures are logged, never fatal: the run itself already happened.
func (e *Engine) saveSummary(summary *models.RunSummary) {
	if e.store == nil {
		return
	}

	// The run context may already be canceled; persistence gets its own.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.store.SaveRun(ctx, summary); err != nil {
		e.logger.Error("Failed to persist run summary",
			"run_id", summary.RunID,
			"error", err)
	}
}
