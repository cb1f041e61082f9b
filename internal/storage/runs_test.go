package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuhlman-labs/actions-migrator/internal/config"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

func setupRunsTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := config.DatabaseConfig{
		Type: "sqlite",
		DSN:  ":memory:",
	}

	db, err := NewDatabase(cfg)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// buildTestSummary creates a summary with one entry per interesting outcome
func buildTestSummary(runID string) *models.RunSummary {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	summary := &models.RunSummary{
		RunID:      runID,
		SourceOrg:  "source-org",
		TargetOrg:  "target-org",
		Mode:       models.RunModeMigrate,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}

	summary.Record(models.ConfigEntry{
		Scope:      models.ScopeOrganization,
		Name:       "DEPLOY_KEY",
		Kind:       models.KindSecret,
		Visibility: models.VisibilityAll,
	}, models.OutcomeCreated, "")

	summary.Record(models.ConfigEntry{
		Scope:      models.ScopeRepository,
		Repository: "api",
		Name:       "LOG_LEVEL",
		Kind:       models.KindVariable,
		Value:      "debug",
	}, models.OutcomeSkippedExists, "already exists on target")

	summary.Record(models.ConfigEntry{
		Scope:      models.ScopeRepository,
		Repository: "retired",
		Name:       "API_TOKEN",
		Kind:       models.KindSecret,
	}, models.OutcomeSkippedUnmappable, "repository not found on target")

	return summary
}

func TestSaveRunAndGetRun(t *testing.T) {
	db := setupRunsTestDB(t)
	ctx := context.Background()

	summary := buildTestSummary("run-save-get")
	if err := db.SaveRun(ctx, summary); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	retrieved, err := db.GetRun(ctx, "run-save-get")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	require.NotNil(t, retrieved, "expected run but got nil")

	if retrieved.SourceOrg != "source-org" {
		t.Errorf("source org mismatch: got %q", retrieved.SourceOrg)
	}
	if retrieved.TargetOrg != "target-org" {
		t.Errorf("target org mismatch: got %q", retrieved.TargetOrg)
	}
	if retrieved.Mode != models.RunModeMigrate {
		t.Errorf("mode mismatch: got %q", retrieved.Mode)
	}
	if retrieved.Created != 1 || retrieved.SkippedExists != 1 || retrieved.SkippedUnmappable != 1 {
		t.Errorf("counter mismatch: created=%d skipped_exists=%d skipped_unmappable=%d",
			retrieved.Created, retrieved.SkippedExists, retrieved.SkippedUnmappable)
	}

	if len(retrieved.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(retrieved.Results))
	}

	// Results come back in processing order
	if retrieved.Results[0].Entry.Name != "DEPLOY_KEY" {
		t.Errorf("expected first result DEPLOY_KEY, got %q", retrieved.Results[0].Entry.Name)
	}
	if retrieved.Results[0].Outcome != models.OutcomeCreated {
		t.Errorf("expected first result created, got %q", retrieved.Results[0].Outcome)
	}
	if retrieved.Results[1].Reason != "already exists on target" {
		t.Errorf("reason mismatch: got %q", retrieved.Results[1].Reason)
	}
	if retrieved.Results[2].Entry.Repository != "retired" {
		t.Errorf("repository mismatch: got %q", retrieved.Results[2].Entry.Repository)
	}

	// Entry values must never be persisted
	if retrieved.Results[1].Entry.Value != "" {
		t.Errorf("expected empty value after round trip, got %q", retrieved.Results[1].Entry.Value)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := setupRunsTestDB(t)
	ctx := context.Background()

	run, err := db.GetRun(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Error("expected nil for non-existent run")
	}
}

func TestSaveRunNoEntries(t *testing.T) {
	db := setupRunsTestDB(t)
	ctx := context.Background()

	summary := &models.RunSummary{
		RunID:      "run-empty",
		SourceOrg:  "source-org",
		TargetOrg:  "target-org",
		Mode:       models.RunModeMigrate,
		DryRun:     true,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}

	if err := db.SaveRun(ctx, summary); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	retrieved, err := db.GetRun(ctx, "run-empty")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	require.NotNil(t, retrieved, "expected run but got nil")

	if !retrieved.DryRun {
		t.Error("expected dry run flag to round trip")
	}
	if len(retrieved.Results) != 0 {
		t.Errorf("expected no results, got %d", len(retrieved.Results))
	}
}

func TestListRuns(t *testing.T) {
	db := setupRunsTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		summary := buildTestSummary(fmt.Sprintf("run-%d", i))
		summary.StartedAt = base.Add(time.Duration(i) * time.Hour)
		summary.FinishedAt = summary.StartedAt.Add(time.Minute)
		if err := db.SaveRun(ctx, summary); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	// Newest first
	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Errorf("expected newest run first, got %q", runs[0].RunID)
	}
	if runs[2].RunID != "run-0" {
		t.Errorf("expected oldest run last, got %q", runs[2].RunID)
	}

	// List summaries carry counters but no entry detail
	if runs[0].Created != 1 {
		t.Errorf("expected created counter 1, got %d", runs[0].Created)
	}
	if len(runs[0].Results) != 0 {
		t.Errorf("expected no entry detail in list, got %d results", len(runs[0].Results))
	}

	// Limit caps the result set
	limited, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}
}

func TestListEntryResults(t *testing.T) {
	db := setupRunsTestDB(t)
	ctx := context.Background()

	summary := buildTestSummary("run-entries")
	if err := db.SaveRun(ctx, summary); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	results, err := db.ListEntryResults(ctx, "run-entries")
	if err != nil {
		t.Fatalf("ListEntryResults() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantNames := []string{"DEPLOY_KEY", "LOG_LEVEL", "API_TOKEN"}
	for i, want := range wantNames {
		if results[i].Entry.Name != want {
			t.Errorf("result %d: expected %q, got %q", i, want, results[i].Entry.Name)
		}
	}

	// Unknown run yields an empty result set, not an error
	empty, err := db.ListEntryResults(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no results, got %d", len(empty))
	}
}
