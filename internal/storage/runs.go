package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// MigrationRun is the persisted form of a run summary.
type MigrationRun struct {
	RunID      string    `gorm:"primaryKey;size:36" json:"run_id"`
	SourceOrg  string    `gorm:"not null;index" json:"source_org"`
	TargetOrg  string    `gorm:"not null;index" json:"target_org"`
	Mode       string    `gorm:"not null" json:"mode"`
	DryRun     bool      `gorm:"not null;default:false" json:"dry_run"`
	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Created           int `gorm:"not null;default:0" json:"created"`
	Updated           int `gorm:"not null;default:0" json:"updated"`
	SkippedExists     int `gorm:"not null;default:0" json:"skipped_exists"`
	SkippedUnmappable int `gorm:"not null;default:0" json:"skipped_unmappable"`
	Failed            int `gorm:"not null;default:0" json:"failed"`

	Entries []RunEntry `gorm:"foreignKey:RunID;references:RunID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// TableName specifies the table name for MigrationRun
func (MigrationRun) TableName() string {
	return "migration_runs"
}

// RunEntry records one entry's identity and outcome within a run.
// Entry values are never persisted.
type RunEntry struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID    string `gorm:"not null;index;size:36" json:"run_id"`
	Position int    `gorm:"not null" json:"position"`

	Scope      string `gorm:"not null" json:"scope"`
	Repository string `json:"repository,omitempty"`
	Name       string `gorm:"not null" json:"name"`
	Kind       string `gorm:"not null" json:"kind"`

	Outcome string `gorm:"not null" json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// TableName specifies the table name for RunEntry
func (RunEntry) TableName() string {
	return "run_entries"
}

// SaveRun persists a completed run together with its per-entry results.
func (d *Database) SaveRun(ctx context.Context, summary *models.RunSummary) error {
	run := MigrationRun{
		RunID:             summary.RunID,
		SourceOrg:         summary.SourceOrg,
		TargetOrg:         summary.TargetOrg,
		Mode:              summary.Mode,
		DryRun:            summary.DryRun,
		StartedAt:         summary.StartedAt,
		FinishedAt:        summary.FinishedAt,
		Created:           summary.Created,
		Updated:           summary.Updated,
		SkippedExists:     summary.SkippedExists,
		SkippedUnmappable: summary.SkippedUnmappable,
		Failed:            summary.Failed,
	}

	for i, result := range summary.Results {
		run.Entries = append(run.Entries, RunEntry{
			RunID:      summary.RunID,
			Position:   i,
			Scope:      string(result.Entry.Scope),
			Repository: result.Entry.Repository,
			Name:       result.Entry.Name,
			Kind:       string(result.Entry.Kind),
			Outcome:    string(result.Outcome),
			Reason:     result.Reason,
		})
	}

	result := d.db.WithContext(ctx).Create(&run)
	if result.Error != nil {
		return fmt.Errorf("failed to save run: %w", result.Error)
	}

	return nil
}

// GetRun retrieves a run with its entry results by run ID.
// Returns nil when the run does not exist.
func (d *Database) GetRun(ctx context.Context, runID string) (*models.RunSummary, error) {
	var run MigrationRun
	err := d.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	results, err := d.ListEntryResults(ctx, runID)
	if err != nil {
		return nil, err
	}

	summary := runToSummary(&run)
	summary.Results = results
	return summary, nil
}

// ListRuns retrieves run summaries without entry detail, newest first.
// A limit of zero returns all runs.
func (d *Database) ListRuns(ctx context.Context, limit int) ([]*models.RunSummary, error) {
	query := d.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []*MigrationRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]*models.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runToSummary(run))
	}

	return summaries, nil
}

// ListEntryResults retrieves the per-entry results for a run in the order
// the entries were processed.
func (d *Database) ListEntryResults(ctx context.Context, runID string) ([]models.EntryResult, error) {
	var entries []RunEntry
	err := d.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("position ASC").
		Find(&entries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list run entries: %w", err)
	}

	results := make([]models.EntryResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, models.EntryResult{
			Entry: models.ConfigEntry{
				Scope:      models.Scope(entry.Scope),
				Repository: entry.Repository,
				Name:       entry.Name,
				Kind:       models.Kind(entry.Kind),
			},
			Outcome: models.Outcome(entry.Outcome),
			Reason:  entry.Reason,
		})
	}

	return results, nil
}

func runToSummary(run *MigrationRun) *models.RunSummary {
	return &models.RunSummary{
		RunID:             run.RunID,
		SourceOrg:         run.SourceOrg,
		TargetOrg:         run.TargetOrg,
		Mode:              run.Mode,
		DryRun:            run.DryRun,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		Created:           run.Created,
		Updated:           run.Updated,
		SkippedExists:     run.SkippedExists,
		SkippedUnmappable: run.SkippedUnmappable,
		Failed:            run.Failed,
	}
}
