package models

import "time"

// Outcome classifies the result of applying one entry to the target.
type Outcome string

const (
	// OutcomeCreated means the entry was created on the target.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing variable's value was replaced via the
	// explicit update path. Secrets are never updated.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkippedExists means the entry already existed on the target and
	// was left untouched.
	OutcomeSkippedExists Outcome = "skipped_exists"
	// OutcomeSkippedUnmappable means the entry's repository does not exist on
	// the target, so there is nothing to create it against.
	OutcomeSkippedUnmappable Outcome = "skipped_unmappable"
	// OutcomeFailed means the entry could not be applied; Reason carries the
	// classified cause.
	OutcomeFailed Outcome = "failed"
)

// EntryResult pairs an entry with its outcome for one run.
type EntryResult struct {
	Entry   ConfigEntry `json:"entry"`
	Outcome Outcome     `json:"outcome"`
	Reason  string      `json:"reason,omitempty"` // populated for failures and skips
}

// Run mode constants identify how a run's inventory was produced.
const (
	RunModeMigrate = "migrate"
	RunModeImport  = "import"
)

// RunSummary aggregates per-entry results for one migration execution.
// Results preserve collection order.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	SourceOrg  string    `json:"source_org"`
	TargetOrg  string    `json:"target_org"`
	Mode       string    `json:"mode"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Results []EntryResult `json:"results"`

	Created           int `json:"created"`
	Updated           int `json:"updated"`
	SkippedExists     int `json:"skipped_exists"`
	SkippedUnmappable int `json:"skipped_unmappable"`
	Failed            int `json:"failed"`
}

// Record appends an entry result and bumps the matching counter.
func (s *RunSummary) Record(entry ConfigEntry, outcome Outcome, reason string) {
	s.Results = append(s.Results, EntryResult{Entry: entry, Outcome: outcome, Reason: reason})

	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkippedExists:
		s.SkippedExists++
	case OutcomeSkippedUnmappable:
		s.SkippedUnmappable++
	case OutcomeFailed:
		s.Failed++
	}
}

// Total returns the number of entries processed.
func (s *RunSummary) Total() int {
	return len(s.Results)
}
