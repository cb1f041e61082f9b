package migration

import (
	"context"
	"fmt"

	ghapi "github.com/google/go-github/v75/github"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
	"github.com/kuhlman-labs/actions-migrator/internal/sealing"
)

const reasonAlreadyExists = "already exists on target"

// applyEntry reconciles one entry and classifies the result. Errors are
// folded into the outcome; the caller keeps going either way.
func (e *Engine) applyEntry(ctx context.Context, rc *runContext, entry *models.ConfigEntry) (models.Outcome, string) {
	switch entry.Kind {
	case models.KindSecret:
		return e.applySecret(ctx, rc, entry)
	case models.KindVariable:
		return e.applyVariable(ctx, rc, entry)
	default:
		return models.OutcomeFailed, fmt.Sprintf("unknown entry kind %q", entry.Kind)
	}
}

// applySecret creates a secret that does not exist on the target yet.
// Secrets are create-or-skip: an existing secret is never overwritten, and
// there is no update path.
func (e *Engine) applySecret(ctx context.Context, rc *runContext, entry *models.ConfigEntry) (models.Outcome, string) {
	exists, err := e.secretExists(ctx, entry)
	if err != nil {
		e.logger.Error("Failed to check secret existence",
			"entry", entry.Describe(),
			"error", err)
		return models.OutcomeFailed, fmt.Sprintf("existence check failed: %v", err)
	}

	if exists {
		e.logger.Info("Secret already exists on target, skipping",
			"entry", entry.Describe())
		return models.OutcomeSkippedExists, reasonAlreadyExists
	}

	if entry.Scope == models.ScopeRepository && !rc.mapping.Has(entry.Repository) {
		e.logger.Warn("Target repository does not exist, skipping entry",
			"entry", entry.Describe(),
			"target_org", e.pair.TargetOrg)
		return models.OutcomeSkippedUnmappable, "repository does not exist on target"
	}

	var (
		repoIDs    []int64
		visibility models.Visibility
	)
	if entry.Scope == models.ScopeOrganization {
		repoIDs, visibility = e.mapper.ResolveSelected(entry, rc.mapping)
		entry.TargetRepositoryIDs = repoIDs
	}

	if rc.opts.DryRun {
		e.logger.Info("Dry run: would create secret", "entry", entry.Describe())
		return models.OutcomeCreated, ""
	}

	value := entry.Value
	if rc.opts.CreatePlaceholder {
		value = models.PlaceholderSecretValue
	} else if value == "" {
		e.logger.Error("No value available for secret",
			"entry", entry.Describe())
		return models.OutcomeFailed, "no value supplied and placeholder mode is off"
	} else if value == models.SecretValueSentinel {
		// An imported table whose sentinel rows were never filled in
		e.logger.Error("Secret value still carries the export sentinel",
			"entry", entry.Describe())
		return models.OutcomeFailed, "value is the export sentinel, fill it in or run with placeholders"
	}

	var sealed *sealing.SealedValue
	var sealErr error
	if entry.Scope == models.ScopeOrganization {
		sealed, sealErr = e.sealer.SealOrgSecret(ctx, e.pair.TargetOrg, value)
	} else {
		sealed, sealErr = e.sealer.SealRepoSecret(ctx, e.pair.TargetOrg, entry.Repository, value)
	}
	if sealErr != nil {
		e.logger.Error("Failed to seal secret value",
			"entry", entry.Describe(),
			"error", sealErr)
		return models.OutcomeFailed, fmt.Sprintf("sealing failed: %v", sealErr)
	}

	encrypted := &ghapi.EncryptedSecret{
		Name:           entry.Name,
		KeyID:          sealed.KeyID,
		EncryptedValue: sealed.Ciphertext,
	}

	var createErr error
	if entry.Scope == models.ScopeOrganization {
		encrypted.Visibility = string(visibility)
		if visibility == models.VisibilitySelected {
			encrypted.SelectedRepositoryIDs = ghapi.SelectedRepoIDs(repoIDs)
		}
		createErr = e.pair.Target.CreateOrUpdateOrgSecret(ctx, e.pair.TargetOrg, encrypted)
	} else {
		createErr = e.pair.Target.CreateOrUpdateRepoSecret(ctx, e.pair.TargetOrg, entry.Repository, encrypted)
	}
	if createErr != nil {
		e.logger.Error("Failed to create secret",
			"entry", entry.Describe(),
			"error", createErr)
		return models.OutcomeFailed, createErr.Error()
	}

	if rc.opts.CreatePlaceholder {
		e.logger.Info("Created secret with placeholder value, set the real value manually",
			"entry", entry.Describe())
	} else {
		e.logger.Info("Created secret", "entry", entry.Describe())
	}
	return models.OutcomeCreated, ""
}

// applyVariable creates a variable that does not exist on the target, or
// replaces an existing one when the update option is on.
func (e *Engine) applyVariable(ctx context.Context, rc *runContext, entry *models.ConfigEntry) (models.Outcome, string) {
	exists, err := e.variableExists(ctx, entry)
	if err != nil {
		e.logger.Error("Failed to check variable existence",
			"entry", entry.Describe(),
			"error", err)
		return models.OutcomeFailed, fmt.Sprintf("existence check failed: %v", err)
	}

	if exists {
		if !rc.opts.UpdateVariables {
			e.logger.Info("Variable already exists on target, skipping",
				"entry", entry.Describe())
			return models.OutcomeSkippedExists, reasonAlreadyExists
		}
		return e.updateVariable(ctx, rc, entry)
	}

	if entry.Scope == models.ScopeRepository && !rc.mapping.Has(entry.Repository) {
		e.logger.Warn("Target repository does not exist, skipping entry",
			"entry", entry.Describe(),
			"target_org", e.pair.TargetOrg)
		return models.OutcomeSkippedUnmappable, "repository does not exist on target"
	}

	var (
		repoIDs    []int64
		visibility models.Visibility
	)
	if entry.Scope == models.ScopeOrganization {
		repoIDs, visibility = e.mapper.ResolveSelected(entry, rc.mapping)
		entry.TargetRepositoryIDs = repoIDs
	}

	if rc.opts.DryRun {
		e.logger.Info("Dry run: would create variable", "entry", entry.Describe())
		return models.OutcomeCreated, ""
	}

	variable := &ghapi.ActionsVariable{
		Name:  entry.Name,
		Value: entry.Value,
	}

	var createErr error
	if entry.Scope == models.ScopeOrganization {
		variable.Visibility = ghapi.Ptr(string(visibility))
		if visibility == models.VisibilitySelected {
			ids := ghapi.SelectedRepoIDs(repoIDs)
			variable.SelectedRepositoryIDs = &ids
		}
		createErr = e.pair.Target.CreateOrgVariable(ctx, e.pair.TargetOrg, variable)
	} else {
		createErr = e.pair.Target.CreateRepoVariable(ctx, e.pair.TargetOrg, entry.Repository, variable)
	}
	if createErr != nil {
		e.logger.Error("Failed to create variable",
			"entry", entry.Describe(),
			"error", createErr)
		return models.OutcomeFailed, createErr.Error()
	}

	e.logger.Info("Created variable", "entry", entry.Describe())
	return models.OutcomeCreated, ""
}

// updateVariable replaces an existing variable's value and, at organization
// scope, its visibility.
func (e *Engine) updateVariable(ctx context.Context, rc *runContext, entry *models.ConfigEntry) (models.Outcome, string) {
	var (
		repoIDs    []int64
		visibility models.Visibility
	)
	if entry.Scope == models.ScopeOrganization {
		repoIDs, visibility = e.mapper.ResolveSelected(entry, rc.mapping)
		entry.TargetRepositoryIDs = repoIDs
	}

	if rc.opts.DryRun {
		e.logger.Info("Dry run: would update variable", "entry", entry.Describe())
		return models.OutcomeUpdated, ""
	}

	variable := &ghapi.ActionsVariable{
		Name:  entry.Name,
		Value: entry.Value,
	}

	var updateErr error
	if entry.Scope == models.ScopeOrganization {
		variable.Visibility = ghapi.Ptr(string(visibility))
		if visibility == models.VisibilitySelected {
			ids := ghapi.SelectedRepoIDs(repoIDs)
			variable.SelectedRepositoryIDs = &ids
		}
		updateErr = e.pair.Target.UpdateOrgVariable(ctx, e.pair.TargetOrg, variable)
	} else {
		updateErr = e.pair.Target.UpdateRepoVariable(ctx, e.pair.TargetOrg, entry.Repository, variable)
	}
	if updateErr != nil {
		e.logger.Error("Failed to update variable",
			"entry", entry.Describe(),
			"error", updateErr)
		return models.OutcomeFailed, updateErr.Error()
	}

	e.logger.Info("Updated variable", "entry", entry.Describe())
	return models.OutcomeUpdated, ""
}

// secretExists checks the target for a secret with the entry's identity.
// A 404 means absent; for repository entries a missing repository also
// reports 404, which the caller resolves through the mapping.
func (e *Engine) secretExists(ctx context.Context, entry *models.ConfigEntry) (bool, error) {
	var err error
	if entry.Scope == models.ScopeOrganization {
		_, err = e.pair.Target.GetOrgSecret(ctx, e.pair.TargetOrg, entry.Name)
	} else {
		_, err = e.pair.Target.GetRepoSecret(ctx, e.pair.TargetOrg, entry.Repository, entry.Name)
	}

	if err != nil {
		if github.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// variableExists checks the target for a variable with the entry's identity.
func (e *Engine) variableExists(ctx context.Context, entry *models.ConfigEntry) (bool, error) {
	var err error
	if entry.Scope == models.ScopeOrganization {
		_, err = e.pair.Target.GetOrgVariable(ctx, e.pair.TargetOrg, entry.Name)
	} else {
		_, err = e.pair.Target.GetRepoVariable(ctx, e.pair.TargetOrg, entry.Repository, entry.Name)
	}

	if err != nil {
		if github.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
