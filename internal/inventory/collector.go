// Package inventory collects the complete Actions configuration of an
// organization: org-scoped secrets and variables, then every repository's
// secrets and variables, as migration entries in listing order.
package inventory

import (
	"context"
	"fmt"
	"log/slog"

	ghapi "github.com/google/go-github/v75/github"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// Collector walks one organization's Actions configuration through the
// source client.
type Collector struct {
	client *github.Client
	logger *slog.Logger
}

// NewCollector creates a collector over the source side's client.
func NewCollector(client *github.Client, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client: client,
		logger: logger,
	}
}

// Collect gathers org-scoped entries first, then per-repository entries in
// repository listing order. A failure on one repository logs a warning and
// skips that repository; only failures at the organization level abort.
// Secret values are never readable, so secret entries carry no value.
func (c *Collector) Collect(ctx context.Context, org string) ([]models.ConfigEntry, error) {
	c.logger.Info("Collecting Actions configuration inventory", "org", org)

	var entries []models.ConfigEntry

	orgSecrets, err := c.collectOrgSecrets(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to collect organization secrets for %s: %w", org, err)
	}
	entries = append(entries, orgSecrets...)

	orgVariables, err := c.collectOrgVariables(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to collect organization variables for %s: %w", org, err)
	}
	entries = append(entries, orgVariables...)

	repos, err := c.client.ListRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", org, err)
	}

	skipped := 0
	for _, repo := range repos {
		repoEntries, err := c.collectRepoEntries(ctx, org, repo.GetName())
		if err != nil {
			c.logger.Warn("Skipping repository after collection failure",
				"org", org,
				"repository", repo.GetName(),
				"error", err)
			skipped++
			continue
		}
		entries = append(entries, repoEntries...)
	}

	c.logger.Info("Inventory collection complete",
		"org", org,
		"entries", len(entries),
		"org_secrets", len(orgSecrets),
		"org_variables", len(orgVariables),
		"repositories", len(repos),
		"repositories_skipped", skipped)

	return entries, nil
}

func (c *Collector) collectOrgSecrets(ctx context.Context, org string) ([]models.ConfigEntry, error) {
	secrets, err := c.client.ListOrgSecrets(ctx, org)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ConfigEntry, 0, len(secrets))
	for _, secret := range secrets {
		entry := models.ConfigEntry{
			Scope:      models.ScopeOrganization,
			Name:       secret.Name,
			Kind:       models.KindSecret,
			Visibility: models.Visibility(secret.Visibility),
			CreatedAt:  secret.CreatedAt.Time,
			UpdatedAt:  secret.UpdatedAt.Time,
		}

		if entry.Visibility == models.VisibilitySelected {
			names, err := c.selectedRepoNames(ctx, org, secret.Name, models.KindSecret)
			if err != nil {
				return nil, err
			}
			entry = withSelectedRepos(entry, names, c.logger)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (c *Collector) collectOrgVariables(ctx context.Context, org string) ([]models.ConfigEntry, error) {
	variables, err := c.client.ListOrgVariables(ctx, org)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ConfigEntry, 0, len(variables))
	for _, variable := range variables {
		entry := models.ConfigEntry{
			Scope:      models.ScopeOrganization,
			Name:       variable.Name,
			Kind:       models.KindVariable,
			Value:      variable.Value,
			Visibility: models.Visibility(variable.GetVisibility()),
			CreatedAt:  variable.GetCreatedAt().Time,
			UpdatedAt:  variable.GetUpdatedAt().Time,
		}

		if entry.Visibility == models.VisibilitySelected {
			names, err := c.selectedRepoNames(ctx, org, variable.Name, models.KindVariable)
			if err != nil {
				return nil, err
			}
			entry = withSelectedRepos(entry, names, c.logger)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// collectRepoEntries gathers one repository's secrets and variables. Both
// listings must succeed before anything is returned, so a failing
// repository contributes nothing rather than a partial slice.
func (c *Collector) collectRepoEntries(ctx context.Context, org, repo string) ([]models.ConfigEntry, error) {
	secrets, err := c.client.ListRepoSecrets(ctx, org, repo)
	if err != nil {
		return nil, err
	}

	variables, err := c.client.ListRepoVariables(ctx, org, repo)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ConfigEntry, 0, len(secrets)+len(variables))
	for _, secret := range secrets {
		entries = append(entries, models.ConfigEntry{
			Scope:      models.ScopeRepository,
			Repository: repo,
			Name:       secret.Name,
			Kind:       models.KindSecret,
			CreatedAt:  secret.CreatedAt.Time,
			UpdatedAt:  secret.UpdatedAt.Time,
		})
	}
	for _, variable := range variables {
		entries = append(entries, models.ConfigEntry{
			Scope:      models.ScopeRepository,
			Repository: repo,
			Name:       variable.Name,
			Kind:       models.KindVariable,
			Value:      variable.Value,
			CreatedAt:  variable.GetCreatedAt().Time,
			UpdatedAt:  variable.GetUpdatedAt().Time,
		})
	}

	return entries, nil
}

// selectedRepoNames resolves a selected-visibility org entry's repository
// list to names.
func (c *Collector) selectedRepoNames(ctx context.Context, org, name string, kind models.Kind) ([]string, error) {
	var repos []*ghapi.Repository
	var err error

	switch kind {
	case models.KindSecret:
		repos, err = c.client.ListSelectedReposForOrgSecret(ctx, org, name)
	case models.KindVariable:
		repos, err = c.client.ListSelectedReposForOrgVariable(ctx, org, name)
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		names = append(names, repo.GetName())
	}
	return names, nil
}

// withSelectedRepos attaches the resolved repository names. An entry the
// API reports as selected but shares with no repository (every selected
// repository since deleted) is downgraded to private so it stays valid.
func withSelectedRepos(entry models.ConfigEntry, names []string, logger *slog.Logger) models.ConfigEntry {
	if len(names) == 0 {
		logger.Warn("Selected-visibility entry is shared with no repositories, treating as private",
			"entry", entry.Describe())
		entry.Visibility = models.VisibilityPrivate
		return entry
	}
	entry.SelectedRepositories = names
	return entry
}
