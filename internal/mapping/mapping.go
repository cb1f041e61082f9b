// Package mapping resolves source repository references against the target
// organization: a name-to-ID index built from one full listing, and the
// visibility resolution rules for selected-visibility entries.
package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// RepositoryMapping indexes target repository names to their numeric IDs.
// It is built once per run and read-only afterward; it is never persisted
// across runs, so renames and deletions on the target cannot go stale.
type RepositoryMapping struct {
	org    string
	byName map[string]int64
}

// Org returns the organization the mapping was built from.
func (m *RepositoryMapping) Org() string {
	return m.org
}

// Lookup resolves a repository name to its target ID. GitHub repository
// names are case-insensitive, so the lookup is too.
func (m *RepositoryMapping) Lookup(name string) (int64, bool) {
	id, ok := m.byName[strings.ToLower(name)]
	return id, ok
}

// Has reports whether the repository exists on the target.
func (m *RepositoryMapping) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Len returns the number of repositories in the mapping.
func (m *RepositoryMapping) Len() int {
	return len(m.byName)
}

// Mapper builds repository mappings and resolves entry visibility against
// them.
type Mapper struct {
	client *github.Client
	logger *slog.Logger
}

// NewMapper creates a mapper over the target organization's client.
func NewMapper(client *github.Client, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		client: client,
		logger: logger,
	}
}

// BuildMapping lists every repository in the organization and indexes
// name to ID.
func (m *Mapper) BuildMapping(ctx context.Context, org string) (*RepositoryMapping, error) {
	repos, err := m.client.ListRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository mapping for %s: %w", org, err)
	}

	byName := make(map[string]int64, len(repos))
	for _, repo := range repos {
		byName[strings.ToLower(repo.GetName())] = repo.GetID()
	}

	m.logger.Debug("Built target repository mapping",
		"org", org,
		"repositories", len(byName))

	return &RepositoryMapping{org: org, byName: byName}, nil
}

// ResolveSelected resolves an entry's selected repositories to target IDs
// and returns the effective visibility. Names that do not exist on the
// target are dropped with a warning. When the source set was non-empty but
// nothing resolved, visibility downgrades to private rather than dropping
// or failing the entry.
func (m *Mapper) ResolveSelected(entry *models.ConfigEntry, mapping *RepositoryMapping) ([]int64, models.Visibility) {
	if entry.Visibility != models.VisibilitySelected {
		return nil, entry.Visibility
	}

	ids := make([]int64, 0, len(entry.SelectedRepositories))
	for _, name := range entry.SelectedRepositories {
		id, ok := mapping.Lookup(name)
		if !ok {
			m.logger.Warn("Selected repository does not exist on target, dropping from visibility list",
				"entry", entry.Describe(),
				"repository", name,
				"target_org", mapping.Org())
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		m.logger.Warn("No selected repositories resolved on target, downgrading visibility to private",
			"entry", entry.Describe(),
			"target_org", mapping.Org())
		return nil, models.VisibilityPrivate
	}

	return ids, models.VisibilitySelected
}
