// Package models provides the domain types shared across the Actions
// configuration migrator: configuration entries, per-entry outcomes, and
// run summaries.
package models

import (
	"fmt"
	"time"
)

// Scope identifies whether an entry applies organization-wide or to a
// single repository.
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeRepository   Scope = "repository"
)

// IsValidScope checks if a scope value is valid.
func IsValidScope(s Scope) bool {
	return s == ScopeOrganization || s == ScopeRepository
}

// Kind identifies the configuration entry type.
type Kind string

const (
	KindSecret   Kind = "secret"
	KindVariable Kind = "variable"
)

// IsValidKind checks if a kind value is valid.
func IsValidKind(k Kind) bool {
	return k == KindSecret || k == KindVariable
}

// Visibility controls which repositories may read an organization-scoped
// entry. The values align with the GitHub API's visibility field.
type Visibility string

const (
	VisibilityAll      Visibility = "all"
	VisibilityPrivate  Visibility = "private"
	VisibilitySelected Visibility = "selected"
)

// IsValidVisibility checks if a visibility value is valid.
func IsValidVisibility(v Visibility) bool {
	return v == VisibilityAll || v == VisibilityPrivate || v == VisibilitySelected
}

// PlaceholderSecretValue is the literal written in place of a secret's real
// value when placeholder mode is on. Source secret values can never be read
// back, so this is the only way to materialize a secret without an
// externally supplied value.
const PlaceholderSecretValue = "PLACEHOLDER_VALUE_SET_MANUALLY"

// SecretValueSentinel marks a secret's value column in exported tables.
// Exports never contain real secret material.
const SecretValueSentinel = "[ENCRYPTED_SECRET_VALUE]"

// ConfigEntry is the unit of migration: one secret or variable at
// organization or repository scope.
type ConfigEntry struct {
	Scope                Scope      `json:"scope"`
	Repository           string     `json:"repository,omitempty"` // required iff Scope = repository
	Name                 string     `json:"name"`
	Kind                 Kind       `json:"kind"`
	Value                string     `json:"value,omitempty"` // plaintext for variables; empty for secrets unless supplied for import
	Visibility           Visibility `json:"visibility,omitempty"`
	SelectedRepositories []string   `json:"selected_repositories,omitempty"`
	CreatedAt            time.Time  `json:"created_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at,omitempty"`

	// TargetRepositoryIDs holds the resolved target repository IDs for
	// selected visibility. It is attached during mapping resolution and is
	// the only field mutated after construction.
	TargetRepositoryIDs []int64 `json:"-"`
}

// EntryKey is the identity tuple for idempotency purposes. Two entries
// sharing a key on the target side are the same logical item.
type EntryKey struct {
	Scope      Scope
	Repository string
	Name       string
	Kind       Kind
}

// Key returns the entry's identity tuple.
func (e *ConfigEntry) Key() EntryKey {
	return EntryKey{
		Scope:      e.Scope,
		Repository: e.Repository,
		Name:       e.Name,
		Kind:       e.Kind,
	}
}

// Describe returns a short human-readable identity for logs and reports.
func (e *ConfigEntry) Describe() string {
	if e.Scope == ScopeRepository {
		return fmt.Sprintf("%s/%s %s", e.Repository, e.Name, e.Kind)
	}
	return fmt.Sprintf("org/%s %s", e.Name, e.Kind)
}

// Validate checks the entry's structural invariants. Entries are validated
// at construction; an entry that fails validation never enters a run.
func (e *ConfigEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entry name is required")
	}
	if !IsValidScope(e.Scope) {
		return fmt.Errorf("entry %q: invalid scope %q", e.Name, e.Scope)
	}
	if !IsValidKind(e.Kind) {
		return fmt.Errorf("entry %q: invalid kind %q", e.Name, e.Kind)
	}

	switch e.Scope {
	case ScopeRepository:
		if e.Repository == "" {
			return fmt.Errorf("entry %q: repository scope requires a repository name", e.Name)
		}
		if e.Visibility != "" {
			return fmt.Errorf("entry %q: visibility is only meaningful at organization scope", e.Name)
		}
		if len(e.SelectedRepositories) > 0 {
			return fmt.Errorf("entry %q: selected repositories are only meaningful at organization scope", e.Name)
		}
	case ScopeOrganization:
		if e.Repository != "" {
			return fmt.Errorf("entry %q: organization scope must not name a repository", e.Name)
		}
		if !IsValidVisibility(e.Visibility) {
			return fmt.Errorf("entry %q: invalid visibility %q", e.Name, e.Visibility)
		}
		if e.Visibility == VisibilitySelected && len(e.SelectedRepositories) == 0 {
			return fmt.Errorf("entry %q: selected visibility requires at least one repository", e.Name)
		}
		if e.Visibility != VisibilitySelected && len(e.SelectedRepositories) > 0 {
			return fmt.Errorf("entry %q: selected repositories set but visibility is %q", e.Name, e.Visibility)
		}
	}

	return nil
}
