// Package audit scans an organization's workflow definitions for
// `${{ secrets.* }}` and `${{ vars.* }}` references and cross-checks them
// against a collected inventory. A reference with no matching entry is a
// gap: a workflow that will break on the target until someone supplies the
// value the migration could not carry over.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// Reference is one secret or variable lookup found in a workflow file.
type Reference struct {
	Repository   string      `json:"repository"`
	WorkflowFile string      `json:"workflow_file"`
	Kind         models.Kind `json:"kind"`
	Name         string      `json:"name"`
}

// expressionPattern matches one ${{ ... }} expression block.
var expressionPattern = regexp.MustCompile(`\$\{\{[^}]*\}\}`)

// Context lookups inside an expression. The leading group rejects dotted
// prefixes such as github.event.inputs.vars so only the top-level secrets
// and vars contexts match.
var (
	secretPattern   = regexp.MustCompile(`(^|[^.\w])secrets\.([A-Za-z_][A-Za-z0-9_]*)`)
	variablePattern = regexp.MustCompile(`(^|[^.\w])vars\.([A-Za-z_][A-Za-z0-9_]*)`)
)

// Scanner extracts configuration references from workflow files.
type Scanner struct {
	client *github.Client
	logger *slog.Logger
}

// NewScanner creates a scanner over the organization's client.
func NewScanner(client *github.Client, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		client: client,
		logger: logger,
	}
}

// Scan lists every repository in the organization and extracts the secret
// and variable references from its workflow files. Repositories without a
// workflow directory are skipped silently; a repository or file that fails
// to fetch or parse is skipped with a warning so one bad repository never
// sinks the audit.
func (s *Scanner) Scan(ctx context.Context, org string) ([]Reference, error) {
	repos, err := s.client.ListRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for audit: %w", err)
	}

	var references []Reference
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return references, fmt.Errorf("audit canceled: %w", err)
		}

		repoRefs, err := s.scanRepository(ctx, org, repo.GetName())
		if err != nil {
			s.logger.Warn("Failed to scan repository workflows",
				"org", org,
				"repo", repo.GetName(),
				"error", err)
			continue
		}
		references = append(references, repoRefs...)
	}

	s.logger.Info("Workflow reference scan complete",
		"org", org,
		"repositories", len(repos),
		"references", len(references))

	return references, nil
}

// scanRepository extracts references from one repository's workflow files.
func (s *Scanner) scanRepository(ctx context.Context, org, repo string) ([]Reference, error) {
	files, err := s.client.ListWorkflowFiles(ctx, org, repo)
	if err != nil {
		if github.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	var references []Reference
	for _, file := range files {
		content, err := s.client.GetFileContent(ctx, org, repo, file.GetPath())
		if err != nil {
			s.logger.Warn("Failed to fetch workflow file",
				"repo", repo,
				"file", file.GetName(),
				"error", err)
			continue
		}

		refs, err := extractReferences(content, repo, file.GetName())
		if err != nil {
			s.logger.Warn("Failed to parse workflow file",
				"repo", repo,
				"file", file.GetName(),
				"error", err)
			continue
		}
		references = append(references, refs...)
	}

	return references, nil
}

// extractReferences parses one workflow document and collects the secret
// and variable lookups from its string scalars. Duplicate lookups within a
// file collapse to one reference.
func extractReferences(content, repo, fileName string) ([]Reference, error) {
	var workflow map[string]any
	if err := yaml.Unmarshal([]byte(content), &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}

	seen := make(map[Reference]bool)
	var references []Reference
	record := func(kind models.Kind, name string) {
		ref := Reference{Repository: repo, WorkflowFile: fileName, Kind: kind, Name: name}
		if seen[ref] {
			return
		}
		seen[ref] = true
		references = append(references, ref)
	}

	walkStrings(workflow, func(value string) {
		for _, expr := range expressionPattern.FindAllString(value, -1) {
			for _, m := range secretPattern.FindAllStringSubmatch(expr, -1) {
				record(models.KindSecret, m[2])
			}
			for _, m := range variablePattern.FindAllStringSubmatch(expr, -1) {
				record(models.KindVariable, m[2])
			}
		}
	})

	// Map iteration order is random; reports and tests want stable rows
	sort.Slice(references, func(i, j int) bool {
		if references[i].Kind != references[j].Kind {
			return references[i].Kind < references[j].Kind
		}
		return references[i].Name < references[j].Name
	})

	return references, nil
}

// walkStrings visits every string scalar in a decoded YAML document.
func walkStrings(node any, visit func(string)) {
	switch v := node.(type) {
	case string:
		visit(v)
	case map[string]any:
		for _, child := range v {
			walkStrings(child, visit)
		}
	case []any:
		for _, child := range v {
			walkStrings(child, visit)
		}
	}
}

type entryKey struct {
	kind models.Kind
	name string
}

// Gaps returns the references no inventory entry satisfies. A reference is
// satisfied by an entry of the same kind and name in the same repository,
// or by an organization entry whose visibility reaches the repository.
// All and private visibility count as reachable; repository privacy is not
// tracked here, and a false gap would send someone hunting for a secret
// that exists. The runtime-provided GITHUB_TOKEN is never a gap.
func Gaps(references []Reference, inventory []models.ConfigEntry) []Reference {
	orgWide := make(map[entryKey]bool)
	orgSelected := make(map[entryKey]map[string]bool)
	byRepo := make(map[string]map[entryKey]bool)

	for i := range inventory {
		entry := &inventory[i]
		key := entryKey{kind: entry.Kind, name: strings.ToUpper(entry.Name)}

		switch entry.Scope {
		case models.ScopeOrganization:
			if entry.Visibility != models.VisibilitySelected {
				orgWide[key] = true
				continue
			}
			repos := orgSelected[key]
			if repos == nil {
				repos = make(map[string]bool)
				orgSelected[key] = repos
			}
			for _, name := range entry.SelectedRepositories {
				repos[strings.ToLower(name)] = true
			}
		case models.ScopeRepository:
			repo := strings.ToLower(entry.Repository)
			if byRepo[repo] == nil {
				byRepo[repo] = make(map[entryKey]bool)
			}
			byRepo[repo][key] = true
		}
	}

	var gaps []Reference
	for _, ref := range references {
		if ref.Kind == models.KindSecret && strings.EqualFold(ref.Name, "GITHUB_TOKEN") {
			continue
		}

		// Secret and variable names are case-insensitive on GitHub
		key := entryKey{kind: ref.Kind, name: strings.ToUpper(ref.Name)}
		repo := strings.ToLower(ref.Repository)

		if orgWide[key] || byRepo[repo][key] || orgSelected[key][repo] {
			continue
		}
		gaps = append(gaps, ref)
	}

	return gaps
}
