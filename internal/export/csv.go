// Package export serializes migration entries to and from CSV tables.
// Exports never contain secret material: secret values are written as a
// sentinel, and an import only becomes applyable by filling values in by
// hand or running with placeholders.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// Header is the canonical column layout of exported tables.
var Header = []string{
	"scope",
	"repository",
	"name",
	"kind",
	"value",
	"visibility",
	"selected_repositories",
	"created_at",
	"updated_at",
}

// WriteFile writes entries to a CSV file, creating or truncating it.
func WriteFile(path string, entries []models.ConfigEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := WriteEntries(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteEntries writes entries as a CSV table in collection order.
func WriteEntries(w io.Writer, entries []models.ConfigEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range entries {
		if err := writer.Write(toRecord(&entries[i])); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+2, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// ReadFile reads a CSV table from a file.
func ReadFile(path string) ([]models.ConfigEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return ReadEntries(f)
}

// ReadEntries parses a CSV table back into validated entries. Columns are
// matched by header name, so hand-edited tables may reorder or omit the
// optional ones. Any malformed row fails the read with its line number;
// a bad row must never slip into a run half-parsed.
func ReadEntries(r io.Reader) ([]models.ConfigEntry, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, required := range []string{"scope", "name", "kind"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("CSV must have a %q column", required)
		}
	}

	raw := func(record []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	// Identity and metadata fields tolerate hand-edited padding; the value
	// column passes through untouched so whitespace-significant variable
	// values survive an import
	field := func(record []string, col string) string {
		return strings.TrimSpace(raw(record, col))
	}

	var entries []models.ConfigEntry
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to read row: %w", line, err)
		}

		entry := models.ConfigEntry{
			Scope:      models.Scope(field(record, "scope")),
			Repository: field(record, "repository"),
			Name:       field(record, "name"),
			Kind:       models.Kind(field(record, "kind")),
			Value:      raw(record, "value"),
			Visibility: models.Visibility(field(record, "visibility")),
		}

		if selected := field(record, "selected_repositories"); selected != "" {
			entry.SelectedRepositories = splitRepoList(selected)
		}

		if entry.CreatedAt, err = parseTime(field(record, "created_at")); err != nil {
			return nil, fmt.Errorf("line %d: invalid created_at: %w", line, err)
		}
		if entry.UpdatedAt, err = parseTime(field(record, "updated_at")); err != nil {
			return nil, fmt.Errorf("line %d: invalid updated_at: %w", line, err)
		}

		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// toRecord flattens one entry into the canonical column order.
func toRecord(e *models.ConfigEntry) []string {
	value := e.Value
	if e.Kind == models.KindSecret {
		value = models.SecretValueSentinel
	}

	return []string{
		string(e.Scope),
		e.Repository,
		e.Name,
		string(e.Kind),
		value,
		string(e.Visibility),
		strings.Join(e.SelectedRepositories, ","),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	}
}

// splitRepoList undoes the comma join. Repository names cannot contain
// commas, so the split is unambiguous.
func splitRepoList(s string) []string {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// formatTime renders RFC 3339, blank for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
