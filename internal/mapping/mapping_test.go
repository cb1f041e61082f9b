package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
	"github.com/kuhlman-labs/actions-migrator/internal/models"
)

// newTestClient wires a client against a local test server using the GHES
// path convention, so handlers register under /api/v3/.
func newTestClient(t *testing.T, mux *http.ServeMux) *github.Client {
	t.Helper()

	mux.HandleFunc("/api/v3/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resources":{"core":{"limit":5000,"remaining":4999,"reset":4102444800}}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := github.NewClient(github.ClientConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		RetryConfig: github.RetryConfig{
			MaxAttempts:     2,
			InitialBackoff:  10 * time.Millisecond,
			MaxBackoff:      50 * time.Millisecond,
			BackoffMultiple: 2.0,
		},
		Logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestMapper_BuildMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/new-org/repos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", `<https://example.com/orgs/new-org/repos?page=2>; rel="next"`)
			fmt.Fprint(w, `[{"id":101,"name":"tool"},{"id":102,"name":"WebApp"}]`)
		case "2":
			fmt.Fprint(w, `[{"id":103,"name":"infra"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, mux)
	mapper := NewMapper(client, testLogger())

	mapping, err := mapper.BuildMapping(context.Background(), "new-org")
	if err != nil {
		t.Fatalf("BuildMapping() error = %v", err)
	}

	if mapping.Len() != 3 {
		t.Errorf("mapping.Len() = %d, want 3", mapping.Len())
	}

	if mapping.Org() != "new-org" {
		t.Errorf("mapping.Org() = %s, want new-org", mapping.Org())
	}

	tests := []struct {
		name   string
		wantID int64
		wantOK bool
	}{
		{"tool", 101, true},
		{"TOOL", 101, true},
		{"webapp", 102, true},
		{"WebApp", 102, true},
		{"infra", 103, true},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		id, ok := mapping.Lookup(tt.name)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("Lookup(%q) = (%d, %v), want (%d, %v)", tt.name, id, ok, tt.wantID, tt.wantOK)
		}
	}

	if mapping.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
}

func TestMapper_BuildMappingListError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/gone-org/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	client := newTestClient(t, mux)
	mapper := NewMapper(client, testLogger())

	if _, err := mapper.BuildMapping(context.Background(), "gone-org"); err == nil {
		t.Fatal("BuildMapping() expected error for missing org, got nil")
	}
}

func TestMapper_ResolveSelected(t *testing.T) {
	mapping := &RepositoryMapping{
		org: "new-org",
		byName: map[string]int64{
			"r1": 11,
			"r2": 22,
		},
	}

	mapper := NewMapper(nil, testLogger())

	tests := []struct {
		name           string
		entry          models.ConfigEntry
		wantIDs        []int64
		wantVisibility models.Visibility
	}{
		{
			name: "all names resolve",
			entry: models.ConfigEntry{
				Scope:                models.ScopeOrganization,
				Name:                 "API_KEY",
				Kind:                 models.KindSecret,
				Visibility:           models.VisibilitySelected,
				SelectedRepositories: []string{"r1", "r2"},
			},
			wantIDs:        []int64{11, 22},
			wantVisibility: models.VisibilitySelected,
		},
		{
			name: "unresolvable names dropped",
			entry: models.ConfigEntry{
				Scope:                models.ScopeOrganization,
				Name:                 "API_KEY",
				Kind:                 models.KindSecret,
				Visibility:           models.VisibilitySelected,
				SelectedRepositories: []string{"r1", "deleted-repo"},
			},
			wantIDs:        []int64{11},
			wantVisibility: models.VisibilitySelected,
		},
		{
			name: "lookup is case-insensitive",
			entry: models.ConfigEntry{
				Scope:                models.ScopeOrganization,
				Name:                 "API_KEY",
				Kind:                 models.KindSecret,
				Visibility:           models.VisibilitySelected,
				SelectedRepositories: []string{"R1"},
			},
			wantIDs:        []int64{11},
			wantVisibility: models.VisibilitySelected,
		},
		{
			name: "nothing resolves downgrades to private",
			entry: models.ConfigEntry{
				Scope:                models.ScopeOrganization,
				Name:                 "API_KEY",
				Kind:                 models.KindSecret,
				Visibility:           models.VisibilitySelected,
				SelectedRepositories: []string{"gone-1", "gone-2"},
			},
			wantIDs:        nil,
			wantVisibility: models.VisibilityPrivate,
		},
		{
			name: "non-selected visibility passes through",
			entry: models.ConfigEntry{
				Scope:      models.ScopeOrganization,
				Name:       "API_KEY",
				Kind:       models.KindSecret,
				Visibility: models.VisibilityAll,
			},
			wantIDs:        nil,
			wantVisibility: models.VisibilityAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, visibility := mapper.ResolveSelected(&tt.entry, mapping)

			if len(ids) != len(tt.wantIDs) || (len(tt.wantIDs) > 0 && !reflect.DeepEqual(ids, tt.wantIDs)) {
				t.Errorf("ResolveSelected() ids = %v, want %v", ids, tt.wantIDs)
			}
			if visibility != tt.wantVisibility {
				t.Errorf("ResolveSelected() visibility = %s, want %s", visibility, tt.wantVisibility)
			}
		})
	}
}
