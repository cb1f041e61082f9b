package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
)

// newTestClient wires a Client against a local test server. The server
// speaks the GHES path convention, so handlers register under /api/v3/.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	mux.HandleFunc("/api/v3/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resources":{"core":{"limit":5000,"remaining":4999,"reset":4102444800}}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		RetryConfig: RetryConfig{
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

func testMethod(t *testing.T, r *http.Request, want string) {
	t.Helper()
	if r.Method != want {
		t.Errorf("request method = %s, want %s", r.Method, want)
	}
}

func TestClient_ListOrgSecrets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/secrets", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", `<https://example.com/orgs/testorg/actions/secrets?page=2>; rel="next"`)
			fmt.Fprint(w, `{"total_count":3,"secrets":[{"name":"API_KEY","visibility":"all"},{"name":"DB_PASSWORD","visibility":"private"}]}`)
		case "2":
			fmt.Fprint(w, `{"total_count":3,"secrets":[{"name":"DEPLOY_KEY","visibility":"selected"}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, mux)

	secrets, err := client.ListOrgSecrets(context.Background(), "testorg")
	if err != nil {
		t.Fatalf("ListOrgSecrets() error = %v", err)
	}

	if len(secrets) != 3 {
		t.Fatalf("ListOrgSecrets() returned %d secrets, want 3", len(secrets))
	}

	wantNames := []string{"API_KEY", "DB_PASSWORD", "DEPLOY_KEY"}
	for i, want := range wantNames {
		if secrets[i].Name != want {
			t.Errorf("secrets[%d].Name = %s, want %s", i, secrets[i].Name, want)
		}
	}
}

func TestClient_GetOrgSecretNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/secrets/MISSING", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	client := newTestClient(t, mux)

	_, err := client.GetOrgSecret(context.Background(), "testorg", "MISSING")
	if err == nil {
		t.Fatal("GetOrgSecret() error = nil, want not found error")
	}

	if !IsNotFoundError(err) {
		t.Errorf("IsNotFoundError() = false for %v, want true", err)
	}
}

func TestClient_CreateOrUpdateOrgSecret(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/secrets/DEPLOY_KEY", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "PUT")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(t, mux)

	secret := &github.EncryptedSecret{
		Name:                  "DEPLOY_KEY",
		KeyID:                 "key-1",
		EncryptedValue:        "c2VhbGVk",
		Visibility:            "selected",
		SelectedRepositoryIDs: github.SelectedRepoIDs{101, 102},
	}

	if err := client.CreateOrUpdateOrgSecret(context.Background(), "testorg", secret); err != nil {
		t.Fatalf("CreateOrUpdateOrgSecret() error = %v", err)
	}

	if body["key_id"] != "key-1" {
		t.Errorf("key_id = %v, want key-1", body["key_id"])
	}
	if body["encrypted_value"] != "c2VhbGVk" {
		t.Errorf("encrypted_value = %v, want c2VhbGVk", body["encrypted_value"])
	}
	if body["visibility"] != "selected" {
		t.Errorf("visibility = %v, want selected", body["visibility"])
	}
	ids, ok := body["selected_repository_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("selected_repository_ids = %v, want two ids", body["selected_repository_ids"])
	}
}

func TestClient_ListSelectedReposForOrgSecret(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/secrets/DEPLOY_KEY/repositories", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")
		fmt.Fprint(w, `{"total_count":2,"repositories":[{"id":101,"name":"svc-a"},{"id":102,"name":"svc-b"}]}`)
	})

	client := newTestClient(t, mux)

	repos, err := client.ListSelectedReposForOrgSecret(context.Background(), "testorg", "DEPLOY_KEY")
	if err != nil {
		t.Fatalf("ListSelectedReposForOrgSecret() error = %v", err)
	}

	if len(repos) != 2 {
		t.Fatalf("ListSelectedReposForOrgSecret() returned %d repos, want 2", len(repos))
	}

	if repos[0].GetName() != "svc-a" || repos[1].GetName() != "svc-b" {
		t.Errorf("repos = %s, %s, want svc-a, svc-b", repos[0].GetName(), repos[1].GetName())
	}
}

func TestClient_ListRepoSecrets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/testorg/svc-a/actions/secrets", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")
		fmt.Fprint(w, `{"total_count":1,"secrets":[{"name":"NPM_TOKEN"}]}`)
	})

	client := newTestClient(t, mux)

	secrets, err := client.ListRepoSecrets(context.Background(), "testorg", "svc-a")
	if err != nil {
		t.Fatalf("ListRepoSecrets() error = %v", err)
	}

	if len(secrets) != 1 || secrets[0].Name != "NPM_TOKEN" {
		t.Errorf("ListRepoSecrets() = %v, want single NPM_TOKEN", secrets)
	}
}

func TestClient_GetRepoPublicKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/testorg/svc-a/actions/secrets/public-key", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")
		fmt.Fprint(w, `{"key_id":"568250167242549743","key":"6HJtt5aQV6NGl7nZ0value0000000000000000000000"}`)
	})

	client := newTestClient(t, mux)

	key, err := client.GetRepoPublicKey(context.Background(), "testorg", "svc-a")
	if err != nil {
		t.Fatalf("GetRepoPublicKey() error = %v", err)
	}

	if key.GetKeyID() != "568250167242549743" {
		t.Errorf("KeyID = %s, want 568250167242549743", key.GetKeyID())
	}
	if key.GetKey() == "" {
		t.Error("Key is empty")
	}
}
