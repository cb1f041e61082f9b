package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-github/v75/github"
)

func TestClient_ListOrgVariables(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", `<https://example.com/orgs/testorg/actions/variables?page=2>; rel="next"`)
			fmt.Fprint(w, `{"total_count":3,"variables":[{"name":"REGION","value":"us-east-1","visibility":"all"},{"name":"STAGE","value":"prod","visibility":"private"}]}`)
		case "2":
			fmt.Fprint(w, `{"total_count":3,"variables":[{"name":"CLUSTER","value":"main","visibility":"selected"}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, mux)

	variables, err := client.ListOrgVariables(context.Background(), "testorg")
	if err != nil {
		t.Fatalf("ListOrgVariables() error = %v", err)
	}

	if len(variables) != 3 {
		t.Fatalf("ListOrgVariables() returned %d variables, want 3", len(variables))
	}

	wantNames := []string{"REGION", "STAGE", "CLUSTER"}
	for i, want := range wantNames {
		if variables[i].Name != want {
			t.Errorf("variables[%d].Name = %s, want %s", i, variables[i].Name, want)
		}
	}

	if variables[0].Value != "us-east-1" {
		t.Errorf("variables[0].Value = %s, want us-east-1", variables[0].Value)
	}
}

func TestClient_CreateOrgVariable(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "POST")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(t, mux)

	visibility := "all"
	variable := &github.ActionsVariable{
		Name:       "REGION",
		Value:      "us-east-1",
		Visibility: &visibility,
	}

	if err := client.CreateOrgVariable(context.Background(), "testorg", variable); err != nil {
		t.Fatalf("CreateOrgVariable() error = %v", err)
	}

	if body["name"] != "REGION" {
		t.Errorf("name = %v, want REGION", body["name"])
	}
	if body["value"] != "us-east-1" {
		t.Errorf("value = %v, want us-east-1", body["value"])
	}
	if body["visibility"] != "all" {
		t.Errorf("visibility = %v, want all", body["visibility"])
	}
}

func TestClient_UpdateOrgVariable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/testorg/actions/variables/REGION", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "PATCH")
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)

	visibility := "all"
	variable := &github.ActionsVariable{
		Name:       "REGION",
		Value:      "eu-west-1",
		Visibility: &visibility,
	}

	if err := client.UpdateOrgVariable(context.Background(), "testorg", variable); err != nil {
		t.Fatalf("UpdateOrgVariable() error = %v", err)
	}
}

func TestClient_CreateRepoVariableConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/testorg/svc-a/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "POST")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"Variable already exists"}`)
	})

	client := newTestClient(t, mux)

	variable := &github.ActionsVariable{Name: "REGION", Value: "us-east-1"}

	err := client.CreateRepoVariable(context.Background(), "testorg", "svc-a", variable)
	if err == nil {
		t.Fatal("CreateRepoVariable() error = nil, want conflict error")
	}

	if !IsConflictError(err) {
		t.Errorf("IsConflictError() = false for %v, want true", err)
	}
}

func TestClient_GetRepoVariable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/testorg/svc-a/actions/variables/REGION", func(w http.ResponseWriter, r *http.Request) {
		testMethod(t, r, "GET")
		fmt.Fprint(w, `{"name":"REGION","value":"us-east-1","created_at":"2025-01-10T10:00:00Z","updated_at":"2025-02-10T10:00:00Z"}`)
	})

	client := newTestClient(t, mux)

	variable, err := client.GetRepoVariable(context.Background(), "testorg", "svc-a", "REGION")
	if err != nil {
		t.Fatalf("GetRepoVariable() error = %v", err)
	}

	if variable.Name != "REGION" || variable.Value != "us-east-1" {
		t.Errorf("GetRepoVariable() = %s=%s, want REGION=us-east-1", variable.Name, variable.Value)
	}
}
