package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/oauth2"
)

// Everything this script creates carries one of these prefixes so that
// cleanup can find it again without touching anything else in the org.
const (
	repoPrefix  = "migrator-test-"
	entryPrefix = "MIGRATOR_TEST_"
)

// testRepos are created first so selected-visibility entries have
// repositories to point at.
var testRepos = []string{
	repoPrefix + "api",
	repoPrefix + "worker",
	repoPrefix + "web",
}

// orgEntryConfig defines an organization-level secret or variable to seed.
type orgEntryConfig struct {
	Name          string
	Value         string
	Visibility    string
	SelectedRepos []string // repo names, only used with selected visibility
}

// repoEntryConfig defines a repository-level secret or variable to seed.
type repoEntryConfig struct {
	Repo  string
	Name  string
	Value string
}

func main() {
	// Parse command-line flags
	orgName := flag.String("org", "", "GitHub organization name (required)")
	token := flag.String("token", os.Getenv("GITHUB_TOKEN"), "GitHub token (or set GITHUB_TOKEN env var)")
	cleanupOnly := flag.Bool("cleanup", false, "Only cleanup previously seeded repositories and entries")
	flag.Parse()

	if *orgName == "" {
		log.Fatal("Organization name is required: -org <org-name>")
	}

	if *token == "" {
		log.Fatal("GitHub token is required: -token <token> or set GITHUB_TOKEN env var")
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: *token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	// Verify organization access
	_, _, err := client.Organizations.Get(ctx, *orgName)
	if err != nil {
		log.Fatalf("Failed to access organization %s: %v", *orgName, err)
	}

	log.Printf("Successfully connected to organization: %s", *orgName)

	// Cleanup seeded repos and entries if requested
	if *cleanupOnly {
		cleanupSeededConfig(ctx, client, *orgName)
		return
	}

	// Create the target repositories for selected visibility and
	// repo-scoped entries
	repoIDs := ensureTestRepos(ctx, client, *orgName)

	// Seed organization secrets covering every visibility
	orgSecrets := []orgEntryConfig{
		{
			Name:       entryPrefix + "ORG_SECRET_ALL",
			Value:      "seed-org-secret-all (not a real credential)",
			Visibility: "all",
		},
		{
			Name:       entryPrefix + "ORG_SECRET_PRIVATE",
			Value:      "seed-org-secret-private (not a real credential)",
			Visibility: "private",
		},
		{
			Name:          entryPrefix + "ORG_SECRET_SELECTED",
			Value:         "seed-org-secret-selected (not a real credential)",
			Visibility:    "selected",
			SelectedRepos: []string{repoPrefix + "api", repoPrefix + "worker"},
		},
	}

	log.Printf("Seeding %d organization secrets...", len(orgSecrets))
	orgKey, _, err := client.Actions.GetOrgPublicKey(ctx, *orgName)
	if err != nil {
		log.Fatalf("Failed to fetch organization public key: %v", err)
	}

	for i, cfg := range orgSecrets {
		log.Printf("[%d/%d] Creating org secret: %s (%s)", i+1, len(orgSecrets), cfg.Name, cfg.Visibility)
		if err := createOrgSecret(ctx, client, *orgName, orgKey, cfg, repoIDs); err != nil {
			log.Printf("  ❌ Failed to create %s: %v", cfg.Name, err)
		} else {
			log.Printf("  ✅ Created %s", cfg.Name)
		}
		time.Sleep(500 * time.Millisecond)
	}

	// Seed organization variables covering every visibility
	orgVariables := []orgEntryConfig{
		{
			Name:       entryPrefix + "ORG_VAR_ALL",
			Value:      "https://api.example.com",
			Visibility: "all",
		},
		{
			Name:       entryPrefix + "ORG_VAR_PRIVATE",
			Value:      "internal-tier",
			Visibility: "private",
		},
		{
			Name:          entryPrefix + "ORG_VAR_SELECTED",
			Value:         "eu-west-1",
			Visibility:    "selected",
			SelectedRepos: []string{repoPrefix + "api", repoPrefix + "web"},
		},
	}

	log.Printf("Seeding %d organization variables...", len(orgVariables))
	for i, cfg := range orgVariables {
		log.Printf("[%d/%d] Creating org variable: %s (%s)", i+1, len(orgVariables), cfg.Name, cfg.Visibility)
		if err := createOrgVariable(ctx, client, *orgName, cfg, repoIDs); err != nil {
			log.Printf("  ❌ Failed to create %s: %v", cfg.Name, err)
		} else {
			log.Printf("  ✅ Created %s", cfg.Name)
		}
		time.Sleep(500 * time.Millisecond)
	}

	// Seed repository-scoped secrets and variables
	repoSecrets := []repoEntryConfig{
		{Repo: repoPrefix + "api", Name: entryPrefix + "REPO_SECRET", Value: "seed-repo-secret (not a real credential)"},
		{Repo: repoPrefix + "worker", Name: entryPrefix + "WORKER_SECRET", Value: "seed-worker-secret (not a real credential)"},
	}

	log.Printf("Seeding %d repository secrets...", len(repoSecrets))
	for i, cfg := range repoSecrets {
		log.Printf("[%d/%d] Creating repo secret: %s/%s", i+1, len(repoSecrets), cfg.Repo, cfg.Name)
		if err := createRepoSecret(ctx, client, *orgName, cfg); err != nil {
			log.Printf("  ❌ Failed to create %s: %v", cfg.Name, err)
		} else {
			log.Printf("  ✅ Created %s", cfg.Name)
		}
		time.Sleep(500 * time.Millisecond)
	}

	repoVariables := []repoEntryConfig{
		{Repo: repoPrefix + "api", Name: entryPrefix + "REPO_VAR", Value: "debug"},
		{Repo: repoPrefix + "web", Name: entryPrefix + "WEB_VAR", Value: "cdn.example.com"},
	}

	log.Printf("Seeding %d repository variables...", len(repoVariables))
	for i, cfg := range repoVariables {
		log.Printf("[%d/%d] Creating repo variable: %s/%s", i+1, len(repoVariables), cfg.Repo, cfg.Name)
		variable := &github.ActionsVariable{Name: cfg.Name, Value: cfg.Value}
		if _, err := client.Actions.CreateRepoVariable(ctx, *orgName, cfg.Repo, variable); err != nil {
			log.Printf("  ❌ Failed to create %s: %v", cfg.Name, err)
		} else {
			log.Printf("  ✅ Created %s", cfg.Name)
		}
		time.Sleep(500 * time.Millisecond)
	}

	// Add a workflow that references seeded entries so the audit command
	// has something to find, including one name that is deliberately not
	// seeded anywhere.
	log.Printf("Adding workflow with secret and variable references...")
	if err := addAuditWorkflow(ctx, client, *orgName, repoPrefix+"api"); err != nil {
		log.Printf("  ⚠️  Failed to add workflow: %v", err)
	} else {
		log.Printf("  ✅ Workflow added to %s", repoPrefix+"api")
	}

	log.Println("\n🎉 Seeding complete!")
	log.Printf("Export the seeded configuration: actions-migrator export (source org: %s)", *orgName)
	log.Printf("Audit workflow references:       actions-migrator audit --against-inventory")
	log.Printf("\nTo cleanup seeded data later, run: go run scripts/seed/main.go -org %s -cleanup", *orgName)
}

// ensureTestRepos creates the test repositories if missing and returns
// their IDs keyed by name. Selected-visibility entries need the IDs.
func ensureTestRepos(ctx context.Context, client *github.Client, org string) map[string]int64 {
	log.Printf("Ensuring %d test repositories exist...", len(testRepos))

	repoIDs := make(map[string]int64, len(testRepos))

	for i, name := range testRepos {
		existing, resp, err := client.Repositories.Get(ctx, org, name)
		if err == nil {
			log.Printf("[%d/%d] Repository %s already exists, reusing", i+1, len(testRepos), name)
			repoIDs[name] = existing.GetID()
			continue
		}
		if resp != nil && resp.StatusCode != 404 {
			log.Printf("[%d/%d] ❌ Failed to check repository %s: %v", i+1, len(testRepos), name, err)
			continue
		}

		repo := &github.Repository{
			Name:        github.Ptr(name),
			Description: github.Ptr("Seeded repository for actions-migrator testing"),
			Private:     github.Ptr(true),
			AutoInit:    github.Ptr(true),
		}

		created, _, err := client.Repositories.Create(ctx, org, repo)
		if err != nil {
			log.Printf("[%d/%d] ❌ Failed to create repository %s: %v", i+1, len(testRepos), name, err)
			continue
		}

		log.Printf("[%d/%d] ✅ Created repository: %s", i+1, len(testRepos), created.GetHTMLURL())
		repoIDs[name] = created.GetID()

		// Give the repository a moment to initialize before writing to it
		time.Sleep(2 * time.Second)
	}

	return repoIDs
}

// createOrgSecret seals the value with the organization public key and
// writes the secret with the configured visibility.
func createOrgSecret(ctx context.Context, client *github.Client, org string, key *github.PublicKey, cfg orgEntryConfig, repoIDs map[string]int64) error {
	sealed, err := sealValue(key, cfg.Value)
	if err != nil {
		return err
	}

	secret := &github.EncryptedSecret{
		Name:           cfg.Name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
		Visibility:     cfg.Visibility,
	}

	if cfg.Visibility == "selected" {
		for _, repoName := range cfg.SelectedRepos {
			id, ok := repoIDs[repoName]
			if !ok {
				return fmt.Errorf("selected repository %s was not created", repoName)
			}
			secret.SelectedRepositoryIDs = append(secret.SelectedRepositoryIDs, id)
		}
	}

	_, err = client.Actions.CreateOrUpdateOrgSecret(ctx, org, secret)
	return err
}

// createOrgVariable writes an organization variable with the configured
// visibility. Variables carry their value in plaintext.
func createOrgVariable(ctx context.Context, client *github.Client, org string, cfg orgEntryConfig, repoIDs map[string]int64) error {
	variable := &github.ActionsVariable{
		Name:       cfg.Name,
		Value:      cfg.Value,
		Visibility: github.Ptr(cfg.Visibility),
	}

	if cfg.Visibility == "selected" {
		ids := github.SelectedRepoIDs{}
		for _, repoName := range cfg.SelectedRepos {
			id, ok := repoIDs[repoName]
			if !ok {
				return fmt.Errorf("selected repository %s was not created", repoName)
			}
			ids = append(ids, id)
		}
		variable.SelectedRepositoryIDs = &ids
	}

	_, err := client.Actions.CreateOrgVariable(ctx, org, variable)
	return err
}

// createRepoSecret seals the value with the repository public key and
// writes the secret into the repository scope.
func createRepoSecret(ctx context.Context, client *github.Client, org string, cfg repoEntryConfig) error {
	key, _, err := client.Actions.GetRepoPublicKey(ctx, org, cfg.Repo)
	if err != nil {
		return fmt.Errorf("failed to fetch public key for %s: %w", cfg.Repo, err)
	}

	sealed, err := sealValue(key, cfg.Value)
	if err != nil {
		return err
	}

	secret := &github.EncryptedSecret{
		Name:           cfg.Name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	}

	_, err = client.Actions.CreateOrUpdateRepoSecret(ctx, org, cfg.Repo, secret)
	return err
}

// sealValue encrypts plaintext with an anonymous sealed box over the
// scope's libsodium public key, the only form the Actions API accepts.
func sealValue(key *github.PublicKey, plaintext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(key.GetKey())
	if err != nil {
		return "", fmt.Errorf("failed to decode public key %s: %w", key.GetKeyID(), err)
	}
	if len(decoded) != 32 {
		return "", fmt.Errorf("public key %s is %d bytes, want 32", key.GetKeyID(), len(decoded))
	}

	var recipient [32]byte
	copy(recipient[:], decoded)

	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal value: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// addAuditWorkflow commits a workflow that references seeded secrets and
// variables. MIGRATOR_TEST_MISSING_SECRET is referenced but never seeded,
// so the audit cross-check has a gap to report.
func addAuditWorkflow(ctx context.Context, client *github.Client, org, repo string) error {
	workflowContent := `name: Seeded CI

on:
  push:
    branches: [ main ]

jobs:
  build:
    runs-on: ubuntu-latest
    env:
      API_URL: ${{ vars.MIGRATOR_TEST_ORG_VAR_ALL }}
      REGION: ${{ vars.MIGRATOR_TEST_ORG_VAR_SELECTED }}
    steps:
      - uses: actions/checkout@v4
      - name: Deploy
        run: ./deploy.sh
        env:
          DEPLOY_KEY: ${{ secrets.MIGRATOR_TEST_REPO_SECRET }}
          MODE: ${{ vars.MIGRATOR_TEST_REPO_VAR }}
      - name: Notify
        if: ${{ always() }}
        run: curl -s "$WEBHOOK" || true
        env:
          WEBHOOK: ${{ secrets.MIGRATOR_TEST_ORG_SECRET_ALL }}
          MISSING: ${{ secrets.MIGRATOR_TEST_MISSING_SECRET }}
`

	return createOrUpdateFile(ctx, client, org, repo, ".github/workflows/seeded-ci.yml", workflowContent, "Add seeded CI workflow")
}

// cleanupSeededConfig deletes everything a previous run created: org
// entries with the entry prefix and repositories with the repo prefix.
// Repo-scoped entries go away with their repositories.
func cleanupSeededConfig(ctx context.Context, client *github.Client, org string) {
	log.Printf("Cleaning up seeded configuration in organization: %s", org)

	// Organization secrets
	secrets, _, err := client.Actions.ListOrgSecrets(ctx, org, &github.ListOptions{PerPage: 100})
	if err != nil {
		log.Printf("⚠️  Failed to list organization secrets: %v", err)
	} else {
		for _, secret := range secrets.Secrets {
			if !strings.HasPrefix(secret.Name, entryPrefix) {
				continue
			}
			if _, err := client.Actions.DeleteOrgSecret(ctx, org, secret.Name); err != nil {
				log.Printf("  ❌ Failed to delete org secret %s: %v", secret.Name, err)
			} else {
				log.Printf("  ✅ Deleted org secret %s", secret.Name)
			}
			time.Sleep(500 * time.Millisecond)
		}
	}

	// Organization variables
	variables, _, err := client.Actions.ListOrgVariables(ctx, org, &github.ListOptions{PerPage: 100})
	if err != nil {
		log.Printf("⚠️  Failed to list organization variables: %v", err)
	} else {
		for _, variable := range variables.Variables {
			if !strings.HasPrefix(variable.Name, entryPrefix) {
				continue
			}
			if _, err := client.Actions.DeleteOrgVariable(ctx, org, variable.Name); err != nil {
				log.Printf("  ❌ Failed to delete org variable %s: %v", variable.Name, err)
			} else {
				log.Printf("  ✅ Deleted org variable %s", variable.Name)
			}
			time.Sleep(500 * time.Millisecond)
		}
	}

	// Seeded repositories, together with their repo-scoped entries
	opt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allRepos []*github.Repository
	for {
		repos, resp, err := client.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			log.Fatalf("Failed to list repositories: %v", err)
		}

		allRepos = append(allRepos, repos...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	seeded := []*github.Repository{}
	for _, repo := range allRepos {
		if strings.HasPrefix(repo.GetName(), repoPrefix) {
			seeded = append(seeded, repo)
		}
	}

	if len(seeded) == 0 {
		log.Println("No seeded repositories found to cleanup")
	}

	for i, repo := range seeded {
		log.Printf("[%d/%d] Deleting repository: %s", i+1, len(seeded), repo.GetName())
		if _, err := client.Repositories.Delete(ctx, org, repo.GetName()); err != nil {
			log.Printf("  ❌ Failed to delete %s: %v", repo.GetName(), err)
		} else {
			log.Printf("  ✅ Deleted %s", repo.GetName())
		}
		time.Sleep(1 * time.Second)
	}

	log.Println("🎉 Cleanup complete!")
}

// createOrUpdateFile writes a file on main, updating it in place when it
// already exists.
func createOrUpdateFile(ctx context.Context, client *github.Client, org, repo, path, content, message string) error {
	fileContent, _, resp, err := client.Repositories.GetContents(ctx, org, repo, path, &github.RepositoryContentGetOptions{
		Ref: "main",
	})

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr("main"),
	}

	if err == nil && resp.StatusCode == 200 {
		opts.SHA = fileContent.SHA
		_, _, err = client.Repositories.UpdateFile(ctx, org, repo, path, opts)
	} else {
		_, _, err = client.Repositories.CreateFile(ctx, org, repo, path, opts)
	}

	return err
}
