package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v75/github"
)

// workflowDirectory is where GitHub Actions looks for workflow definitions
const workflowDirectory = ".github/workflows"

// ListWorkflowFiles lists the workflow definition files in a repository.
// Returns ErrNotFound (wrapped) when the repository has no workflow directory.
func (c *Client) ListWorkflowFiles(ctx context.Context, owner, repo string) ([]*github.RepositoryContent, error) {
	var entries []*github.RepositoryContent

	_, err := c.DoWithRetry(ctx, "ListWorkflowFiles", func(ctx context.Context) (*github.Response, error) {
		_, dir, resp, err := c.rest.Repositories.GetContents(ctx, owner, repo, workflowDirectory, nil)
		if err != nil {
			return resp, err
		}
		entries = dir
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	var files []*github.RepositoryContent
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		name := entry.GetName()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			files = append(files, entry)
		}
	}

	return files, nil
}

// GetFileContent fetches and decodes the content of a single file
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	var file *github.RepositoryContent

	_, err := c.DoWithRetry(ctx, "GetFileContent", func(ctx context.Context) (*github.Response, error) {
		f, _, resp, err := c.rest.Repositories.GetContents(ctx, owner, repo, path, nil)
		if err != nil {
			return resp, err
		}
		file = f
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	if file == nil {
		return "", fmt.Errorf("path %s in %s/%s is not a file", path, owner, repo)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %s: %w", path, err)
	}

	return content, nil
}
