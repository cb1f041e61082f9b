package github

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// ListOrgVariables lists all organization-level Actions variables with pagination
func (c *Client) ListOrgVariables(ctx context.Context, org string) ([]*github.ActionsVariable, error) {
	var allVariables []*github.ActionsVariable
	opt := &github.ListOptions{PerPage: 100}

	for {
		var variables *github.ActionsVariables

		resp, err := c.DoWithRetry(ctx, "ListOrgVariables", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			variables, r, err = c.rest.Actions.ListOrgVariables(ctx, org, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allVariables = append(allVariables, variables.Variables...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	c.logger.Debug("Organization variables listed",
		"org", org,
		"count", len(allVariables))

	return allVariables, nil
}

// GetOrgVariable gets a single organization variable by name
func (c *Client) GetOrgVariable(ctx context.Context, org, name string) (*github.ActionsVariable, error) {
	var variable *github.ActionsVariable

	_, err := c.DoWithRetry(ctx, "GetOrgVariable", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		variable, resp, err = c.rest.Actions.GetOrgVariable(ctx, org, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return variable, nil
}

// CreateOrgVariable creates an organization variable
func (c *Client) CreateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error {
	_, err := c.DoWithRetry(ctx, "CreateOrgVariable", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.CreateOrgVariable(ctx, org, variable)
	})
	return err
}

// UpdateOrgVariable updates an existing organization variable
func (c *Client) UpdateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error {
	_, err := c.DoWithRetry(ctx, "UpdateOrgVariable", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.UpdateOrgVariable(ctx, org, variable)
	})
	return err
}

// ListSelectedReposForOrgVariable lists the repositories an organization
// variable with selected visibility is shared with
func (c *Client) ListSelectedReposForOrgVariable(ctx context.Context, org, name string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	opt := &github.ListOptions{PerPage: 100}

	for {
		var repos *github.SelectedReposList

		resp, err := c.DoWithRetry(ctx, "ListSelectedReposForOrgVariable", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			repos, r, err = c.rest.Actions.ListSelectedReposForOrgVariable(ctx, org, name, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allRepos = append(allRepos, repos.Repositories...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allRepos, nil
}

// ListRepoVariables lists all repository-level Actions variables with pagination
func (c *Client) ListRepoVariables(ctx context.Context, owner, repo string) ([]*github.ActionsVariable, error) {
	var allVariables []*github.ActionsVariable
	opt := &github.ListOptions{PerPage: 100}

	for {
		var variables *github.ActionsVariables

		resp, err := c.DoWithRetry(ctx, "ListRepoVariables", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			variables, r, err = c.rest.Actions.ListRepoVariables(ctx, owner, repo, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allVariables = append(allVariables, variables.Variables...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allVariables, nil
}

// GetRepoVariable gets a single repository variable by name
func (c *Client) GetRepoVariable(ctx context.Context, owner, repo, name string) (*github.ActionsVariable, error) {
	var variable *github.ActionsVariable

	_, err := c.DoWithRetry(ctx, "GetRepoVariable", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		variable, resp, err = c.rest.Actions.GetRepoVariable(ctx, owner, repo, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return variable, nil
}

// CreateRepoVariable creates a repository variable
func (c *Client) CreateRepoVariable(ctx context.Context, owner, repo string, variable *github.ActionsVariable) error {
	_, err := c.DoWithRetry(ctx, "CreateRepoVariable", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.CreateRepoVariable(ctx, owner, repo, variable)
	})
	return err
}

// UpdateRepoVariable updates an existing repository variable
func (c *Client) UpdateRepoVariable(ctx context.Context, owner, repo string, variable *github.ActionsVariable) error {
	_, err := c.DoWithRetry(ctx, "UpdateRepoVariable", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.UpdateRepoVariable(ctx, owner, repo, variable)
	})
	return err
}
