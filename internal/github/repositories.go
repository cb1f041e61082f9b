package github

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// ListRepositories lists all repositories for an organization with pagination
func (c *Client) ListRepositories(ctx context.Context, org string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	opt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	c.logger.Info("Listing repositories", "org", org)

	for {
		var repos []*github.Repository

		resp, err := c.DoWithRetry(ctx, "ListRepositories", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			repos, r, err = c.rest.Repositories.ListByOrg(ctx, org, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allRepos = append(allRepos, repos...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	c.logger.Info("Repository listing complete",
		"org", org,
		"total_repos", len(allRepos))

	return allRepos, nil
}

// GetOrganization gets an organization by login
func (c *Client) GetOrganization(ctx context.Context, org string) (*github.Organization, error) {
	var organization *github.Organization

	_, err := c.DoWithRetry(ctx, "GetOrganization", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		organization, resp, err = c.rest.Organizations.Get(ctx, org)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return organization, nil
}

// GetRepository gets a single repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	var repository *github.Repository

	_, err := c.DoWithRetry(ctx, "GetRepository", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		repository, resp, err = c.rest.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return repository, nil
}
