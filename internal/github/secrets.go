package github

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// ListOrgSecrets lists all organization-level Actions secrets with pagination
func (c *Client) ListOrgSecrets(ctx context.Context, org string) ([]*github.Secret, error) {
	var allSecrets []*github.Secret
	opt := &github.ListOptions{PerPage: 100}

	for {
		var secrets *github.Secrets

		resp, err := c.DoWithRetry(ctx, "ListOrgSecrets", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			secrets, r, err = c.rest.Actions.ListOrgSecrets(ctx, org, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allSecrets = append(allSecrets, secrets.Secrets...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	c.logger.Debug("Organization secrets listed",
		"org", org,
		"count", len(allSecrets))

	return allSecrets, nil
}

// GetOrgSecret gets a single organization secret by name
func (c *Client) GetOrgSecret(ctx context.Context, org, name string) (*github.Secret, error) {
	var secret *github.Secret

	_, err := c.DoWithRetry(ctx, "GetOrgSecret", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		secret, resp, err = c.rest.Actions.GetOrgSecret(ctx, org, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return secret, nil
}

// GetOrgPublicKey fetches the public key used to seal organization secrets
func (c *Client) GetOrgPublicKey(ctx context.Context, org string) (*github.PublicKey, error) {
	var key *github.PublicKey

	_, err := c.DoWithRetry(ctx, "GetOrgPublicKey", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		key, resp, err = c.rest.Actions.GetOrgPublicKey(ctx, org)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}

// CreateOrUpdateOrgSecret writes an organization secret. The secret value
// must already be sealed against the organization public key.
func (c *Client) CreateOrUpdateOrgSecret(ctx context.Context, org string, secret *github.EncryptedSecret) error {
	_, err := c.DoWithRetry(ctx, "CreateOrUpdateOrgSecret", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.CreateOrUpdateOrgSecret(ctx, org, secret)
	})
	return err
}

// ListSelectedReposForOrgSecret lists the repositories an organization
// secret with selected visibility is shared with
func (c *Client) ListSelectedReposForOrgSecret(ctx context.Context, org, name string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	opt := &github.ListOptions{PerPage: 100}

	for {
		var repos *github.SelectedReposList

		resp, err := c.DoWithRetry(ctx, "ListSelectedReposForOrgSecret", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			repos, r, err = c.rest.Actions.ListSelectedReposForOrgSecret(ctx, org, name, opt)
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

// ListRepoSecrets lists all repository-level Actions secrets with pagination
func (c *Client) ListRepoSecrets(ctx context.Context, owner, repo string) ([]*github.Secret, error) {
	var allSecrets []*github.Secret
	opt := &github.ListOptions{PerPage: 100}

	for {
		var secrets *github.Secrets

		resp, err := c.DoWithRetry(ctx, "ListRepoSecrets", func(ctx context.Context) (*github.Response, error) {
			var r *github.Response
			var err error
			secrets, r, err = c.rest.Actions.ListRepoSecrets(ctx, owner, repo, opt)
			return r, err
		})
		if err != nil {
			return nil, err
		}

		allSecrets = append(allSecrets, secrets.Secrets...)

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allSecrets, nil
}

// GetRepoSecret gets a single repository secret by name
func (c *Client) GetRepoSecret(ctx context.Context, owner, repo, name string) (*github.Secret, error) {
	var secret *github.Secret

	_, err := c.DoWithRetry(ctx, "GetRepoSecret", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		secret, resp, err = c.rest.Actions.GetRepoSecret(ctx, owner, repo, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return secret, nil
}

// GetRepoPublicKey fetches the public key used to seal repository secrets
func (c *Client) GetRepoPublicKey(ctx context.Context, owner, repo string) (*github.PublicKey, error) {
	var key *github.PublicKey

	_, err := c.DoWithRetry(ctx, "GetRepoPublicKey", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		key, resp, err = c.rest.Actions.GetRepoPublicKey(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}

// CreateOrUpdateRepoSecret writes a repository secret. The secret value
// must already be sealed against the repository public key.
func (c *Client) CreateOrUpdateRepoSecret(ctx context.Context, owner, repo string, secret *github.EncryptedSecret) error {
	_, err := c.DoWithRetry(ctx, "CreateOrUpdateRepoSecret", func(ctx context.Context) (*github.Response, error) {
		return c.rest.Actions.CreateOrUpdateRepoSecret(ctx, owner, repo, secret)
	})
	return err
}
