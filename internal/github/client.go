package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/jferrl/go-githubauth"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub REST client with rate limiting and retry logic
type Client struct {
	rest        *github.Client
	baseURL     string
	token       string
	rateLimiter *RateLimiter
	retryer     *Retryer
	logger      *slog.Logger
}

// ClientConfig configures the GitHub client
type ClientConfig struct {
	BaseURL string
	Token   string

	// GitHub App credentials, used instead of Token when all three are set
	AppID             int64
	AppPrivateKey     string
	AppInstallationID int64

	Timeout            time.Duration
	RateLimitThreshold int
	RetryConfig        RetryConfig
	Logger             *slog.Logger
}

const (
	// GitHubAPIURL is the standard GitHub.com API URL
	GitHubAPIURL = "https://api.github.com"
)

// NewClient creates a new GitHub client with rate limiting and retry logic
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Pick the token source: GitHub App installation credentials win over
	// a personal access token
	ctx := context.Background()
	var ts oauth2.TokenSource
	if cfg.AppID > 0 && cfg.AppInstallationID > 0 && cfg.AppPrivateKey != "" {
		appTS, err := githubauth.NewApplicationTokenSource(cfg.AppID, []byte(cfg.AppPrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App token source: %w", err)
		}
		ts = githubauth.NewInstallationTokenSource(cfg.AppInstallationID, appTS)
		cfg.Logger.Debug("Using GitHub App installation authentication",
			"app_id", cfg.AppID,
			"installation_id", cfg.AppInstallationID)
	} else {
		ts = oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = cfg.Timeout

	// Create REST client
	var restClient *github.Client
	if cfg.BaseURL == "" || cfg.BaseURL == GitHubAPIURL {
		restClient = github.NewClient(httpClient)
	} else {
		var err error
		restClient, err = github.NewClient(httpClient).WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, WrapError(err, "NewClient", cfg.BaseURL)
		}
	}

	// Initialize rate limiter and retry logic
	rateLimiter := NewRateLimiter(cfg.Logger)
	if cfg.RateLimitThreshold > 0 {
		rateLimiter.SetLowWaterMark(cfg.RateLimitThreshold)
	}
	retryer := NewRetryer(cfg.RetryConfig, rateLimiter, cfg.Logger)

	client := &Client{
		rest:        restClient,
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		rateLimiter: rateLimiter,
		retryer:     retryer,
		logger:      cfg.Logger,
	}

	// Initialize rate limits
	if err := client.updateRateLimits(context.Background()); err != nil {
		cfg.Logger.Warn("Failed to initialize rate limits", "error", err)
	}

	return client, nil
}

// REST returns the underlying GitHub REST client
func (c *Client) REST() *github.Client {
	return c.rest
}

// BaseURL returns the base URL of the GitHub instance
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the authentication token
func (c *Client) Token() string {
	return c.token
}

// GetRateLimiter returns the rate limiter
func (c *Client) GetRateLimiter() *RateLimiter {
	return c.rateLimiter
}

// GetRetryer returns the retryer
func (c *Client) GetRetryer() *Retryer {
	return c.retryer
}

// DoWithRetry executes a REST API operation with retry logic
func (c *Client) DoWithRetry(ctx context.Context, operation string, fn func(ctx context.Context) (*github.Response, error)) (*github.Response, error) {
	var resp *github.Response
	var lastErr error

	err := c.retryer.Do(ctx, operation, func(ctx context.Context) error {
		start := time.Now()
		c.logger.Debug("GitHub API call started",
			"operation", operation,
			"base_url", c.baseURL)

		var err error
		resp, err = fn(ctx)
		duration := time.Since(start)

		if err != nil {
			lastErr = WrapError(err, operation, c.baseURL)
			c.logger.Error("GitHub API call failed",
				"operation", operation,
				"base_url", c.baseURL,
				"duration_ms", duration.Milliseconds(),
				"error", lastErr)
			return lastErr
		}

		// Update rate limits from response
		if resp != nil && resp.Rate.Limit > 0 {
			c.rateLimiter.UpdateLimits(
				resp.Rate.Remaining,
				resp.Rate.Limit,
				resp.Rate.Reset.Time,
			)

			c.logger.Debug("GitHub API call completed",
				"operation", operation,
				"base_url", c.baseURL,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
				"rate_limit_remaining", resp.Rate.Remaining,
				"rate_limit_limit", resp.Rate.Limit,
				"rate_limit_reset", resp.Rate.Reset.Time)
		} else {
			c.logger.Debug("GitHub API call completed",
				"operation", operation,
				"base_url", c.baseURL,
				"duration_ms", duration.Milliseconds())
		}

		return nil
	})

	if err != nil {
		return resp, lastErr
	}
	return resp, nil
}

// updateRateLimits fetches and updates rate limit information
func (c *Client) updateRateLimits(ctx context.Context) error {
	limits, resp, err := c.rest.RateLimit.Get(ctx)
	if err != nil {
		return WrapError(err, "GetRateLimits", c.baseURL)
	}

	if limits != nil && limits.Core != nil {
		c.rateLimiter.UpdateLimits(
			limits.Core.Remaining,
			limits.Core.Limit,
			limits.Core.Reset.Time,
		)
	}

	if resp != nil && limits != nil && limits.Core != nil {
		c.logger.Debug("Rate limits fetched",
			"remaining", limits.Core.Remaining,
			"limit", limits.Core.Limit,
			"reset", limits.Core.Reset.Time)
	}

	return nil
}

// GetRateLimitStatus returns the current rate limit status
func (c *Client) GetRateLimitStatus(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := c.rest.RateLimit.Get(ctx)
	if err != nil {
		return nil, WrapError(err, "GetRateLimits", c.baseURL)
	}
	return limits, nil
}

// CheckRateLimit logs rate limit information
func (c *Client) CheckRateLimit(ctx context.Context) error {
	limits, err := c.GetRateLimitStatus(ctx)
	if err != nil {
		return err
	}

	if limits.Core != nil {
		c.logger.Info("Rate limit status",
			"remaining", limits.Core.Remaining,
			"limit", limits.Core.Limit,
			"reset", limits.Core.Reset.Time)

		c.rateLimiter.UpdateLimits(
			limits.Core.Remaining,
			limits.Core.Limit,
			limits.Core.Reset.Time,
		)
	}

	return nil
}

// TestAuthentication verifies that the client is authenticated properly
func (c *Client) TestAuthentication(ctx context.Context) error {
	c.logger.Info("Testing GitHub authentication")

	var user *github.User
	err := c.retryer.Do(ctx, "TestAuthentication", func(ctx context.Context) error {
		var resp *github.Response
		var err error
		user, resp, err = c.rest.Users.Get(ctx, "")
		if err != nil {
			return WrapError(err, "GetAuthenticatedUser", c.baseURL)
		}

		// Update rate limits
		if resp != nil && resp.Rate.Limit > 0 {
			c.rateLimiter.UpdateLimits(
				resp.Rate.Remaining,
				resp.Rate.Limit,
				resp.Rate.Reset.Time,
			)
		}
		return nil
	})

	if err != nil {
		c.logger.Error("Authentication test failed", "error", err)
		return err
	}

	c.logger.Info("Authentication successful",
		"user", user.GetLogin(),
		"type", user.GetType())

	return nil
}
