package github

import (
	"context"
	"fmt"
	"log/slog"
)

// Pair holds the two GitHub clients a migration run works with: one
// authenticated against the source organization and one against the target.
// The two sides may live on different instances (GitHub.com, GHES) and
// carry independent rate limit budgets.
type Pair struct {
	Source *Client
	Target *Client

	SourceOrg string
	TargetOrg string

	logger *slog.Logger
}

// PairConfig configures a client pair
type PairConfig struct {
	Source ClientConfig
	Target ClientConfig

	SourceOrg string
	TargetOrg string

	Logger *slog.Logger
}

// NewPair creates the source and target clients for a migration run
func NewPair(cfg PairConfig) (*Pair, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.SourceOrg == "" || cfg.TargetOrg == "" {
		return nil, fmt.Errorf("source and target organizations are required")
	}
	if cfg.Source.Token == "" && cfg.Source.AppID == 0 {
		return nil, fmt.Errorf("source credentials are required")
	}
	if cfg.Target.Token == "" && cfg.Target.AppID == 0 {
		return nil, fmt.Errorf("target credentials are required")
	}

	cfg.Logger.Info("Initializing source GitHub client", "org", cfg.SourceOrg)
	source, err := NewClient(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}

	cfg.Logger.Info("Initializing target GitHub client", "org", cfg.TargetOrg)
	target, err := NewClient(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to create target client: %w", err)
	}

	return &Pair{
		Source:    source,
		Target:    target,
		SourceOrg: cfg.SourceOrg,
		TargetOrg: cfg.TargetOrg,
		logger:    cfg.Logger,
	}, nil
}

// ValidateAccess verifies both clients authenticate and can reach their
// organizations before any migration work starts
func (p *Pair) ValidateAccess(ctx context.Context) error {
	if err := p.Source.TestAuthentication(ctx); err != nil {
		return fmt.Errorf("source authentication failed: %w", err)
	}
	if _, err := p.Source.GetOrganization(ctx, p.SourceOrg); err != nil {
		return fmt.Errorf("source organization %q is not accessible: %w", p.SourceOrg, err)
	}

	if err := p.Target.TestAuthentication(ctx); err != nil {
		return fmt.Errorf("target authentication failed: %w", err)
	}
	if _, err := p.Target.GetOrganization(ctx, p.TargetOrg); err != nil {
		return fmt.Errorf("target organization %q is not accessible: %w", p.TargetOrg, err)
	}

	p.logger.Info("Access validated",
		"source_org", p.SourceOrg,
		"target_org", p.TargetOrg)

	return nil
}
