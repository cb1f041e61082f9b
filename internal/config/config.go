package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Source    GitHubConfig    `mapstructure:"source"`
	Target    GitHubConfig    `mapstructure:"target"`
	Migration MigrationConfig `mapstructure:"migration"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// GitHubConfig defines one side of a migration: credentials, the
// organization to work on and the API endpoint it lives behind
type GitHubConfig struct {
	Token        string `mapstructure:"token"`        // Authentication token (PAT)
	Organization string `mapstructure:"organization"` // Organization login
	BaseURL      string `mapstructure:"base_url"`     // API base URL

	// GitHub App authentication (optional, used instead of the PAT)
	AppID             int64  `mapstructure:"app_id"`              // GitHub App ID
	AppPrivateKey     string `mapstructure:"app_private_key"`     // Private key (inline PEM)
	AppInstallationID int64  `mapstructure:"app_installation_id"` // Installation ID
}

// MigrationConfig defines client pacing and retry behavior
type MigrationConfig struct {
	RateLimitThreshold    int `mapstructure:"rate_limit_threshold"`    // Remaining requests below which calls block until reset
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"` // Per-request HTTP timeout
	MaxRetries            int `mapstructure:"max_retries"`             // Attempts per API operation
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DatabaseConfig defines the optional run-history store
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"` // "sqlite", "postgres", or "sqlserver"
	DSN     string `mapstructure:"dsn"`

	// Connection pool tuning; zero values fall back to per-dialect defaults
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in ascending precedence
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the default locations; a named file must exist and parse.
func LoadFile(path string) (*Config, error) {
	// Pick up a .env file when present; real environment wins
	_ = gotenv.Load()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	// Environment variable support
	viper.SetEnvPrefix("AMIG")
	// Replace dots with underscores in config keys when looking for env vars
	// This allows migration.rate_limit_threshold -> AMIG_MIGRATION_RATE_LIMIT_THRESHOLD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindLegacyEnvVars()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional: environment-only runs are supported
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnvVars keeps the unprefixed variable names earlier releases
// documented working alongside the AMIG_ prefixed forms
func bindLegacyEnvVars() {
	_ = viper.BindEnv("source.token", "AMIG_SOURCE_TOKEN", "SOURCE_GITHUB_TOKEN")
	_ = viper.BindEnv("target.token", "AMIG_TARGET_TOKEN", "TARGET_GITHUB_TOKEN")
	_ = viper.BindEnv("source.organization", "AMIG_SOURCE_ORGANIZATION", "SOURCE_ORGANIZATION")
	_ = viper.BindEnv("target.organization", "AMIG_TARGET_ORGANIZATION", "TARGET_ORGANIZATION")
}

func setDefaults() {
	viper.SetDefault("source.base_url", "https://api.github.com")
	viper.SetDefault("target.base_url", "https://api.github.com")
	viper.SetDefault("migration.rate_limit_threshold", 10)
	viper.SetDefault("migration.request_timeout_seconds", 30)
	viper.SetDefault("migration.max_retries", 5)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "./data/actions-migrator.db")
}

// hasCredentials reports whether a side can authenticate at all
func (g *GitHubConfig) hasCredentials() bool {
	if g.Token != "" {
		return true
	}
	return g.AppID > 0 && g.AppPrivateKey != "" && g.AppInstallationID > 0
}

// ValidateSource checks the fields every source-reading command needs
func (c *Config) ValidateSource() error {
	if !c.Source.hasCredentials() {
		return fmt.Errorf("source token is required (set source.token or SOURCE_GITHUB_TOKEN)")
	}
	if c.Source.Organization == "" {
		return fmt.Errorf("source organization is required (set source.organization or SOURCE_ORGANIZATION)")
	}
	return nil
}

// ValidateTarget checks the fields every target-writing command needs
func (c *Config) ValidateTarget() error {
	if !c.Target.hasCredentials() {
		return fmt.Errorf("target token is required (set target.token or TARGET_GITHUB_TOKEN)")
	}
	if c.Target.Organization == "" {
		return fmt.Errorf("target organization is required (set target.organization or TARGET_ORGANIZATION)")
	}
	return nil
}

// validate rejects out-of-range pacing values. Zero means unset; the
// client substitutes its defaults, matching the database pool fields.
func (m *MigrationConfig) validate() error {
	if m.RateLimitThreshold < 0 {
		return fmt.Errorf("migration.rate_limit_threshold must not be negative (got %d)", m.RateLimitThreshold)
	}
	if m.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("migration.request_timeout_seconds must not be negative (got %d)", m.RequestTimeoutSeconds)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("migration.max_retries must not be negative (got %d)", m.MaxRetries)
	}
	return nil
}

// Validate checks that both sides of a migration are configured
func (c *Config) Validate() error {
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if err := c.ValidateTarget(); err != nil {
		return err
	}
	if err := c.Migration.validate(); err != nil {
		return err
	}

	// Migrating an org onto itself is legal (everything skips as existing)
	// but usually a sign of a swapped or copy-pasted setting
	if strings.EqualFold(c.Source.Organization, c.Target.Organization) &&
		strings.EqualFold(c.Source.BaseURL, c.Target.BaseURL) {
		slog.Warn("Source and target are the same organization",
			"organization", c.Source.Organization)
	}

	return nil
}
