package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kuhlman-labs/actions-migrator/internal/config"
)

// Database provides persistence for migration run history.
type Database struct {
	db  *gorm.DB
	cfg config.DatabaseConfig
}

// NewDatabase opens a database connection for the configured dialect and
// applies the dialect's connection pool settings.
func NewDatabase(cfg config.DatabaseConfig) (*Database, error) {
	// Ensure data directory exists for SQLite
	if cfg.Type == DBTypeSQLite {
		dir := filepath.Dir(cfg.DSN)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dialer, err := NewDialectDialer(cfg)
	if err != nil {
		return nil, err
	}

	// GORM's default logger prints to stdout; run logging goes through slog
	db, err := gorm.Open(dialer.Dialect(), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := dialer.ConfigureConnection(db); err != nil {
		return nil, fmt.Errorf("failed to configure database connection: %w", err)
	}

	return &Database{
		db:  db,
		cfg: cfg,
	}, nil
}

// Migrate creates or updates the run history schema.
func (d *Database) Migrate() error {
	if err := d.db.AutoMigrate(&MigrationRun{}, &RunEntry{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM handle.
func (d *Database) DB() *gorm.DB {
	return d.db
}
