package database

import (
	"fmt"

	"coursesync/internal/access"
	"coursesync/internal/config"
	"coursesync/internal/database/migrations"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. A "sqlite" store must already be migrated (see Migrate);
// a "memory" store is migrated on the spot since nothing can have done it
// earlier.
func NewStoreFromConfig(cfg config.DatabaseConfig, courseKeyIncludesSubCategory bool) (access.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		store, err := NewSQLiteStore(cfg.Path, courseKeyIncludesSubCategory)
		if err != nil {
			return nil, err
		}
		if err := store.CheckMigrations(); err != nil {
			store.Close()
			return nil, fmt.Errorf("database schema out of date (run \"coursesync db init\"): %w", err)
		}
		return store, nil
	case "memory":
		store, err := NewSQLiteStore(":memory:", courseKeyIncludesSubCategory)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(store.db); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating in-memory database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// Migrate brings the database at the configured location to the latest
// schema version, creating it if needed. Idempotent.
func Migrate(cfg config.DatabaseConfig) error {
	if cfg.Type != "sqlite" {
		return fmt.Errorf("db init only applies to sqlite databases (type is %q)", cfg.Type)
	}
	if cfg.Path == "" {
		return fmt.Errorf("path required for sqlite database")
	}

	db, err := OpenConnection(cfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrations.MigrateUp(db)
}
