package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/database/postgres"
	"github.com/sagarc03/privatemedia/database/sqlite"
)

// Config holds the configuration for connecting to a grants backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// AutoMigrate creates missing tables when the database is opened
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// Tables holds the configurable table names
	Tables privatemedia.Tables `mapstructure:"tables"`
}

// Database is a connected grants backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() privatemedia.GrantRepo
	Close() error
}

// Connect creates a Database for the configured backend. It does not touch
// the schema; see Open.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	var (
		db  Database
		err error
	)

	switch cfg.Type {
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	if err != nil {
		return nil, err
	}

	return db, nil
}

// Open connects, pings, migrates when cfg.AutoMigrate is set and validates
// the schema. The caller closes the returned Database.
func Open(ctx context.Context, cfg Config) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: ping: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open database: migrate: %w", err)
		}
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	return db, nil
}
