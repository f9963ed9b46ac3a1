package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia/config"
	"github.com/sagarc03/privatemedia/database"
)

// commandConfig returns the configuration loaded by the root command.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.FromContext(cmd.Context())
}

// openGrantsDatabase connects to the grants database, migrating it when
// auto_migrate is set, and checks the schema.
func openGrantsDatabase(ctx context.Context, cfg *config.Config) (database.Database, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open grants database: %w", err)
	}

	slog.Debug("connected to grants database", "type", cfg.Database.Type, "table", cfg.Database.Tables.Grants)
	return db, nil
}
