package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or verify the grants table",
	Long: `Create the grants table and its index if they do not exist, then
check that the schema matches what privatemedia expects. This is useful
when database.auto_migrate is disabled, for example when the server runs
with a role that cannot create tables.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	slog.Info("migrating grants table", "type", cfg.Database.Type, "table", cfg.Database.Tables.Grants)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := db.Validate(ctx); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	grants, err := db.GetRepo().List(ctx, "")
	if err != nil {
		return fmt.Errorf("count grants: %w", err)
	}

	slog.Info("migration complete", "grants", len(grants))
	return nil
}
