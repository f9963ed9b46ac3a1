package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/privatemedia"
)

// Migrate creates every table that does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables privatemedia.Tables) error {
	if err := createGrantsTable(ctx, pool, tables.Grants); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Grants, err)
	}
	return nil
}

// DropTables removes every table created by Migrate.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables privatemedia.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tables.Grants}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Grants, err)
	}
	return nil
}

func createGrantsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexSubject := pgx.Identifier{fmt.Sprintf("idx_%s_subject", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			subject TEXT NOT NULL,
			path_prefix TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (subject, path_prefix)
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (subject);
	`,
		quotedTable,
		indexSubject, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create grants table: %w", err)
	}
	return nil
}
