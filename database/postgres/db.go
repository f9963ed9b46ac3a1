package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/privatemedia"
)

var grantsColumns = []privatemedia.Column{
	{Name: "id", Type: "uuid"},
	{Name: "subject", Type: "text"},
	{Name: "path_prefix", Type: "text"},
	{Name: "created_at", Type: "timestamp with time zone"},
}

type columnRow struct {
	Name       string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable string `db:"is_nullable"`
}

// ValidateSchema checks that the grants table exists with the expected
// columns. A mismatch is reported as a *privatemedia.SchemaError.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables privatemedia.Tables) error {
	if !privatemedia.IsValidTableName(tables.Grants) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Grants)
	}

	columns, err := tableColumns(ctx, pool, tables.Grants)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Grants, err)
	}

	if err := privatemedia.CheckColumns(tables.Grants, grantsColumns, columns); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	return nil
}

// tableColumns lists the columns of a table in the public schema; a missing
// table has none.
func tableColumns(ctx context.Context, pool *pgxpool.Pool, tableName string) ([]privatemedia.Column, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[columnRow])
	if err != nil {
		return nil, fmt.Errorf("scan columns: %w", err)
	}

	columns := make([]privatemedia.Column, 0, len(found))
	for _, r := range found {
		columns = append(columns, privatemedia.Column{
			Name:     r.Name,
			Type:     r.DataType,
			Nullable: r.IsNullable == "YES",
		})
	}

	return columns, nil
}
