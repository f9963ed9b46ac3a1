package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/privatemedia"
)

var grantsColumns = []privatemedia.Column{
	{Name: "id", Type: "text"},
	{Name: "subject", Type: "text"},
	{Name: "path_prefix", Type: "text"},
	{Name: "created_at", Type: "text"},
}

// ValidateSchema checks that the grants table exists with the expected
// columns. A mismatch is reported as a *privatemedia.SchemaError.
func ValidateSchema(ctx context.Context, db *sql.DB, tables privatemedia.Tables) error {
	if !privatemedia.IsValidTableName(tables.Grants) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Grants)
	}

	columns, err := tableColumns(ctx, db, tables.Grants)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Grants, err)
	}

	if err := privatemedia.CheckColumns(tables.Grants, grantsColumns, columns); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	return nil
}

// tableColumns reads PRAGMA table_info, which yields no rows for a missing
// table.
func tableColumns(ctx context.Context, db *sql.DB, tableName string) ([]privatemedia.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName)))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []privatemedia.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			defaultValue     sql.NullString
		)

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		columns = append(columns, privatemedia.Column{
			Name:     name,
			Type:     dataType,
			Nullable: notNull == 0,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	return columns, nil
}
