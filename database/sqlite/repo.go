// Package sqlite implements privatemedia.GrantRepo using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/privatemedia"
)

type repo struct {
	db        *sql.DB
	tableName string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (privatemedia.Grant, error) {
	var g privatemedia.Grant
	var idStr, createdAt string

	if err := row.Scan(&idStr, &g.Subject, &g.PathPrefix, &createdAt); err != nil {
		return privatemedia.Grant{}, err
	}

	var err error
	g.ID, err = uuid.Parse(idStr)
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("parse uuid: %w", err)
	}

	g.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("parse created_at: %w", err)
	}

	return g, nil
}

func (r *repo) Add(ctx context.Context, subject, pathPrefix string) (privatemedia.Grant, error) {
	subject, prefix, err := privatemedia.NormalizeGrant(subject, pathPrefix)
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("add: %w", err)
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, subject, path_prefix, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (subject, path_prefix) DO UPDATE SET subject = excluded.subject
		RETURNING id, subject, path_prefix, created_at`, quoteIdentifier(r.tableName))

	now := time.Now().UTC().Format(time.RFC3339Nano)
	g, err := scanGrant(r.db.QueryRowContext(ctx, query, uuid.New().String(), subject, prefix, now))
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("add: %w", err)
	}

	return g, nil
}

func (r *repo) Remove(ctx context.Context, subject, pathPrefix string) error {
	subject, prefix, err := privatemedia.NormalizeGrant(subject, pathPrefix)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE subject = ? AND path_prefix = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, subject, prefix)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove: rows affected: %w", err)
	}

	if affected == 0 {
		return privatemedia.ErrNotFound
	}

	return nil
}

func (r *repo) List(ctx context.Context, subject string) ([]privatemedia.Grant, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, subject, path_prefix, created_at FROM %s`, quoteIdentifier(r.tableName))

	var args []any
	if subject = strings.TrimSpace(subject); subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY subject, path_prefix`

	grants, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return grants, nil
}

func (r *repo) ListForSubjects(ctx context.Context, subjects []string) ([]privatemedia.Grant, error) {
	if len(subjects) == 0 {
		return []privatemedia.Grant{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(subjects)), ",")
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, subject, path_prefix, created_at FROM %s
		WHERE subject IN (%s)
		ORDER BY subject, path_prefix`, quoteIdentifier(r.tableName), placeholders)

	args := make([]any, len(subjects))
	for i, s := range subjects {
		args[i] = s
	}

	grants, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list for subjects: %w", err)
	}

	return grants, nil
}

func (r *repo) query(ctx context.Context, query string, args ...any) ([]privatemedia.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	grants := []privatemedia.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return grants, nil
}
