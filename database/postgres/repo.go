// Package postgres implements privatemedia.GrantRepo using PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/privatemedia"
)

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *repo) table() string {
	return pgx.Identifier{r.tableName}.Sanitize()
}

func (r *repo) Add(ctx context.Context, subject, pathPrefix string) (privatemedia.Grant, error) {
	subject, prefix, err := privatemedia.NormalizeGrant(subject, pathPrefix)
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("add: %w", err)
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	query := fmt.Sprintf(`
		INSERT INTO %s (subject, path_prefix)
		VALUES ($1, $2)
		ON CONFLICT (subject, path_prefix) DO UPDATE SET subject = EXCLUDED.subject
		RETURNING id, subject, path_prefix, created_at
	`, r.table())

	var g privatemedia.Grant
	err = r.pool.QueryRow(ctx, query, subject, prefix).Scan(&g.ID, &g.Subject, &g.PathPrefix, &g.CreatedAt)
	if err != nil {
		return privatemedia.Grant{}, fmt.Errorf("add: %w", err)
	}

	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func (r *repo) Remove(ctx context.Context, subject, pathPrefix string) error {
	subject, prefix, err := privatemedia.NormalizeGrant(subject, pathPrefix)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE subject = $1 AND path_prefix = $2`, r.table())

	tag, err := r.pool.Exec(ctx, query, subject, prefix)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return privatemedia.ErrNotFound
	}

	return nil
}

func (r *repo) List(ctx context.Context, subject string) ([]privatemedia.Grant, error) {
	query := fmt.Sprintf(`SELECT id, subject, path_prefix, created_at FROM %s`, r.table())

	var args []any
	if subject = strings.TrimSpace(subject); subject != "" {
		query += ` WHERE subject = $1`
		args = append(args, subject)
	}
	query += ` ORDER BY subject COLLATE "C", path_prefix COLLATE "C"`

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

	query := fmt.Sprintf(`
		SELECT id, subject, path_prefix, created_at FROM %s
		WHERE subject = ANY($1)
		ORDER BY subject COLLATE "C", path_prefix COLLATE "C"
	`, r.table())

	grants, err := r.query(ctx, query, subjects)
	if err != nil {
		return nil, fmt.Errorf("list for subjects: %w", err)
	}

	return grants, nil
}

func (r *repo) query(ctx context.Context, query string, args ...any) ([]privatemedia.Grant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	grants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (privatemedia.Grant, error) {
		var g privatemedia.Grant
		err := row.Scan(&g.ID, &g.Subject, &g.PathPrefix, &g.CreatedAt)
		g.CreatedAt = g.CreatedAt.UTC()
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return grants, nil
}
