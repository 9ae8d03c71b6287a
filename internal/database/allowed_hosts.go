package database

import (
	"context"
	"fmt"
	"strings"
)

// AllowedHostRepository stores host patterns that extend the static allow-list.
type AllowedHostRepository struct {
	db *DB
}

func NewAllowedHostRepository(db *DB) *AllowedHostRepository {
	return &AllowedHostRepository{db: db}
}

// HostPatterns returns every enabled pattern.
func (r *AllowedHostRepository) HostPatterns(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT pattern FROM allowed_hosts WHERE enabled = true ORDER BY pattern`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed hosts: %w", err)
	}
	defer rows.Close()

	var patterns []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan allowed host: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return patterns, nil
}

// Upsert adds pattern or re-enables it.
func (r *AllowedHostRepository) Upsert(ctx context.Context, pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return fmt.Errorf("empty host pattern")
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO allowed_hosts (pattern, enabled)
		VALUES ($1, true)
		ON CONFLICT (pattern) DO UPDATE SET enabled = true`, pattern)
	if err != nil {
		return fmt.Errorf("failed to upsert allowed host: %w", err)
	}
	return nil
}

// Disable turns pattern off without deleting it.
func (r *AllowedHostRepository) Disable(ctx context.Context, pattern string) error {
	tag, err := r.db.Exec(ctx, `UPDATE allowed_hosts SET enabled = false WHERE pattern = $1`,
		strings.ToLower(strings.TrimSpace(pattern)))
	if err != nil {
		return fmt.Errorf("failed to disable allowed host: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowed host not found: %s", pattern)
	}
	return nil
}
