// Package content resolves operator-facing prompts, option lists, and message
// templates from per-tenant configuration, with a language fallback cascade
// and embedded defaults so a freshly onboarded tenant still gets a usable
// conversation.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads tenant content rows from the shared configuration table.
// All rows live in common_schema regardless of tenant, keyed by tenant_id.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new content repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindValue returns the config value for an exact key, reporting whether the
// row exists.
func (r *Repository) FindValue(ctx context.Context, tenantID int, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT config_value
		FROM common_schema.tenant_config_master_table
		WHERE tenant_id = $1 AND config_key = $2
		LIMIT 1
	`, tenantID, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find config value %q: %w", key, err)
	}
	return value, true, nil
}

// ListLocalized returns values for keys shaped <prefix>_<n>_<langKey>,
// ordered by the numeric suffix ascending. The language key is already
// normalized to [a-z0-9_]+ by the resolver, so the constructed pattern
// cannot escape the intended key family.
func (r *Repository) ListLocalized(ctx context.Context, tenantID int, prefix, langKey string) ([]string, error) {
	pattern := fmt.Sprintf(`^%s_([0-9]+)_%s$`, prefix, langKey)
	return r.listByPattern(ctx, tenantID, pattern)
}

// ListGeneric returns values for keys shaped <prefix>_<n>, ordered by the
// numeric suffix ascending.
func (r *Repository) ListGeneric(ctx context.Context, tenantID int, prefix string) ([]string, error) {
	pattern := fmt.Sprintf(`^%s_([0-9]+)$`, prefix)
	return r.listByPattern(ctx, tenantID, pattern)
}

func (r *Repository) listByPattern(ctx context.Context, tenantID int, pattern string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT config_value
		FROM common_schema.tenant_config_master_table
		WHERE tenant_id = $1 AND config_key ~ $2
		ORDER BY (regexp_replace(config_key, $2, '\1'))::int
	`, tenantID, pattern)
	if err != nil {
		return nil, fmt.Errorf("list config values %q: %w", pattern, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
