package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/schemaname"
)

// Repository provides data access over tenant schemas. Schema names are
// interpolated into SQL because Postgres cannot parameterize identifiers;
// every method validates the name against the schema pattern first and
// refuses to build a query otherwise.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new tenancy repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func guardSchema(schema string) error {
	if err := schemaname.Validate(schema); err != nil {
		return apperr.Wrap(apperr.KindInternal, "invalid tenant schema", err)
	}
	return nil
}

// TenantSchemas lists tenant namespaces in deterministic order, capped so a
// runaway catalog cannot turn one webhook into an unbounded scan.
func (r *Repository) TenantSchemas(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT nspname
		FROM pg_namespace
		WHERE nspname LIKE $1
		ORDER BY nspname
		LIMIT $2
	`, schemaname.Prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("list tenant schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// OperatorByPhone looks up an operator in one schema, matching either the
// stored phone number verbatim or its digits-only form.
func (r *Repository) OperatorByPhone(ctx context.Context, schema, rawPhone, digits string) (Operator, bool, error) {
	if err := guardSchema(schema); err != nil {
		return Operator{}, false, err
	}

	sql := fmt.Sprintf(`
		SELECT id, COALESCE(tenant_id, 0), COALESCE(title, ''), COALESCE(email, ''),
		       COALESCE(phone_number, ''), COALESCE(language_id, 0)
		FROM %s.user_table
		WHERE phone_number = $1
		   OR regexp_replace(COALESCE(phone_number, ''), '\D', '', 'g') = $2
		LIMIT 1
	`, schema)

	var op Operator
	err := r.pool.QueryRow(ctx, sql, rawPhone, digits).Scan(
		&op.ID, &op.TenantID, &op.Title, &op.Email, &op.Phone, &op.LanguageID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Operator{}, false, nil
	}
	if err != nil {
		return Operator{}, false, fmt.Errorf("find operator by phone in %s: %w", schema, err)
	}
	return op, true, nil
}

// FirstActiveScheme returns the lowest-ordered active scheme membership for
// an operator.
func (r *Repository) FirstActiveScheme(ctx context.Context, schema string, operatorID int64) (int64, bool, error) {
	if err := guardSchema(schema); err != nil {
		return 0, false, err
	}

	sql := fmt.Sprintf(`
		SELECT scheme_id
		FROM %s.user_scheme_mapping_table
		WHERE user_id = $1 AND status = 1
		ORDER BY id
		LIMIT 1
	`, schema)

	var schemeID int64
	err := r.pool.QueryRow(ctx, sql, operatorID).Scan(&schemeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find first scheme in %s: %w", schema, err)
	}
	return schemeID, true, nil
}

// OperatorMappedToScheme reports whether an active mapping exists for
// exactly this operator and scheme pair.
func (r *Repository) OperatorMappedToScheme(ctx context.Context, schema string, operatorID, schemeID int64) (bool, error) {
	if err := guardSchema(schema); err != nil {
		return false, err
	}

	sql := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1
			FROM %s.user_scheme_mapping_table
			WHERE user_id = $1 AND scheme_id = $2 AND status = 1
		)
	`, schema)

	var exists bool
	if err := r.pool.QueryRow(ctx, sql, operatorID, schemeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check scheme mapping in %s: %w", schema, err)
	}
	return exists, nil
}

// SchemeExists reports whether the scheme id is present in the schema.
func (r *Repository) SchemeExists(ctx context.Context, schema string, schemeID int64) (bool, error) {
	if err := guardSchema(schema); err != nil {
		return false, err
	}

	sql := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s.scheme_master_table WHERE id = $1)
	`, schema)

	var exists bool
	if err := r.pool.QueryRow(ctx, sql, schemeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check scheme in %s: %w", schema, err)
	}
	return exists, nil
}

// UpdateOperatorLanguage stores the operator's selected language id.
func (r *Repository) UpdateOperatorLanguage(ctx context.Context, schema string, operatorID int64, languageID int) error {
	if err := guardSchema(schema); err != nil {
		return err
	}

	sql := fmt.Sprintf(`
		UPDATE %s.user_table
		SET language_id = $1, updated_at = NOW()
		WHERE id = $2
	`, schema)

	if _, err := r.pool.Exec(ctx, sql, languageID, operatorID); err != nil {
		return fmt.Errorf("update operator language in %s: %w", schema, err)
	}
	return nil
}

// UpdateSchemeChannel stores the reporting channel chosen for a scheme.
func (r *Repository) UpdateSchemeChannel(ctx context.Context, schema string, schemeID int64, channel int) error {
	if err := guardSchema(schema); err != nil {
		return err
	}

	sql := fmt.Sprintf(`
		UPDATE %s.scheme_master_table
		SET channel = $1, updated_at = NOW()
		WHERE id = $2
	`, schema)

	if _, err := r.pool.Exec(ctx, sql, channel, schemeID); err != nil {
		return fmt.Errorf("update scheme channel in %s: %w", schema, err)
	}
	return nil
}
