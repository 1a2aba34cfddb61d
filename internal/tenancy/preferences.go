package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telemetry_backend/platform/phone"
)

// PreferenceRepository stores per-contact conversation preferences in the
// shared schema. Contact ids are normalized to digits before storage so the
// same phone number always hits the same row regardless of formatting.
type PreferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository creates a new preference repository.
func NewPreferenceRepository(pool *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

// UpsertLanguage records the language display name the contact selected.
func (r *PreferenceRepository) UpsertLanguage(ctx context.Context, tenantID int, contactID, languageValue string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO common_schema.user_language_preference
			(tenant_id, contact_id, language_value, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (tenant_id, contact_id)
		DO UPDATE SET language_value = EXCLUDED.language_value, updated_at = NOW()
	`, tenantID, phone.Digits(contactID), languageValue)
	if err != nil {
		return fmt.Errorf("upsert language preference: %w", err)
	}
	return nil
}

// FindLanguage returns the stored language preference for a contact,
// matching the stored contact id verbatim or by its digits-only form.
func (r *PreferenceRepository) FindLanguage(ctx context.Context, tenantID int, contactID string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT language_value
		FROM common_schema.user_language_preference
		WHERE tenant_id = $1
		  AND (contact_id = $2 OR regexp_replace(COALESCE(contact_id, ''), '\D', '', 'g') = $3)
		LIMIT 1
	`, tenantID, contactID, phone.Digits(contactID)).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find language preference: %w", err)
	}
	return value, true, nil
}

// UpsertChannel records the reporting channel the contact selected.
func (r *PreferenceRepository) UpsertChannel(ctx context.Context, tenantID int, contactID, channelValue string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO common_schema.user_channel_preference
			(tenant_id, contact_id, channel_value, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (tenant_id, contact_id)
		DO UPDATE SET channel_value = EXCLUDED.channel_value, updated_at = NOW()
	`, tenantID, phone.Digits(contactID), channelValue)
	if err != nil {
		return fmt.Errorf("upsert channel preference: %w", err)
	}
	return nil
}
