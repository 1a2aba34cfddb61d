// Package readings owns the flow-reading lifecycle: creation from image or
// manual submissions, and in-place confirmation keyed by correlation id.
package readings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/schemaname"
)

// CreateParams describes a new flow reading row.
type CreateParams struct {
	SchemeID          int64
	OperatorID        int64
	ReadingAt         time.Time
	ExtractedReading  float64
	ConfirmedReading  float64
	CorrelationID     string
	ImageURL          string
	MeterChangeReason string
}

// Record is the correlation-lookup projection of a flow reading.
type Record struct {
	ID            int64
	CorrelationID string
	CreatedBy     int64
}

// Store persists flow readings in a tenant schema. Schema names are
// validated before every interpolation.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a reading store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func guardSchema(schema string) error {
	if err := schemaname.Validate(schema); err != nil {
		return apperr.Wrap(apperr.KindInternal, "invalid tenant schema", err)
	}
	return nil
}

// Create inserts a flow reading and returns its id. When the correlation id
// already names a row, that row's id is returned instead of inserting a
// duplicate, which makes retried webhook deliveries harmless.
func (s *Store) Create(ctx context.Context, schema string, p CreateParams) (int64, error) {
	if err := guardSchema(schema); err != nil {
		return 0, err
	}

	if p.CorrelationID != "" {
		existing, found, err := s.FindByCorrelation(ctx, schema, p.CorrelationID)
		if err != nil {
			return 0, err
		}
		if found {
			return existing.ID, nil
		}
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s.flow_reading_table
			(scheme_id, reading_at, reading_date, extracted_reading, confirmed_reading,
			 correlation_id, quantity, channel, meter_change_reason, image_url,
			 created_by, created_at, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NULL, $7, $8, $9, NOW(), $9, NOW())
		RETURNING id
	`, schema)

	var reason *string
	if p.MeterChangeReason != "" {
		reason = &p.MeterChangeReason
	}

	var id int64
	err := s.pool.QueryRow(ctx, sql,
		p.SchemeID, p.ReadingAt, p.ReadingAt.Truncate(24*time.Hour),
		p.ExtractedReading, p.ConfirmedReading, p.CorrelationID,
		reason, p.ImageURL, p.OperatorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create flow reading in %s: %w", schema, err)
	}
	return id, nil
}

// FindByCorrelation looks up a reading row by correlation id.
func (s *Store) FindByCorrelation(ctx context.Context, schema, correlationID string) (Record, bool, error) {
	if err := guardSchema(schema); err != nil {
		return Record{}, false, err
	}

	sql := fmt.Sprintf(`
		SELECT id, correlation_id, COALESCE(created_by, 0)
		FROM %s.flow_reading_table
		WHERE correlation_id = $1
		LIMIT 1
	`, schema)

	var rec Record
	err := s.pool.QueryRow(ctx, sql, correlationID).Scan(&rec.ID, &rec.CorrelationID, &rec.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("find reading by correlation in %s: %w", schema, err)
	}
	return rec, true, nil
}

// FillByID sets both the extracted and confirmed values on an existing row.
// Used when a manual reading completes a meter-change conversation that
// already created the row.
func (s *Store) FillByID(ctx context.Context, schema string, readingID int64, value float64, updatedBy int64) error {
	if err := guardSchema(schema); err != nil {
		return err
	}

	sql := fmt.Sprintf(`
		UPDATE %s.flow_reading_table
		SET extracted_reading = $1, confirmed_reading = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, schema)

	if _, err := s.pool.Exec(ctx, sql, value, updatedBy, readingID); err != nil {
		return fmt.Errorf("fill reading %d in %s: %w", readingID, schema, err)
	}
	return nil
}

// UpdateConfirmed overwrites the confirmed value on an existing row. Never
// inserts.
func (s *Store) UpdateConfirmed(ctx context.Context, schema string, readingID int64, value float64, updatedBy int64) error {
	if err := guardSchema(schema); err != nil {
		return err
	}

	sql := fmt.Sprintf(`
		UPDATE %s.flow_reading_table
		SET confirmed_reading = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, schema)

	if _, err := s.pool.Exec(ctx, sql, value, updatedBy, readingID); err != nil {
		return fmt.Errorf("update confirmed reading %d in %s: %w", readingID, schema, err)
	}
	return nil
}

// LastConfirmed returns the most recent prior confirmed reading for a
// scheme, excluding the row just written. Shown back to the operator as
// context, never used for validation.
func (s *Store) LastConfirmed(ctx context.Context, schema string, schemeID, excludeID int64) (float64, bool, error) {
	if err := guardSchema(schema); err != nil {
		return 0, false, err
	}

	sql := fmt.Sprintf(`
		SELECT confirmed_reading
		FROM %s.flow_reading_table
		WHERE scheme_id = $1
		  AND id <> $2
		  AND confirmed_reading > 0
		ORDER BY reading_at DESC
		LIMIT 1
	`, schema)

	var value float64
	err := s.pool.QueryRow(ctx, sql, schemeID, excludeID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find last confirmed reading in %s: %w", schema, err)
	}
	return value, true, nil
}
