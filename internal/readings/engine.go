package readings

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"telemetry_backend/internal/ocr"
	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/logger"
)

// ConfidenceThreshold is the minimum extraction confidence for a reading to
// be accepted without operator confirmation.
const ConfidenceThreshold = 0.70

// Quality statuses carried on reading results.
const (
	StatusConfirmed = "CONFIRMED"
	StatusReview    = "REVIEW"
	StatusRejected  = "REJECTED"
)

// ReadingStore is the persistence port for the engine.
type ReadingStore interface {
	Create(ctx context.Context, schema string, p CreateParams) (int64, error)
	FindByCorrelation(ctx context.Context, schema, correlationID string) (Record, bool, error)
	FillByID(ctx context.Context, schema string, readingID int64, value float64, updatedBy int64) error
	UpdateConfirmed(ctx context.Context, schema string, readingID int64, value float64, updatedBy int64) error
	LastConfirmed(ctx context.Context, schema string, schemeID, excludeID int64) (float64, bool, error)
}

// Result is the outcome of a capture or confirmation. Success false with a
// message is a structured rejection, not an error: the conversation layer
// relays the message to the operator either way.
type Result struct {
	Success              bool
	Message              string
	CorrelationID        string
	MeterReading         *float64
	QualityConfidence    *float64
	QualityStatus        string
	LastConfirmedReading *float64
}

// Engine converges the image and manual submission paths on one validation
// rule: a reading is valid iff its value is strictly positive and, when a
// confidence score exists, the score meets the threshold.
type Engine struct {
	store ReadingStore
	ocr   ocr.Extractor
	log   *logger.Logger
}

// NewEngine creates a reading engine.
func NewEngine(store ReadingStore, extractor ocr.Extractor, log *logger.Logger) *Engine {
	return &Engine{store: store, ocr: extractor, log: log}
}

// CaptureImageParams describes an image-based submission.
type CaptureImageParams struct {
	SchemeID   int64
	OperatorID int64
	ImageURL   string
	ReadingAt  time.Time
}

// CaptureImage runs OCR over the image and records the reading. A hard OCR
// failure yields a rejection with nothing written. A low-confidence reading
// is still written so the operator's later confirmation corrects it in
// place instead of creating a duplicate.
func (e *Engine) CaptureImage(ctx context.Context, schema string, p CaptureImageParams) (Result, error) {
	outcome, err := e.ocr.Extract(ctx, p.ImageURL)
	if err != nil {
		if apperr.Is(err, apperr.KindUnavailable) {
			return Result{
				Success:       false,
				Message:       "Could not read meter value from image. Please retry with a clearer photo.",
				CorrelationID: uuid.New().String(),
				QualityStatus: StatusRejected,
			}, nil
		}
		return Result{}, err
	}

	value := outcome.AdjustedReading
	conf := outcome.QualityConfidence

	if value <= 0 {
		return Result{
			Success:       false,
			Message:       "Invalid reading value",
			CorrelationID: outcome.CorrelationID,
			MeterReading:  &value,
			QualityStatus: StatusRejected,
		}, nil
	}

	valid := conf == nil || *conf >= ConfidenceThreshold

	readingAt := p.ReadingAt
	if readingAt.IsZero() {
		readingAt = time.Now()
	}

	readingID, err := e.store.Create(ctx, schema, CreateParams{
		SchemeID:         p.SchemeID,
		OperatorID:       p.OperatorID,
		ReadingAt:        readingAt,
		ExtractedReading: value,
		ConfirmedReading: value,
		CorrelationID:    outcome.CorrelationID,
		ImageURL:         p.ImageURL,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Success:           valid,
		CorrelationID:     outcome.CorrelationID,
		MeterReading:      &value,
		QualityConfidence: conf,
		QualityStatus:     outcome.QualityStatus,
	}
	if last, found, err := e.store.LastConfirmed(ctx, schema, p.SchemeID, readingID); err == nil && found {
		result.LastConfirmedReading = &last
	}

	text := formatReading(value)
	if valid {
		result.Message = "Reading captured successfully. Extracted reading: " + text
	} else {
		result.Message = "Low OCR confidence. Extracted reading: " + text + ". Please confirm reading."
	}
	return result, nil
}

// CaptureManualParams describes an operator-typed submission.
type CaptureManualParams struct {
	SchemeID          int64
	OperatorID        int64
	Value             float64
	MeterChangeReason string
	CorrelationID     string
	ReadingAt         time.Time
}

// CaptureManual records an operator-typed value. No confidence score exists
// on this path, so any positive value is valid. When the correlation id
// names an existing row, that row is filled in place, which is how a meter
// change conversation completes.
func (e *Engine) CaptureManual(ctx context.Context, schema string, p CaptureManualParams) (Result, error) {
	if p.Value <= 0 {
		return Result{
			Success:       false,
			Message:       "Invalid reading value",
			QualityStatus: StatusRejected,
		}, nil
	}

	readingAt := p.ReadingAt
	if readingAt.IsZero() {
		readingAt = time.Now()
	}

	correlationID := p.CorrelationID
	var readingID int64
	filled := false

	if correlationID != "" {
		existing, found, err := e.store.FindByCorrelation(ctx, schema, correlationID)
		if err != nil {
			return Result{}, err
		}
		if found {
			if err := e.store.FillByID(ctx, schema, existing.ID, p.Value, p.OperatorID); err != nil {
				return Result{}, err
			}
			readingID = existing.ID
			filled = true
		}
	}

	if !filled {
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		id, err := e.store.Create(ctx, schema, CreateParams{
			SchemeID:          p.SchemeID,
			OperatorID:        p.OperatorID,
			ReadingAt:         readingAt,
			ExtractedReading:  p.Value,
			ConfirmedReading:  p.Value,
			CorrelationID:     correlationID,
			MeterChangeReason: p.MeterChangeReason,
		})
		if err != nil {
			return Result{}, err
		}
		readingID = id
	}

	value := p.Value
	result := Result{
		Success:       true,
		Message:       "Reading captured successfully",
		CorrelationID: correlationID,
		MeterReading:  &value,
		QualityStatus: StatusConfirmed,
	}
	if last, found, err := e.store.LastConfirmed(ctx, schema, p.SchemeID, readingID); err == nil && found {
		result.LastConfirmedReading = &last
	}
	return result, nil
}

// Confirm overwrites the confirmed value on the reading named by the
// correlation id. Retried deliveries hit the same row, so confirmation is
// idempotent.
func (e *Engine) Confirm(ctx context.Context, schema, correlationID string, value float64) (Result, error) {
	if correlationID == "" {
		return Result{}, apperr.Validation("correlationId must be provided")
	}
	if value < 0 {
		return Result{}, apperr.Validation("confirmedReading must be a non-negative number")
	}

	reading, found, err := e.store.FindByCorrelation(ctx, schema, correlationID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, apperr.NotFound("Reading not found")
	}

	updatedBy := reading.CreatedBy
	if updatedBy == 0 {
		updatedBy = 1
	}
	if err := e.store.UpdateConfirmed(ctx, schema, reading.ID, value, updatedBy); err != nil {
		return Result{}, err
	}

	return Result{
		Success:       true,
		Message:       "Reading updated successfully",
		CorrelationID: reading.CorrelationID,
		MeterReading:  &value,
		QualityStatus: StatusConfirmed,
	}, nil
}

func formatReading(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
