package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"telemetry_backend/internal/content"
	"telemetry_backend/internal/glific"
	"telemetry_backend/internal/readings"
)

var manualReadingPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ManualReading records an operator-typed reading. When a correlation id
// from an earlier step is supplied and matches an existing row, that row is
// completed in place instead of inserting a duplicate.
func (s *Service) ManualReading(ctx context.Context, req ManualReadingRequest) ReadingResponse {
	const fallback = "Manual reading could not be saved."

	normalized := strings.ReplaceAll(strings.TrimSpace(req.ManualReading), ",", "")
	if !manualReadingPattern.MatchString(normalized) {
		return s.failReading("manual-reading", req.ContactID, nil, fallback)
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return s.failReading("manual-reading", req.ContactID, err, fallback)
	}

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.failReading("manual-reading", req.ContactID, err, fallback)
	}
	schemeID, err := s.directory.DefaultScheme(ctx, match.Schema, match.Operator.ID)
	if err != nil {
		return s.failReading("manual-reading", req.ContactID, err, fallback)
	}

	result, err := s.readings.CaptureManual(ctx, match.Schema, readings.CaptureManualParams{
		SchemeID:          schemeID,
		OperatorID:        match.Operator.ID,
		Value:             value,
		MeterChangeReason: req.MeterChangeReason,
		CorrelationID:     strings.TrimSpace(req.CorrelationID),
	})
	if err != nil {
		return s.failReading("manual-reading", req.ContactID, err, fallback)
	}

	resp := readingResponse(result)
	if resp.CorrelationID == "" {
		resp.CorrelationID = req.ContactID
	}
	if !result.Success {
		return resp
	}

	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)
	readingText := strconv.FormatFloat(value, 'f', -1, 64)

	templateKey := "manual_reading_confirmation_template"
	vars := map[string]string{"reading": readingText}
	if req.MeterChangeReason != "" {
		templateKey = "meter_change_confirmation_template"
		vars["reason"] = req.MeterChangeReason
	}
	if template, err := s.content.Text(ctx, tenantID, templateKey, langKey); err == nil {
		resp.Message = content.Render(template, vars)
	}
	return resp
}

// ProcessImage downloads the submitted meter image, archives it, and runs
// the OCR reading path against the operator's default scheme.
func (s *Service) ProcessImage(ctx context.Context, req MediaRequest) ReadingResponse {
	hasImage := req.MediaID != "" || req.MediaURL != ""
	if !hasImage {
		return ReadingResponse{
			Success:       false,
			Message:       "Invalid media. Please send a clear meter image.",
			CorrelationID: req.ContactID,
			QualityStatus: readings.StatusRejected,
		}
	}

	var (
		data []byte
		err  error
	)
	if req.MediaID != "" {
		data, err = s.media.FetchByID(ctx, req.MediaID)
	} else {
		data, err = s.media.FetchURL(ctx, req.MediaURL)
	}
	if err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}

	// Prefer the camera timestamp over the upload time when the photo
	// carries one; rural uploads can lag the reading by hours.
	var readingAt time.Time
	if taken, ok := glific.CaptureTime(data); ok {
		readingAt = taken
	}

	objectKey := fmt.Sprintf("bfm/%s/%d.jpg", req.ContactID, time.Now().UnixMilli())
	imageURL, err := s.images.Upload(ctx, objectKey, data)
	if err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}
	schemeID, err := s.directory.DefaultScheme(ctx, match.Schema, match.Operator.ID)
	if err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}
	if err := s.directory.VerifyMembership(ctx, match.Schema, match.Operator.ID, schemeID); err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}

	result, err := s.readings.CaptureImage(ctx, match.Schema, readings.CaptureImageParams{
		SchemeID:   schemeID,
		OperatorID: match.Operator.ID,
		ImageURL:   imageURL,
		ReadingAt:  readingAt,
	})
	if err != nil {
		return s.failReading("process-image", req.ContactID, err, genericFailure)
	}

	resp := readingResponse(result)
	if resp.CorrelationID == "" {
		resp.CorrelationID = req.ContactID
	}
	return resp
}

func (s *Service) failReading(step, contactID string, err error, message string) ReadingResponse {
	s.log.WebhookFailure(step, contactID, err)
	return ReadingResponse{
		Success:       false,
		Message:       message,
		CorrelationID: contactID,
		QualityStatus: readings.StatusRejected,
	}
}

func readingResponse(result readings.Result) ReadingResponse {
	return ReadingResponse{
		Success:              result.Success,
		Message:              result.Message,
		CorrelationID:        result.CorrelationID,
		MeterReading:         result.MeterReading,
		QualityConfidence:    result.QualityConfidence,
		QualityStatus:        result.QualityStatus,
		LastConfirmedReading: result.LastConfirmedReading,
	}
}
