// Package ocr provides the client for the external meter-reading extraction
// service. The service is best-effort: any transport failure, timeout, or
// malformed payload is reported as an unavailable outcome and the caller
// degrades to its rejection path instead of crashing the webhook turn.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/config"
	"telemetry_backend/platform/logger"

	"github.com/google/uuid"
)

// Outcome is the structured result of a successful extraction call.
type Outcome struct {
	AdjustedReading   float64
	QualityStatus     string
	QualityConfidence *float64 // nil when the service reported no confidence
	CorrelationID     string
}

// Extractor extracts a meter reading from a hosted image.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (*Outcome, error)
}

// Client calls the extraction service over HTTP with bounded retries.
type Client struct {
	url            string
	http           *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	log            *logger.Logger
}

// NewClient creates an extraction client from configuration.
func NewClient(cfg config.OCRConfig, log *logger.Logger) *Client {
	maxAttempts := cfg.GetOCRRetryMaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		url:            cfg.GetOCRURL(),
		http:           &http.Client{Timeout: cfg.GetOCRTimeout()},
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.GetOCRRetryInitialBackoff(),
		log:            log,
	}
}

type extractRequest struct {
	ImageURL string `json:"imageURL"`
}

type extractResponse struct {
	Result *extractResult `json:"result"`
}

type extractResult struct {
	Status        string       `json:"status"`
	CorrelationID string       `json:"correlationId"`
	Data          *extractData `json:"data"`
}

type extractData struct {
	MeterReading      *float64 `json:"meterReading"`
	QualityStatus     string   `json:"qualityStatus"`
	QualityConfidence *float64 `json:"qualityConfidence"`
}

// Extract posts the image URL to the extraction service. Transport errors are
// retried with doubling backoff; a well-formed negative answer (no reading,
// non-success status) is returned immediately as unavailable.
func (c *Client) Extract(ctx context.Context, imageURL string) (*Outcome, error) {
	if c.url == "" {
		return nil, apperr.Unavailable("meter-reading extraction is not configured")
	}

	backoff := c.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		outcome, retryable, err := c.extractOnce(ctx, imageURL)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindUnavailable, "extraction cancelled", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	c.log.OCRFailure(imageURL, c.maxAttempts, lastErr)
	return nil, apperr.Wrap(apperr.KindUnavailable, "meter-reading extraction failed", lastErr)
}

func (c *Client) extractOnce(ctx context.Context, imageURL string) (outcome *Outcome, retryable bool, err error) {
	body, err := json.Marshal(extractRequest{ImageURL: imageURL})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("extraction request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("extraction service returned %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("malformed extraction response: %w", err)
	}

	if parsed.Result == nil || parsed.Result.Status != "SUCCESS" || parsed.Result.Data == nil {
		return nil, false, fmt.Errorf("extraction not successful")
	}
	if parsed.Result.Data.MeterReading == nil {
		return nil, false, fmt.Errorf("extraction response missing meter reading")
	}

	correlationID := parsed.Result.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	return &Outcome{
		AdjustedReading:   *parsed.Result.Data.MeterReading,
		QualityStatus:     defaultString(parsed.Result.Data.QualityStatus, "unknown"),
		QualityConfidence: parsed.Result.Data.QualityConfidence,
		CorrelationID:     correlationID,
	}, false, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
