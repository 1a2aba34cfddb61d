package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/logger"
)

type testConfig struct {
	url string
}

func (c testConfig) GetOCRURL() string                        { return c.url }
func (c testConfig) GetOCRTimeout() time.Duration             { return 2 * time.Second }
func (c testConfig) GetOCRRetryMaxAttempts() int              { return 3 }
func (c testConfig) GetOCRRetryInitialBackoff() time.Duration { return time.Millisecond }

func newTestClient(url string) *Client {
	return NewClient(testConfig{url: url}, logger.New("development"))
}

func TestExtractSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"status":"SUCCESS","correlationId":"corr-1",
			"data":{"meterReading":120.5,"qualityStatus":"CONFIRMED","qualityConfidence":0.91}}}`)
	}))
	defer server.Close()

	outcome, err := newTestClient(server.URL).Extract(context.Background(), "http://images/meter.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.AdjustedReading != 120.5 {
		t.Fatalf("expected reading 120.5, got %v", outcome.AdjustedReading)
	}
	if outcome.CorrelationID != "corr-1" {
		t.Fatalf("expected correlation corr-1, got %q", outcome.CorrelationID)
	}
	if outcome.QualityConfidence == nil || *outcome.QualityConfidence != 0.91 {
		t.Fatalf("expected confidence 0.91, got %v", outcome.QualityConfidence)
	}
}

func TestExtractMissingConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"status":"SUCCESS","data":{"meterReading":42}}}`)
	}))
	defer server.Close()

	outcome, err := newTestClient(server.URL).Extract(context.Background(), "http://images/meter.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.QualityConfidence != nil {
		t.Fatalf("expected absent confidence, got %v", *outcome.QualityConfidence)
	}
	if outcome.QualityStatus != "unknown" {
		t.Fatalf("expected default quality status, got %q", outcome.QualityStatus)
	}
	if outcome.CorrelationID == "" {
		t.Fatal("expected generated correlation id")
	}
}

func TestExtractNonSuccessStatusIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"status":"FAILED"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "http://images/meter.jpg")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestExtractRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"result":{"status":"SUCCESS","correlationId":"corr-2","data":{"meterReading":7.25}}}`)
	}))
	defer server.Close()

	outcome, err := newTestClient(server.URL).Extract(context.Background(), "http://images/meter.jpg")
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if outcome.AdjustedReading != 7.25 {
		t.Fatalf("expected reading 7.25, got %v", outcome.AdjustedReading)
	}
}

func TestExtractRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "http://images/meter.jpg")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestExtractUnconfigured(t *testing.T) {
	_, err := newTestClient("").Extract(context.Background(), "http://images/meter.jpg")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
