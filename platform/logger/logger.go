// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ContactIDKey is the context key for the webhook contact id
	ContactIDKey contextKey = "contact_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request-scoped values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if contactID, ok := ctx.Value(ContactIDKey).(string); ok && contactID != "" {
		newLogger = newLogger.WithContactID(contactID)
	}

	return newLogger
}

// WithContactID returns a logger with the webhook contact id attached.
func (l *Logger) WithContactID(contactID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("contact_id", contactID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// WebhookFailure logs a conversation step that degraded to a fallback reply.
func (l *Logger) WebhookFailure(step, contactID string, err error) {
	cause := "rejected input"
	if err != nil {
		cause = err.Error()
	}
	l.Error("webhook_step_failed",
		slog.String("step", step),
		slog.String("contact_id", contactID),
		slog.String("error", cause),
	)
}

// TenantScan logs the outcome of a cross-tenant operator lookup.
func (l *Logger) TenantScan(contactID string, schemasScanned int, matchedSchema string) {
	l.Debug("tenant_scan",
		slog.String("contact_id", contactID),
		slog.Int("schemas_scanned", schemasScanned),
		slog.String("matched_schema", matchedSchema),
	)
}

// OCRFailure logs a failed meter-reading extraction call.
func (l *Logger) OCRFailure(imageURL string, attempts int, err error) {
	l.Error("ocr_failed",
		slog.String("image_url", imageURL),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
