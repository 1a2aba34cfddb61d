// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetWebhookRatePerMinute() float64
	GetWebhookRateBurst() int
}

// RedisConfig provides settings for the tenant-schema lookup cache.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	IsRedisEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketMeterImages() string
	IsMinIOEnabled() bool
}

// OCRConfig provides settings for the meter-reading extraction service.
type OCRConfig interface {
	GetOCRURL() string
	GetOCRTimeout() time.Duration
	GetOCRRetryMaxAttempts() int
	GetOCRRetryInitialBackoff() time.Duration
}

// GlificConfig provides settings for the chat-platform media API.
type GlificConfig interface {
	GetGlificMediaBaseURL() string
	GetGlificAPIToken() string
}

// TenancyConfig provides settings for the cross-tenant operator resolver.
type TenancyConfig interface {
	GetTenantScanMaxSchemas() int
	GetTenantSchemaCacheTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	WebhookRatePerMinute   float64
	WebhookRateBurst       int
	RedisAddr              string
	RedisPassword          string
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketMeterImages string
	OCRURL                 string
	OCRTimeout             time.Duration
	OCRRetryMaxAttempts    int
	OCRRetryInitialBackoff time.Duration
	GlificMediaBaseURL     string
	GlificAPIToken         string
	TenantScanMaxSchemas   int
	TenantSchemaCacheTTL   time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool            { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string         { return c.CORSOrigins }
func (c *Config) GetWebhookRatePerMinute() float64 { return c.WebhookRatePerMinute }
func (c *Config) GetWebhookRateBurst() int         { return c.WebhookRateBurst }

// RedisConfig implementation
func (c *Config) GetRedisAddr() string     { return c.RedisAddr }
func (c *Config) GetRedisPassword() string { return c.RedisPassword }
func (c *Config) IsRedisEnabled() bool     { return c.RedisAddr != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketMeterImages() string { return c.MinioBucketMeterImages }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// OCRConfig implementation
func (c *Config) GetOCRURL() string                       { return c.OCRURL }
func (c *Config) GetOCRTimeout() time.Duration            { return c.OCRTimeout }
func (c *Config) GetOCRRetryMaxAttempts() int             { return c.OCRRetryMaxAttempts }
func (c *Config) GetOCRRetryInitialBackoff() time.Duration { return c.OCRRetryInitialBackoff }

// GlificConfig implementation
func (c *Config) GetGlificMediaBaseURL() string { return c.GlificMediaBaseURL }
func (c *Config) GetGlificAPIToken() string     { return c.GlificAPIToken }

// TenancyConfig implementation
func (c *Config) GetTenantScanMaxSchemas() int           { return c.TenantScanMaxSchemas }
func (c *Config) GetTenantSchemaCacheTTL() time.Duration { return c.TenantSchemaCacheTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		WebhookRatePerMinute:   getEnvFloat("WEBHOOK_RATE_PER_MINUTE", 120),
		WebhookRateBurst:       getEnvInt("WEBHOOK_RATE_BURST", 30),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketMeterImages: getEnv("MINIO_BUCKET_METER_IMAGES", "meter-images"),
		OCRURL:                 getEnv("OCR_URL", ""),
		OCRTimeout:             getEnvDuration("OCR_TIMEOUT", 15*time.Second),
		OCRRetryMaxAttempts:    getEnvInt("OCR_RETRY_MAX_ATTEMPTS", 3),
		OCRRetryInitialBackoff: getEnvDuration("OCR_RETRY_INITIAL_BACKOFF", 300*time.Millisecond),
		GlificMediaBaseURL:     getEnv("GLIFIC_MEDIA_BASE_URL", "https://api.glific.org/v1/media"),
		GlificAPIToken:         getEnv("GLIFIC_API_TOKEN", ""),
		TenantScanMaxSchemas:   getEnvInt("TENANT_SCAN_MAX_SCHEMAS", 64),
		TenantSchemaCacheTTL:   getEnvDuration("TENANT_SCHEMA_CACHE_TTL", 15*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TenantScanMaxSchemas <= 0 {
		return nil, fmt.Errorf("TENANT_SCAN_MAX_SCHEMAS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
