package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry_backend/internal/content"
	"telemetry_backend/internal/conversation"
	"telemetry_backend/internal/glific"
	apphttp "telemetry_backend/internal/http"
	"telemetry_backend/internal/http/router"
	"telemetry_backend/internal/ocr"
	"telemetry_backend/internal/readings"
	"telemetry_backend/internal/storage"
	"telemetry_backend/internal/tenancy"
	"telemetry_backend/migrations"
	"telemetry_backend/platform/config"
	"telemetry_backend/platform/db"
	"telemetry_backend/platform/logger"
	"telemetry_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Redis backs the phone-to-schema lookup cache. Without it the resolver
	// still works, it just re-scans tenant schemas on every webhook call.
	var cache *redis.Client
	if cfg.IsRedisEnabled() {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		defer cache.Close()
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable at startup, cache degrades to scan-only", "error", err)
		} else {
			log.Info("tenant lookup cache connected", "addr", cfg.GetRedisAddr())
		}
	} else {
		log.Warn("REDIS_ADDR not configured; tenant lookup cache disabled")
	}

	// Object storage for meter photos (MinIO)
	imageStore, err := storage.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize image store", "error", err)
		panic("failed to initialize image store: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure meter-images bucket", 5, 2*time.Second, func() error {
		return imageStore.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure meter-images bucket exists", "error", err)
		panic("failed to ensure meter-images bucket exists: " + err.Error())
	}
	log.Info("image store initialized", "bucket", cfg.GetMinioBucketMeterImages())

	// Outbound HTTP collaborators
	ocrClient := ocr.NewClient(cfg, log)
	mediaClient := glific.NewClient(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	tenantRepo := tenancy.NewRepository(pool)
	tenantResolver := tenancy.NewResolver(tenantRepo, cache, cfg, log)
	preferenceRepo := tenancy.NewPreferenceRepository(pool)

	contentResolver := content.NewResolver(content.NewRepository(pool), log)

	readingsModule := readings.NewModule(pool, ocrClient, val, log)

	conversationModule := conversation.NewModule(
		tenantResolver,
		preferenceRepo,
		contentResolver,
		readingsModule.Engine(),
		mediaClient,
		imageStore,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	engine := router.New(cfg, log, pool, []apphttp.Module{
		conversationModule,
		readingsModule,
	}...)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
