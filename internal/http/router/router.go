// Package router assembles the Gin engine and mounts all registered modules.
package router

import (
	"net/http"

	apphttp "telemetry_backend/internal/http"
	"telemetry_backend/platform/config"
	"telemetry_backend/platform/httpkit"
	"telemetry_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the HTTP engine: shared middleware, health endpoint, and the
// webhook and internal API groups every module mounts onto.
func New(cfg config.HTTPConfig, log *logger.Logger, health apphttp.HealthChecker, modules ...apphttp.Module) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))

	engine.GET("/api/health", func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhookLimiter := httpkit.NewIPRateLimiter(cfg.GetWebhookRatePerMinute(), cfg.GetWebhookRateBurst(), log)

	webhook := engine.Group("/api/v2/webhook")
	webhook.Use(webhookLimiter.RateLimit())

	api := engine.Group("/api/v1")

	ctx := &apphttp.RouterContext{
		Engine:  engine,
		Webhook: webhook,
		API:     api,
	}

	for _, module := range modules {
		module.RegisterRoutes(ctx)
		log.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(cfg config.HTTPConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Tenant-Schema"}
	return cors.New(corsConfig)
}
