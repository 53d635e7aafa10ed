package handlers

import (
	"time"

	"telemetrygen/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	Debug             bool
	RequestsPerSecond int
	Burst             int
}

// NewRouter exposes the read-only status API under /api/v1.
func NewRouter(h *TelemetryHandler, cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	if cfg.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter, "/api/v1/health"))
	}

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/telemetry", h.ListTelemetry)
	api.GET("/telemetry/last-batch", h.LastBatch)
	api.GET("/telemetry/batches", h.RecentBatches)

	return r
}
