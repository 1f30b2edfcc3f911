package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreekar9601/getcovered-technical-task/api/handler"
	"github.com/sreekar9601/getcovered-technical-task/api/middleware"
	"github.com/sreekar9601/getcovered-technical-task/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// The health endpoint sits outside auth.
func NewRouter(svc handler.DetectService, stats handler.StatsSource, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(stats, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/detect", handler.Detect(svc, cfg.Webhook))

	return r
}
