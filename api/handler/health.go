package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreekar9601/getcovered-technical-task/models"
)

// StatsSource reports headless browser utilisation.
// Implemented by browser.Browser.
type StatsSource interface {
	Stats() models.BrowserStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports browser context utilisation and degrades status when > 80% of
// contexts are active.
func Health(src StatsSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := src.Stats()

		status := "healthy"
		if stats.MaxContexts > 0 && stats.ActiveContexts > int(float64(stats.MaxContexts)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: stats,
			Version:      "0.1.0",
		})
	}
}
