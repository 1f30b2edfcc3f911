package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
	"github.com/sreekar9601/getcovered-technical-task/webhook"
)

// DetectService runs the full retrieval + detection pipeline for one URL.
// Implemented by orchestrator.Orchestrator.
type DetectService interface {
	Detect(ctx context.Context, req *models.DetectRequest) *models.DetectResponse
}

// Detect returns a handler for POST /api/v1/detect.
//
// The service itself never returns a transport error: retrieval failures
// come back as a structured response with Success=false, and the handler
// maps the embedded error code to an HTTP status.
func Detect(svc DetectService, hook config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DetectResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		resp := svc.Detect(c.Request.Context(), &req)
		notify(hook, resp)
		if !resp.Success && resp.Error != nil {
			c.JSON(mapErrorToStatus(resp.Error.Code), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// notify posts the detection outcome to the configured webhook endpoint,
// if any. Delivery happens in the background and never blocks the response.
func notify(hook config.WebhookConfig, resp *models.DetectResponse) {
	if hook.URL == "" {
		return
	}
	eventType := webhook.EventDetectionCompleted
	if !resp.Success {
		eventType = webhook.EventDetectionFailed
	}
	webhook.DeliverAsync(hook.URL, hook.Secret, &webhook.Event{
		Type:      eventType,
		URL:       resp.URL,
		Timestamp: time.Now().Unix(),
		Data:      resp,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidURL, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeBlocked, models.ErrCodeNetwork, models.ErrCodeTLS,
		models.ErrCodeRender, models.ErrCodeUnsupportedContent:
		return http.StatusBadGateway // 502
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
