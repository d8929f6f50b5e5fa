package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/middleware"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/pkg/response"
)

type UsageHandler struct {
	usageService *services.UsageService
	quotaService *services.QuotaService
}

func NewUsageHandler(usageService *services.UsageService, quotaService *services.QuotaService) *UsageHandler {
	return &UsageHandler{usageService: usageService, quotaService: quotaService}
}

// GetStats returns generation telemetry aggregates. Regular users see
// their own usage; admins may pass all=true for the global view.
// GET /api/usage/stats?days=&all=
func (h *UsageHandler) GetStats(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	since := time.Now().AddDate(0, 0, -days)

	userID := middleware.GetUserID(c)
	if c.Query("all") == "true" && middleware.GetRole(c) == "admin" {
		userID = 0
	}

	stats, err := h.usageService.GetStats(userID, since)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// GetSubscription returns the caller's quota snapshot
// GET /api/usage/subscription
func (h *UsageHandler) GetSubscription(c *gin.Context) {
	sub, err := h.quotaService.GetSubscription(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}
