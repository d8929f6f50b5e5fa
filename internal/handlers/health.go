package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports subsystem health for load balancers and operators.
type HealthHandler struct {
	redisClient *redis.Client // nil when redis is disabled
}

func NewHealthHandler(redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{redisClient: redisClient}
}

// CheckHealth returns the health status of all subsystems.
// GET /api/health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	redisStatus := "disabled"
	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			// The gateway degrades without redis, so this is not unhealthy.
			redisStatus = "error: " + err.Error()
		} else {
			redisStatus = "ok"
		}
	}

	var enabledModels int64
	models.GetDB().Model(&models.LLMModel{}).
		Where("enabled = ? AND health_status <> ?", true, models.HealthDown).
		Count(&enabledModels)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "memodeck",
		"components": gin.H{
			"database":         dbStatus,
			"redis":            redisStatus,
			"available_models": enabledModels,
		},
	})
}
