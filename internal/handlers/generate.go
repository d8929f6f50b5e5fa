package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/middleware"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/pkg/response"
)

type GenerateHandler struct {
	gateway *services.GatewayService
}

func NewGenerateHandler(gateway *services.GatewayService) *GenerateHandler {
	return &GenerateHandler{gateway: gateway}
}

// Generate runs one generation request through the gateway pipeline.
// POST /api/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req services.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	requestID := middleware.GetRequestID(c)

	result, err := h.gateway.Generate(c.Request.Context(), userID, c.ClientIP(), requestID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("X-Model-ID", result.ModelID)
	c.Header("X-Provider", result.Provider)
	c.Header("X-Quota-Used", strconv.Itoa(result.Subscription.Used))
	c.Header("X-Quota-Limit", strconv.Itoa(result.Subscription.Quota))
	c.Header("X-Quota-Remaining", strconv.Itoa(result.Subscription.Remaining))
	if result.RateLimit != nil {
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.RateLimit.Remaining()))
		c.Header("X-RateLimit-Reset", strconv.Itoa(result.RateLimit.ResetSeconds))
	}

	response.Success(c, result)
}
