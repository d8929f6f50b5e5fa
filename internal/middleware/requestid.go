package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ContextRequestID = "request_id"

// RequestID assigns each request a UUID, exposed via X-Request-ID and the
// gin context. Incoming X-Request-ID headers are honored for traceability
// across proxies.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// GetRequestID returns the request ID assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(ContextRequestID); exists {
		return id.(string)
	}
	return ""
}
