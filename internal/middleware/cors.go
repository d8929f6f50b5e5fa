package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a CORS middleware
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{
			"Content-Length", "Retry-After", "X-Request-ID",
			"X-Quota-Limit", "X-Quota-Used", "X-Quota-Remaining",
			"X-RateLimit-Remaining", "X-RateLimit-Reset",
			"X-Model-ID", "X-Provider",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
