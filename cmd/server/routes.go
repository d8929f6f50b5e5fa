package main

import (
	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/middleware"
	"github.com/memodeck/memodeck/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())

	// Coarse abuse guard across the whole surface. The gateway applies its
	// own per-user fixed-window limiter on top.
	r.Use(middleware.RateLimit(50, 100))

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		api.GET("/health", svc.healthHandler.CheckHealth)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/register", svc.authHandler.Register)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)

			// Generation gateway
			protected.POST("/generate", svc.generateHandler.Generate)

			// Spaced repetition
			protected.POST("/reviews/:flashcard_id/grade", svc.reviewHandler.Grade)
			protected.GET("/reviews/due", svc.reviewHandler.ListDue)
			protected.GET("/reviews/stats", svc.reviewHandler.Stats)

			// Folders and materials
			protected.POST("/folders", svc.materialHandler.CreateFolder)
			protected.GET("/folders", svc.materialHandler.ListFolders)
			protected.GET("/folders/:folder_id/materials", svc.materialHandler.ListMaterials)
			protected.POST("/materials", svc.materialHandler.CreateMaterial)

			// Usage
			protected.GET("/usage/stats", svc.usageHandler.GetStats)
			protected.GET("/usage/subscription", svc.usageHandler.GetSubscription)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/llm-models", svc.modelHandler.List)
			admin.POST("/llm-models", svc.modelHandler.Create)
			admin.PUT("/llm-models/:model_id", svc.modelHandler.Update)
			admin.DELETE("/llm-models/:model_id", svc.modelHandler.Delete)
			admin.POST("/cache/invalidate", svc.modelHandler.InvalidateCache)
		}
	}
}
