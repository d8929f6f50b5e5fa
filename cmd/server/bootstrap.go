package main

import (
	"context"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/handlers"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/internal/utils"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds the wired service graph and the handlers the routes
// attach to.
type appServices struct {
	redisClient *redis.Client
	taskQueue   *services.TaskQueueService
	worker      *services.Worker
	maintenance *services.MaintenanceScheduler

	authHandler     *handlers.AuthHandler
	generateHandler *handlers.GenerateHandler
	reviewHandler   *handlers.ReviewHandler
	materialHandler *handlers.MaterialHandler
	modelHandler    *handlers.LLMModelHandler
	usageHandler    *handlers.UsageHandler
	healthHandler   *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, redis,
// services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	// Redis is optional; everything it backs degrades without it.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, cache and shared rate limits disabled")
			redisClient = nil
		}
	}

	persistence := services.NewPersistenceService(db)

	taskQueue := services.NewTaskQueueService(&cfg.Redis)
	var worker *services.Worker
	if taskQueue != nil {
		worker = services.NewWorker(&cfg.Redis, db, persistence)
		worker.Start()
	}

	quotaService := services.NewQuotaService(db, &cfg.Gateway)
	rateLimiter := services.NewRateLimiterService(redisClient, cfg.Gateway.UserRatePerMinute, cfg.Gateway.IPRatePerMinute)
	materialService := services.NewMaterialService(db)
	registry := services.NewModelRegistryService(db)
	router := services.NewModelRouter(registry, cfg.Routing)
	cache := services.NewSemanticCache(redisClient, cfg.Gateway.PromptVersion,
		time.Duration(cfg.Gateway.CacheTTLSeconds)*time.Second)
	strategies := services.NewStrategyFactory(&cfg.Providers)
	usageService := services.NewUsageService(db, taskQueue)

	gateway := services.NewGatewayService(cfg, quotaService, rateLimiter, materialService,
		registry, router, cache, strategies, persistence, usageService, taskQueue)

	reviewService := services.NewReviewService(db, cfg.Scheduler)
	authService := services.NewAuthService(db, &cfg.JWT)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	maintenance := services.NewMaintenanceScheduler(usageService, quotaService)
	if err := maintenance.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start maintenance scheduler")
	}

	return &appServices{
		redisClient: redisClient,
		taskQueue:   taskQueue,
		worker:      worker,
		maintenance: maintenance,

		authHandler:     handlers.NewAuthHandler(authService),
		generateHandler: handlers.NewGenerateHandler(gateway),
		reviewHandler:   handlers.NewReviewHandler(reviewService),
		materialHandler: handlers.NewMaterialHandler(materialService),
		modelHandler:    handlers.NewLLMModelHandler(registry, cache),
		usageHandler:    handlers.NewUsageHandler(usageService, quotaService),
		healthHandler:   handlers.NewHealthHandler(redisClient),
	}
}

// shutdown gracefully stops all background services.
func (s *appServices) shutdown() {
	s.maintenance.Stop()
	s.worker.Stop()
	if err := s.taskQueue.Close(); err != nil {
		logger.Warn().Err(err).Msg("Task queue close failed")
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("Redis close failed")
		}
	}
}
