package models

import (
	"fmt"

	"github.com/memodeck/memodeck/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Subscription{},
		&Folder{},
		&Material{},
		&Flashcard{},
		&QuizQuestion{},
		&Review{},
		&LLMModel{},
		&GenerationLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData seeds the model catalogue if it is empty. Costs are USD
// per million tokens; priority 1 is preferred.
func SeedDefaultData() error {
	var modelCount int64
	DB.Model(&LLMModel{}).Count(&modelCount)
	if modelCount > 0 {
		return nil
	}

	catalogue := []LLMModel{
		{
			ModelID:         "gpt-4o-mini",
			Name:            "GPT-4o mini",
			Provider:        "openai",
			Capabilities:    "text,multimodal",
			InputCostPer1M:  0.15,
			OutputCostPer1M: 0.60,
			Priority:        1,
			LatencyBudgetMs: 8000,
		},
		{
			ModelID:         "gpt-4o",
			Name:            "GPT-4o",
			Provider:        "openai",
			Capabilities:    "text,multimodal,reasoning",
			InputCostPer1M:  2.50,
			OutputCostPer1M: 10.00,
			Priority:        3,
			LatencyBudgetMs: 12000,
		},
		{
			ModelID:         "claude-3-5-haiku-latest",
			Name:            "Claude 3.5 Haiku",
			Provider:        "anthropic",
			Capabilities:    "text",
			InputCostPer1M:  0.80,
			OutputCostPer1M: 4.00,
			Priority:        2,
			LatencyBudgetMs: 8000,
		},
		{
			ModelID:         "claude-sonnet-4-20250514",
			Name:            "Claude Sonnet 4",
			Provider:        "anthropic",
			Capabilities:    "text,multimodal,reasoning",
			InputCostPer1M:  3.00,
			OutputCostPer1M: 15.00,
			Priority:        4,
			LatencyBudgetMs: 15000,
		},
		{
			ModelID:         "gemini-2.0-flash",
			Name:            "Gemini 2.0 Flash",
			Provider:        "gemini",
			Capabilities:    "text,multimodal",
			InputCostPer1M:  0.10,
			OutputCostPer1M: 0.40,
			Priority:        2,
			LatencyBudgetMs: 8000,
		},
		{
			ModelID:         "llama3",
			Name:            "Llama 3 (local)",
			Provider:        "ollama",
			Capabilities:    "text",
			InputCostPer1M:  0,
			OutputCostPer1M: 0,
			Priority:        8,
			LatencyBudgetMs: 20000,
		},
	}

	for _, m := range catalogue {
		if err := DB.Create(&m).Error; err != nil {
			return err
		}
	}

	return nil
}
