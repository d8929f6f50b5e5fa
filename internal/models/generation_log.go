package models

import "time"

// GenerationLog records each gateway request for cost and usage tracking.
type GenerationLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RequestID        string    `gorm:"size:40;index" json:"request_id"`
	UserID           uint      `gorm:"index" json:"user_id"`
	ModelID          string    `gorm:"size:100;index" json:"model_id"`
	Provider         string    `gorm:"size:50" json:"provider"`
	Task             string    `gorm:"size:20" json:"task"` // flashcards, quiz
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	EstimatedCostUsd float64   `json:"estimated_cost_usd"`
	LatencyMs        int64     `json:"latency_ms"`
	CacheHit         bool      `json:"cache_hit"`
	ItemCount        int       `json:"item_count"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `gorm:"size:500" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (GenerationLog) TableName() string { return "generation_logs" }
