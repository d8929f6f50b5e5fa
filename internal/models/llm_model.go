package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Model health states.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// Model capabilities.
const (
	CapabilityText       = "text"
	CapabilityMultimodal = "multimodal"
	CapabilityReasoning  = "reasoning"
)

// LLMModel is one entry in the model catalogue the router selects from.
// AvgLatencyMs is a rolling average updated after every generation attempt,
// success or failure. HealthStatus is maintained by an external health
// checker and only read here.
type LLMModel struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ModelID          string         `gorm:"uniqueIndex;size:100;not null" json:"model_id"`
	Name             string         `gorm:"size:100;not null" json:"name"`
	Provider         string         `gorm:"size:50;not null" json:"provider"` // openai, azure, anthropic, gemini, ollama
	Capabilities     string         `gorm:"size:200;default:text" json:"capabilities"`
	InputCostPer1M   float64        `gorm:"column:input_cost_per_1m" json:"input_cost_per_1m"`
	OutputCostPer1M  float64        `gorm:"column:output_cost_per_1m" json:"output_cost_per_1m"`
	Priority         int            `gorm:"default:5" json:"priority"` // 1-10, lower preferred
	AvgLatencyMs     float64        `json:"avg_latency_ms"`
	LatencyBudgetMs  float64        `gorm:"default:10000" json:"latency_budget_ms"`
	HealthStatus     string         `gorm:"size:20;default:healthy" json:"health_status"`
	Enabled          bool           `gorm:"default:true" json:"enabled"`
	APIKeyOverride   string         `gorm:"size:500" json:"-"`
	BaseURLOverride  string         `gorm:"size:500" json:"base_url_override"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LLMModel) TableName() string { return "llm_models" }

// HasCapability reports whether the comma-separated capability list
// contains the given tag.
func (m *LLMModel) HasCapability(capability string) bool {
	if capability == "" {
		return true
	}
	for _, c := range strings.Split(m.Capabilities, ",") {
		if strings.TrimSpace(c) == capability {
			return true
		}
	}
	return false
}
