package services

import (
	"fmt"

	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"gorm.io/gorm"
)

// New latency samples get this weight in the rolling average. Concurrent
// updates are last-write-wins; the average is an operational signal, not
// an accounting value.
const latencySampleWeight = 0.3

// ModelRegistryService is the read-mostly catalogue of model descriptors
// the router selects from. Health status is written by an external checker;
// this service only reads it.
type ModelRegistryService struct {
	db *gorm.DB
}

func NewModelRegistryService(db *gorm.DB) *ModelRegistryService {
	return &ModelRegistryService{db: db}
}

// Candidates returns enabled models that are not down, optionally filtered
// by a required capability, ordered by priority ascending.
func (s *ModelRegistryService) Candidates(requiredCapability string) ([]models.LLMModel, error) {
	var candidates []models.LLMModel
	err := s.db.
		Where("enabled = ? AND health_status IN ?", true, []string{models.HealthHealthy, models.HealthDegraded}).
		Order("priority ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	if requiredCapability == "" {
		return candidates, nil
	}

	filtered := candidates[:0]
	for _, m := range candidates {
		if m.HasCapability(requiredCapability) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// GetByModelID looks up a catalogue entry by its public model identifier.
func (s *ModelRegistryService) GetByModelID(modelID string) (*models.LLMModel, error) {
	var m models.LLMModel
	if err := s.db.Where("model_id = ?", modelID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordLatency folds one attempt's latency into the model's rolling
// average. Called after every generation attempt, success or failure.
func (s *ModelRegistryService) RecordLatency(modelID string, latencyMs int64) {
	var m models.LLMModel
	if err := s.db.Where("model_id = ?", modelID).First(&m).Error; err != nil {
		logger.Warnf("[Registry] latency update skipped, model %s not found: %v", modelID, err)
		return
	}

	avg := m.AvgLatencyMs
	if avg == 0 {
		avg = float64(latencyMs)
	} else {
		avg = avg*(1-latencySampleWeight) + float64(latencyMs)*latencySampleWeight
	}

	if err := s.db.Model(&m).Update("avg_latency_ms", avg).Error; err != nil {
		logger.Warnf("[Registry] latency update failed for %s: %v", modelID, err)
	}
}

// --- Administration ---

// ListAll returns the whole catalogue including disabled and down models.
func (s *ModelRegistryService) ListAll() ([]models.LLMModel, error) {
	var all []models.LLMModel
	if err := s.db.Order("priority ASC, model_id ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// CreateModelRequest is the admin payload for adding a catalogue entry.
type CreateModelRequest struct {
	ModelID         string  `json:"model_id" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Provider        string  `json:"provider" binding:"required"`
	Capabilities    string  `json:"capabilities"`
	InputCostPer1M  float64 `json:"input_cost_per_1m"`
	OutputCostPer1M float64 `json:"output_cost_per_1m"`
	Priority        int     `json:"priority"`
	LatencyBudgetMs float64 `json:"latency_budget_ms"`
}

func (s *ModelRegistryService) Create(req *CreateModelRequest) (*models.LLMModel, error) {
	m := models.LLMModel{
		ModelID:         req.ModelID,
		Name:            req.Name,
		Provider:        req.Provider,
		Capabilities:    req.Capabilities,
		InputCostPer1M:  req.InputCostPer1M,
		OutputCostPer1M: req.OutputCostPer1M,
		Priority:        req.Priority,
		LatencyBudgetMs: req.LatencyBudgetMs,
		HealthStatus:    models.HealthHealthy,
		Enabled:         true,
	}
	if m.Capabilities == "" {
		m.Capabilities = models.CapabilityText
	}
	if m.Priority == 0 {
		m.Priority = 5
	}
	if m.LatencyBudgetMs == 0 {
		m.LatencyBudgetMs = 10000
	}

	if err := s.db.Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return &m, nil
}

// UpdateModelRequest supports partial updates of a catalogue entry.
type UpdateModelRequest struct {
	Name            string   `json:"name"`
	Capabilities    string   `json:"capabilities"`
	InputCostPer1M  *float64 `json:"input_cost_per_1m"`
	OutputCostPer1M *float64 `json:"output_cost_per_1m"`
	Priority        *int     `json:"priority"`
	LatencyBudgetMs *float64 `json:"latency_budget_ms"`
	HealthStatus    string   `json:"health_status"`
	Enabled         *bool    `json:"enabled"`
}

func (s *ModelRegistryService) Update(modelID string, req *UpdateModelRequest) (*models.LLMModel, error) {
	m, err := s.GetByModelID(modelID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Capabilities != "" {
		updates["capabilities"] = req.Capabilities
	}
	if req.InputCostPer1M != nil {
		updates["input_cost_per_1m"] = *req.InputCostPer1M
	}
	if req.OutputCostPer1M != nil {
		updates["output_cost_per_1m"] = *req.OutputCostPer1M
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.LatencyBudgetMs != nil {
		updates["latency_budget_ms"] = *req.LatencyBudgetMs
	}
	if req.HealthStatus != "" {
		updates["health_status"] = req.HealthStatus
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	if len(updates) > 0 {
		if err := s.db.Model(m).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *ModelRegistryService) Delete(modelID string) error {
	return s.db.Where("model_id = ?", modelID).Delete(&models.LLMModel{}).Error
}
