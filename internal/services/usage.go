package services

import (
	"time"

	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"gorm.io/gorm"
)

// UsageService records per-request generation telemetry and serves the
// aggregate views. Recording is best-effort off the request path: a failed
// insert is handed to the retry queue instead of failing the response.
type UsageService struct {
	db    *gorm.DB
	queue *TaskQueueService // nil = no retry, failures are only logged
}

func NewUsageService(db *gorm.DB, queue *TaskQueueService) *UsageService {
	return &UsageService{db: db, queue: queue}
}

// Record persists one telemetry row. Call from a goroutine; the generation
// response never waits on telemetry.
func (s *UsageService) Record(entry *models.GenerationLog) {
	if err := s.db.Create(entry).Error; err != nil {
		logger.Warnf("[Usage] telemetry insert failed, queueing retry: %v", err)
		if s.queue != nil {
			s.queue.EnqueueUsageRetry(entry)
		}
	}
}

// ProviderStats is the per-provider slice of the usage aggregates.
type ProviderStats struct {
	Provider         string  `json:"provider"`
	Requests         int64   `json:"requests"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCostUsd float64 `json:"estimated_cost_usd"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
}

// UsageStats aggregates a user's generation telemetry over a window.
type UsageStats struct {
	TotalRequests    int64           `json:"total_requests"`
	SuccessCount     int64           `json:"success_count"`
	CacheHits        int64           `json:"cache_hits"`
	TotalTokens      int64           `json:"total_tokens"`
	EstimatedCostUsd float64         `json:"estimated_cost_usd"`
	AvgLatencyMs     float64         `json:"avg_latency_ms"`
	ByProvider       []ProviderStats `json:"by_provider"`
	Since            time.Time       `json:"since"`
}

// GetStats aggregates the user's telemetry since the cutoff. userID 0
// aggregates across all users (admin view).
func (s *UsageService) GetStats(userID uint, since time.Time) (*UsageStats, error) {
	base := s.db.Model(&models.GenerationLog{}).Where("created_at >= ?", since)
	if userID != 0 {
		base = base.Where("user_id = ?", userID)
	}

	stats := &UsageStats{Since: since}

	type totalsRow struct {
		Requests  int64
		Successes int64
		CacheHits int64
		Tokens    int64
		Cost      float64
		Latency   float64
	}
	var totals totalsRow
	err := base.Session(&gorm.Session{}).
		Select(`COUNT(*) AS requests,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) AS successes,
			SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END) AS cache_hits,
			COALESCE(SUM(total_tokens), 0) AS tokens,
			COALESCE(SUM(estimated_cost_usd), 0) AS cost,
			COALESCE(AVG(latency_ms), 0) AS latency`).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	stats.TotalRequests = totals.Requests
	stats.SuccessCount = totals.Successes
	stats.CacheHits = totals.CacheHits
	stats.TotalTokens = totals.Tokens
	stats.EstimatedCostUsd = totals.Cost
	stats.AvgLatencyMs = totals.Latency

	err = base.Session(&gorm.Session{}).
		Select(`provider,
			COUNT(*) AS requests,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(estimated_cost_usd), 0) AS estimated_cost_usd,
			COALESCE(AVG(latency_ms), 0) AS avg_latency_ms`).
		Group("provider").
		Order("requests DESC").
		Scan(&stats.ByProvider).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// CleanupBefore deletes telemetry older than the cutoff and returns the
// number of rows removed. Driven by the retention scheduler.
func (s *UsageService) CleanupBefore(cutoff time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.GenerationLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
