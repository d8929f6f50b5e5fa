package models

import (
	"time"
)

// Subscription tiers.
const (
	TierFree       = "FREE"
	TierPro        = "PRO"
	TierEnterprise = "ENTERPRISE"
)

// Subscription tracks a user's generation quota for the current billing period.
// GenerationsUsed is incremented exactly once per fully serviced generation
// request, cache hits included.
type Subscription struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Tier             string    `gorm:"size:20;default:FREE" json:"tier"`
	GenerationsUsed  int       `gorm:"default:0" json:"generations_used"`
	GenerationsQuota int       `gorm:"default:20" json:"generations_quota"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `gorm:"index" json:"period_end"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Remaining returns the generations left in the period, never negative.
func (s *Subscription) Remaining() int {
	remaining := s.GenerationsQuota - s.GenerationsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
