package services

import (
	"fmt"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/memodeck/memodeck/pkg/response"
	"gorm.io/gorm"
)

// QuotaService tracks monthly generation allowances per subscription tier.
// Check admits or rejects before any provider work; Increment charges the
// quota exactly once after the request was fully serviced, cache hits
// included.
type QuotaService struct {
	db  *gorm.DB
	cfg *config.GatewayConfig
}

func NewQuotaService(db *gorm.DB, cfg *config.GatewayConfig) *QuotaService {
	return &QuotaService{db: db, cfg: cfg}
}

// tierQuota maps a tier to its configured monthly allowance.
func (s *QuotaService) tierQuota(tier string) int {
	switch tier {
	case models.TierEnterprise:
		return s.cfg.EnterpriseQuota
	case models.TierPro:
		return s.cfg.ProTierQuota
	default:
		return s.cfg.FreeTierQuota
	}
}

// GetSubscription returns the user's subscription, provisioning a FREE one
// on first use. A lapsed billing period is rolled forward with usage reset.
func (s *QuotaService) GetSubscription(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		now := time.Now()
		sub = models.Subscription{
			UserID:           userID,
			Tier:             models.TierFree,
			GenerationsQuota: s.tierQuota(models.TierFree),
			PeriodStart:      now,
			PeriodEnd:        now.AddDate(0, 1, 0),
		}
		if err := s.db.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("failed to provision subscription: %w", err)
		}
		logger.Infof("[Quota] provisioned FREE subscription for user %d", userID)
		return &sub, nil
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(sub.PeriodEnd) {
		if err := s.rollover(&sub); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}

// rollover starts a fresh billing period for an expired subscription.
func (s *QuotaService) rollover(sub *models.Subscription) error {
	now := time.Now()
	updates := map[string]interface{}{
		"generations_used":  0,
		"generations_quota": s.tierQuota(sub.Tier),
		"period_start":      now,
		"period_end":        now.AddDate(0, 1, 0),
	}
	if err := s.db.Model(sub).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to roll billing period: %w", err)
	}
	sub.GenerationsUsed = 0
	sub.GenerationsQuota = s.tierQuota(sub.Tier)
	sub.PeriodStart = now
	sub.PeriodEnd = now.AddDate(0, 1, 0)
	return nil
}

// Check admits the request when the subscription has quota left. On an
// exhausted quota it returns a payment-required error carrying the usage
// figures the client needs to render an upgrade prompt.
func (s *QuotaService) Check(userID uint) (*models.Subscription, error) {
	sub, err := s.GetSubscription(userID)
	if err != nil {
		return nil, err
	}

	if sub.Remaining() <= 0 {
		return nil, response.NewQuotaExceeded(
			fmt.Sprintf("monthly generation quota exhausted (%d/%d)", sub.GenerationsUsed, sub.GenerationsQuota),
			map[string]interface{}{
				"tier":              sub.Tier,
				"generations_used":  sub.GenerationsUsed,
				"generations_quota": sub.GenerationsQuota,
				"period_end":        sub.PeriodEnd,
			},
		)
	}
	return sub, nil
}

// Increment charges one generation against the subscription. The atomic
// column expression keeps concurrent requests from losing updates; going
// slightly over quota under heavy concurrency is accepted, the next Check
// rejects.
func (s *QuotaService) Increment(userID uint) error {
	res := s.db.Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Update("generations_used", gorm.Expr("generations_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no subscription found for user %d", userID)
	}
	return nil
}

// SetTier changes a user's tier and resets the quota to the new tier's
// allowance. Admin operation.
func (s *QuotaService) SetTier(userID uint, tier string) (*models.Subscription, error) {
	switch tier {
	case models.TierFree, models.TierPro, models.TierEnterprise:
	default:
		return nil, response.NewBadRequest(fmt.Sprintf("unknown tier %q", tier))
	}

	sub, err := s.GetSubscription(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"tier":              tier,
		"generations_quota": s.tierQuota(tier),
	}
	if err := s.db.Model(sub).Updates(updates).Error; err != nil {
		return nil, err
	}
	sub.Tier = tier
	sub.GenerationsQuota = s.tierQuota(tier)
	return sub, nil
}

// RolloverExpired advances every lapsed subscription to a fresh period.
// Called from the periodic scheduler so idle users do not keep stale rows.
func (s *QuotaService) RolloverExpired() (int, error) {
	var expired []models.Subscription
	if err := s.db.Where("period_end < ?", time.Now()).Find(&expired).Error; err != nil {
		return 0, err
	}
	rolled := 0
	for i := range expired {
		if err := s.rollover(&expired[i]); err != nil {
			logger.Warnf("[Quota] rollover failed for user %d: %v", expired[i].UserID, err)
			continue
		}
		rolled++
	}
	return rolled, nil
}
