package services

import (
	"time"

	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Telemetry rows older than this are dropped by the retention job.
const usageRetentionDays = 90

// MaintenanceScheduler runs the periodic housekeeping jobs: telemetry
// retention and subscription billing-period rollover.
type MaintenanceScheduler struct {
	cron  *cron.Cron
	usage *UsageService
	quota *QuotaService
}

func NewMaintenanceScheduler(usage *UsageService, quota *QuotaService) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:  cron.New(),
		usage: usage,
		quota: quota,
	}
}

// Start registers the jobs and begins the schedule.
func (s *MaintenanceScheduler) Start() error {
	// Telemetry retention, nightly.
	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupUsage); err != nil {
		return err
	}
	// Lapsed billing periods, hourly. Rollover also happens lazily on
	// access; this keeps idle users from accumulating stale rows.
	if _, err := s.cron.AddFunc("@hourly", s.rolloverQuotas); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("[Maintenance] scheduler started")
	return nil
}

// Stop halts the schedule and waits for running jobs.
func (s *MaintenanceScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Maintenance] scheduler stopped")
}

func (s *MaintenanceScheduler) cleanupUsage() {
	cutoff := time.Now().AddDate(0, 0, -usageRetentionDays)
	removed, err := s.usage.CleanupBefore(cutoff)
	if err != nil {
		logger.Errorf("[Maintenance] telemetry cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("[Maintenance] removed %d telemetry rows older than %s", removed, cutoff.Format("2006-01-02"))
	}
}

func (s *MaintenanceScheduler) rolloverQuotas() {
	rolled, err := s.quota.RolloverExpired()
	if err != nil {
		logger.Errorf("[Maintenance] quota rollover failed: %v", err)
		return
	}
	if rolled > 0 {
		logger.Infof("[Maintenance] rolled %d subscriptions into a new billing period", rolled)
	}
}
