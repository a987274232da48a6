package scheduler

import (
	"context"
	"time"

	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	deadlineJob     = "funding_deadline"
	deadlineTimeout = 2 * time.Minute
)

// FundingDeadlineScheduler closes active businesses whose funding period has
// elapsed.
type FundingDeadlineScheduler struct {
	cron      *cron.Cron
	spec      string
	lifecycle service.LifecycleManager
	notifier  service.FundingNotifier
}

func NewFundingDeadlineScheduler(spec string, lifecycle service.LifecycleManager, notifier service.FundingNotifier) *FundingDeadlineScheduler {
	return &FundingDeadlineScheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		spec:      spec,
		lifecycle: lifecycle,
		notifier:  notifier,
	}
}

func (s *FundingDeadlineScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), deadlineTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for funding deadlines", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Funding deadline scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce performs a single sweep and returns how many businesses closed.
func (s *FundingDeadlineScheduler) RunOnce(ctx context.Context) int {
	logger.Info("Starting funding deadline sweep", nil)

	closed, err := s.lifecycle.CloseExpired(ctx)
	for _, result := range closed {
		if s.notifier != nil {
			s.notifier.PublishFunding(service.StatusUpdate(result.Business, time.Now().UTC()))
		}
	}

	if err != nil {
		metrics.IncSchedulerRun(deadlineJob, metrics.ResultError)
		logger.Error("Funding deadline sweep finished with errors", err, map[string]interface{}{
			"closed": len(closed),
		})
		return len(closed)
	}

	metrics.IncSchedulerRun(deadlineJob, metrics.ResultSuccess)
	logger.Info("Funding deadline sweep finished", map[string]interface{}{
		"closed": len(closed),
	})
	return len(closed)
}

// Stop waits for a running sweep to finish.
func (s *FundingDeadlineScheduler) Stop() {
	logger.Info("Stopping funding deadline scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Funding deadline scheduler stopped", nil)
}
