package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu      sync.Mutex
	updates []service.FundingUpdate
}

func (n *captureNotifier) PublishFunding(update service.FundingUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func seedActive(t *testing.T, repo repository.BusinessRepository, name string, closesAt time.Time) *model.Business {
	activated := closesAt.AddDate(0, -6, 0)
	business := &model.Business{
		OwnerID:            "owner-1",
		Name:               name,
		Category:           "Technology",
		Description:        "Scheduler fixture business",
		FundingGoal:        model.MustParseMoney("5000.00"),
		Status:             model.BusinessStatusActive,
		RiskLevel:          model.RiskLow,
		ROIPercentage:      decimal.NewFromInt(8),
		DurationMonths:     6,
		ListingFeePaid:     true,
		VerificationStatus: model.VerificationApproved,
		ActivatedAt:        &activated,
		ClosesAt:           &closesAt,
	}
	require.NoError(t, repo.Create(context.Background(), business))
	return business
}

func TestFundingDeadlineScheduler_RunOnce(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	businessRepo := repository.NewBusinessRepository(testDB)
	investmentRepo := repository.NewInvestmentRepository(testDB)
	lifecycle := service.NewLifecycleManager(testDB, businessRepo, investmentRepo, clock.NewFakeClock(now))

	expired := seedActive(t, businessRepo, "Expired Kiosk", now.Add(-time.Hour))
	running := seedActive(t, businessRepo, "Running Kiosk", now.Add(24*time.Hour))

	notifier := &captureNotifier{}
	s := NewFundingDeadlineScheduler("@every 1h", lifecycle, notifier)

	closed := s.RunOnce(context.Background())
	assert.Equal(t, 1, closed)

	got, err := businessRepo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusClosed, got.Status)

	got, err = businessRepo.FindByID(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusActive, got.Status)

	require.Len(t, notifier.updates, 1)
	assert.Equal(t, "status", notifier.updates[0].Type)
	assert.Equal(t, expired.ID, notifier.updates[0].BusinessID)
	assert.Equal(t, model.BusinessStatusClosed, notifier.updates[0].Status)

	// a second sweep finds nothing left to close
	assert.Equal(t, 0, s.RunOnce(context.Background()))
}

func TestFundingDeadlineScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewFundingDeadlineScheduler("not a cron spec", nil, nil)
	assert.Error(t, s.Start())
}

func TestFundingDeadlineScheduler_StartStop(t *testing.T) {
	s := NewFundingDeadlineScheduler("@every 1h", nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
