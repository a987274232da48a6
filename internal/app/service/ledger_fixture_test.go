package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	ownerID    = "owner-1"
	investorA  = "investor-a"
	investorB  = "investor-b"
	adminID    = "admin-1"
	testPeriod = 6
)

var fixtureNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []FundingUpdate
}

func (n *recordingNotifier) PublishFunding(update FundingUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func (n *recordingNotifier) all() []FundingUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]FundingUpdate(nil), n.updates...)
}

type ledgerFixture struct {
	db               *gorm.DB
	clock            *clock.FakeClock
	notifier         *recordingNotifier
	businessRepo     repository.BusinessRepository
	investmentRepo   repository.InvestmentRepository
	promoRepo        repository.PromoCodeRepository
	verificationRepo repository.VerificationRepository
	lifecycle        LifecycleManager
	guard            *InvestmentGuard
	accumulator      FundingAccumulator
	redeemer         PromoCodeRedeemer
	investments      InvestmentService
	businesses       BusinessService
	verifications    VerificationService
	fees             ListingFeeService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	return newLedgerFixtureWithTolerance(t, 0)
}

func newLedgerFixtureWithTolerance(t *testing.T, tolerance model.Money) *ledgerFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &ledgerFixture{
		db:               testDB,
		clock:            clock.NewFakeClock(fixtureNow),
		notifier:         &recordingNotifier{},
		businessRepo:     repository.NewBusinessRepository(testDB),
		investmentRepo:   repository.NewInvestmentRepository(testDB),
		promoRepo:        repository.NewPromoCodeRepository(testDB),
		verificationRepo: repository.NewVerificationRepository(testDB),
	}
	f.lifecycle = NewLifecycleManager(testDB, f.businessRepo, f.investmentRepo, f.clock)
	f.guard = NewInvestmentGuard(InvestmentLimits{Min: model.MustParseMoney("1.00")})
	f.accumulator = NewFundingAccumulator(testDB, f.businessRepo, f.investmentRepo, f.lifecycle, f.guard,
		AccumulatorOptions{Tolerance: tolerance, Timeout: 5 * time.Second}, f.clock)
	f.redeemer = NewPromoCodeRedeemer(testDB, f.promoRepo, f.businessRepo, f.clock, 5*time.Second)
	f.investments = NewInvestmentService(f.businessRepo, f.investmentRepo, f.guard, f.redeemer, f.accumulator, f.notifier, f.clock)
	f.businesses = NewBusinessService(f.businessRepo, f.investmentRepo, f.lifecycle, f.notifier, model.MustParseMoney("1000.00"))
	f.verifications = NewVerificationService(testDB, f.businessRepo, f.verificationRepo, f.lifecycle, f.notifier, f.clock)
	f.fees = NewListingFeeService(testDB, f.businessRepo, f.promoRepo, f.redeemer, f.lifecycle, f.notifier, ListingFees{
		model.TierBasic:   model.MustParseMoney("99.00"),
		model.TierGrowth:  model.MustParseMoney("249.00"),
		model.TierPremium: model.MustParseMoney("499.00"),
	}, f.clock)
	return f
}

// seedBusiness inserts a business directly in the given state.
func (f *ledgerFixture) seedBusiness(t *testing.T, status model.BusinessStatus, goal, raised string) *model.Business {
	t.Helper()

	business := &model.Business{
		OwnerID:        ownerID,
		Name:           "Corner Bakery",
		Category:       "Food & Beverage",
		Description:    "Neighbourhood bakery expanding to a second location",
		FundingGoal:    model.MustParseMoney(goal),
		AmountRaised:   model.MustParseMoney(raised),
		Status:         status,
		RiskLevel:      model.RiskMedium,
		ROIPercentage:  decimal.NewFromInt(12),
		DurationMonths: testPeriod,
		BusinessTier:   model.TierBasic,
	}
	if status == model.BusinessStatusActive {
		closes := fixtureNow.AddDate(0, testPeriod, 0)
		business.ActivatedAt = &fixtureNow
		business.ClosesAt = &closes
		business.ListingFeePaid = true
		business.VerificationStatus = model.VerificationApproved
	}
	require.NoError(t, f.businessRepo.Create(context.Background(), business))
	return business
}

func (f *ledgerFixture) seedPromo(t *testing.T, code string, pct int64, maxUses *int) *model.PromoCode {
	t.Helper()

	promo := &model.PromoCode{
		Code:               code,
		DiscountPercentage: decimal.NewFromInt(pct),
		MaxUses:            maxUses,
		IsActive:           true,
	}
	require.NoError(t, f.promoRepo.Create(context.Background(), promo))
	return promo
}

func (f *ledgerFixture) reload(t *testing.T, id string) *model.Business {
	t.Helper()
	business, err := f.businessRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return business
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func money(s string) model.Money {
	return model.MustParseMoney(s)
}
