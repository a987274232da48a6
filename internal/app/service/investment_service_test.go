package service

import (
	"context"
	"testing"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestmentService_InvestPublishesUpdate(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "0.00")

	result, err := f.investments.Invest(ctx, InvestRequest{
		BusinessID: business.ID,
		InvestorID: investorA,
		Amount:     money("250.00"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.InvestmentID)
	assert.Equal(t, money("250.00"), result.NewAmountRaised)
	assert.Equal(t, model.BusinessStatusActive, result.BusinessStatus)
	assert.Nil(t, result.DiscountPercentage)

	updates := f.notifier.all()
	require.Len(t, updates, 1)
	assert.Equal(t, "investment", updates[0].Type)
	assert.Equal(t, business.ID, updates[0].BusinessID)
	assert.Equal(t, money("250.00"), updates[0].AmountRaised)
	assert.True(t, decimal.NewFromInt(25).Equal(updates[0].ProgressPercent))
	assert.Equal(t, int64(1), updates[0].Version)
}

func TestInvestmentService_InvestWithPromoCode(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "0.00")
	f.seedPromo(t, "BACKER10", 10, intPtr(1))

	result, err := f.investments.Invest(ctx, InvestRequest{
		BusinessID: business.ID,
		InvestorID: investorA,
		Amount:     money("100.00"),
		PromoCode:  strPtr("backer10"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.DiscountPercentage)
	assert.True(t, decimal.NewFromInt(10).Equal(*result.DiscountPercentage))

	investment, err := f.investmentRepo.FindByID(ctx, result.InvestmentID)
	require.NoError(t, err)
	require.NotNil(t, investment.PromoCode)
	assert.Equal(t, "BACKER10", *investment.PromoCode)

	_, err = f.investments.Invest(ctx, InvestRequest{
		BusinessID: business.ID,
		InvestorID: investorB,
		Amount:     money("100.00"),
		PromoCode:  strPtr("BACKER10"),
	})
	assert.ErrorIs(t, err, ErrCodeExhausted)
	assert.Equal(t, money("100.00"), f.reload(t, business.ID).AmountRaised)
}

func TestInvestmentService_RedemptionSurvivesFailedInvestment(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "950.00")
	f.seedPromo(t, "STICKY", 5, intPtr(3))

	_, err := f.investments.Invest(ctx, InvestRequest{
		BusinessID: business.ID,
		InvestorID: investorA,
		Amount:     money("100.00"),
		PromoCode:  strPtr("STICKY"),
	})
	assert.ErrorIs(t, err, ErrFundingGoalExceeded)

	promo, err := f.promoRepo.FindByCode(ctx, "STICKY")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.CurrentUses)
	assert.Equal(t, money("950.00"), f.reload(t, business.ID).AmountRaised)
}

func TestInvestmentService_GuardRunsBeforeRedemption(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "0.00")
	f.seedPromo(t, "GUARDED", 5, intPtr(1))

	_, err := f.investments.Invest(ctx, InvestRequest{
		BusinessID: business.ID,
		InvestorID: ownerID,
		Amount:     money("100.00"),
		PromoCode:  strPtr("GUARDED"),
	})
	assert.ErrorIs(t, err, ErrSelfInvestment)

	promo, err := f.promoRepo.FindByCode(ctx, "GUARDED")
	require.NoError(t, err)
	assert.Zero(t, promo.CurrentUses)
}

func TestInvestmentService_InvestValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.investments.Invest(ctx, InvestRequest{InvestorID: investorA, Amount: money("10.00")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.investments.Invest(ctx, InvestRequest{BusinessID: "missing", InvestorID: investorA, Amount: money("10.00")})
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	_, err = f.investments.Invest(ctx, InvestRequest{BusinessID: "missing", Amount: money("10.00")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestInvestmentService_RefundAndPortfolio(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	bakery := f.seedBusiness(t, model.BusinessStatusActive, "1000.00", "0.00")
	solar := f.seedBusiness(t, model.BusinessStatusActive, "2000.00", "0.00")

	first, err := f.investments.Invest(ctx, InvestRequest{BusinessID: bakery.ID, InvestorID: investorA, Amount: money("100.00")})
	require.NoError(t, err)
	_, err = f.investments.Invest(ctx, InvestRequest{BusinessID: solar.ID, InvestorID: investorA, Amount: money("400.00")})
	require.NoError(t, err)

	record, err := f.investments.Refund(ctx, first.InvestmentID)
	require.NoError(t, err)
	assert.Equal(t, model.Money(0), record.NewAmountRaised)

	updates := f.notifier.all()
	require.Len(t, updates, 3)
	assert.Equal(t, "refund", updates[2].Type)

	portfolio, err := f.investments.GetPortfolio(ctx, investorA)
	require.NoError(t, err)
	require.Len(t, portfolio.Investments, 2)
	assert.Equal(t, money("400.00"), portfolio.Totals.TotalInvested)
	assert.Equal(t, int64(1), portfolio.Totals.ActiveCount)
	for _, entry := range portfolio.Investments {
		assert.Equal(t, entry.BusinessID, entry.BusinessSummary.ID)
		assert.NotEmpty(t, entry.BusinessSummary.Name)
	}

	empty, err := f.investments.GetPortfolio(ctx, investorB)
	require.NoError(t, err)
	assert.Empty(t, empty.Investments)
	assert.Equal(t, model.Money(0), empty.Totals.TotalInvested)
}

func TestInvestmentService_FundingSnapshot(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusActive, "800.00", "200.00")

	snapshot, err := f.investments.FundingSnapshot(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", snapshot.Type)
	assert.Equal(t, money("200.00"), snapshot.AmountRaised)
	assert.True(t, decimal.NewFromInt(25).Equal(snapshot.ProgressPercent))

	_, err = f.investments.FundingSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}
