package service

import (
	"context"
	"testing"

	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeesFromConfig(t *testing.T) {
	fees, err := FeesFromConfig(config.DefaultLedger())
	require.NoError(t, err)
	assert.Equal(t, money("99.00"), fees[model.TierBasic])
	assert.Equal(t, money("249.00"), fees[model.TierGrowth])
	assert.Equal(t, money("499.00"), fees[model.TierPremium])

	_, err = FeesFromConfig(config.LedgerConfig{ListingFees: map[string]decimal.Decimal{"gold": decimal.NewFromInt(1)}})
	assert.Error(t, err)
}

func TestListingFeeService_QuoteDoesNotConsumeCode(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")
	f.seedPromo(t, "HALFOFF", 50, intPtr(1))

	quote, err := f.fees.Quote(ctx, ownerActor, business.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, money("99.00"), quote.Amount)
	assert.Nil(t, quote.PromoCode)

	quote, err = f.fees.Quote(ctx, ownerActor, business.ID, strPtr("halfoff"))
	require.NoError(t, err)
	assert.Equal(t, money("99.00"), quote.BaseFee)
	assert.Equal(t, money("49.50"), quote.Discount)
	assert.Equal(t, money("49.50"), quote.Amount)
	require.NotNil(t, quote.PromoCode)
	assert.Equal(t, "HALFOFF", *quote.PromoCode)

	promo, err := f.promoRepo.FindByCode(ctx, "HALFOFF")
	require.NoError(t, err)
	assert.Zero(t, promo.CurrentUses)

	_, err = f.fees.Quote(ctx, ownerActor, business.ID, strPtr("UNKNOWN"))
	assert.ErrorIs(t, err, ErrPromoCodeNotFound)
}

func TestListingFeeService_PayWithPromoCode(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	business := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")
	require.NoError(t, f.businessRepo.UpdateFields(ctx, business.ID, map[string]interface{}{"business_tier": model.TierGrowth}))
	f.seedPromo(t, "GROW20", 20, intPtr(1))

	payment, err := f.fees.PayListingFee(ctx, ownerActor, business.ID, PayListingFeeInput{
		PromoCode:        strPtr("grow20"),
		PaymentReference: "pay_789",
	})
	require.NoError(t, err)
	assert.False(t, payment.Activated)
	assert.Equal(t, money("249.00"), payment.Quote.BaseFee)
	assert.Equal(t, money("199.20"), payment.Quote.Amount)

	updated := f.reload(t, business.ID)
	assert.True(t, updated.ListingFeePaid)
	assert.Equal(t, money("199.20"), updated.ListingFeeAmount)
	assert.Equal(t, "pay_789", updated.PaymentReference)
	require.NotNil(t, updated.PromoCodeUsed)
	assert.Equal(t, "GROW20", *updated.PromoCodeUsed)
	assert.Equal(t, model.BusinessStatusDraft, updated.Status)

	_, err = f.fees.PayListingFee(ctx, ownerActor, business.ID, PayListingFeeInput{PaymentReference: "pay_again"})
	assert.ErrorIs(t, err, ErrListingFeeAlreadyPaid)
}

func TestListingFeeService_PayRejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	draft := f.seedBusiness(t, model.BusinessStatusDraft, "1000.00", "0.00")
	closed := f.seedBusiness(t, model.BusinessStatusClosed, "1000.00", "0.00")
	f.seedPromo(t, "ONCE", 10, intPtr(1))

	_, err := f.fees.PayListingFee(ctx, Actor{ID: investorA, Role: "user"}, draft.ID, PayListingFeeInput{PromoCode: strPtr("ONCE")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.fees.PayListingFee(ctx, ownerActor, closed.ID, PayListingFeeInput{PromoCode: strPtr("ONCE")})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	promo, err := f.promoRepo.FindByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Zero(t, promo.CurrentUses)

	_, err = f.fees.PayListingFee(ctx, ownerActor, "missing", PayListingFeeInput{})
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestListingFeeService_FullOnboarding(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	business, err := f.businesses.CreateBusiness(ctx, ownerID, validBusinessInput())
	require.NoError(t, err)

	_, err = f.verifications.Submit(ctx, ownerActor, business.ID, SubmitVerificationInput{
		DocumentType: model.DocumentIdentity,
		DocumentRef:  "verifications/id.png",
	})
	require.NoError(t, err)
	_, err = f.verifications.Review(ctx, adminActor, business.ID, ReviewVerificationInput{Decision: DecisionApprove})
	require.NoError(t, err)

	_, err = f.investments.Invest(ctx, InvestRequest{BusinessID: business.ID, InvestorID: investorA, Amount: money("100.00")})
	assert.ErrorIs(t, err, ErrNotInvestable)

	payment, err := f.fees.PayListingFee(ctx, ownerActor, business.ID, PayListingFeeInput{PaymentReference: "pay_001"})
	require.NoError(t, err)
	require.True(t, payment.Activated)

	result, err := f.investments.Invest(ctx, InvestRequest{BusinessID: business.ID, InvestorID: investorA, Amount: money("25000.00")})
	require.NoError(t, err)
	assert.Equal(t, model.BusinessStatusFunded, result.BusinessStatus)
}
