package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListingFees is the fee schedule per business tier.
type ListingFees map[model.BusinessTier]model.Money

// FeesFromConfig converts the configured tier fees to minor units.
func FeesFromConfig(cfg config.LedgerConfig) (ListingFees, error) {
	fees := make(ListingFees, len(cfg.ListingFees))
	for tier, amount := range cfg.ListingFees {
		t := model.BusinessTier(strings.ToLower(tier))
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown business tier %q in listing fees", tier)
		}
		fee, err := model.MoneyFromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("listing fee for %s: %w", tier, err)
		}
		fees[t] = fee
	}
	return fees, nil
}

type FeeQuote struct {
	BusinessID         string             `json:"business_id"`
	Tier               model.BusinessTier `json:"business_tier"`
	BaseFee            model.Money        `json:"base_fee"`
	PromoCode          *string            `json:"promo_code,omitempty"`
	DiscountPercentage decimal.Decimal    `json:"discount_percentage"`
	Discount           model.Money        `json:"discount"`
	Amount             model.Money        `json:"amount"`
}

type PayListingFeeInput struct {
	PromoCode        *string `json:"promo_code"`
	PaymentReference string  `json:"payment_reference"`
}

type FeePayment struct {
	Quote     FeeQuote        `json:"quote"`
	Business  *model.Business `json:"business"`
	Activated bool            `json:"activated"`
}

type ListingFeeService interface {
	Quote(ctx context.Context, actor Actor, businessID string, promoCode *string) (*FeeQuote, error)
	PayListingFee(ctx context.Context, actor Actor, businessID string, input PayListingFeeInput) (*FeePayment, error)
}

type listingFeeService struct {
	db           *gorm.DB
	businessRepo repository.BusinessRepository
	promoRepo    repository.PromoCodeRepository
	redeemer     PromoCodeRedeemer
	lifecycle    LifecycleManager
	notifier     FundingNotifier
	fees         ListingFees
	clock        clock.Clock
}

func NewListingFeeService(
	db *gorm.DB,
	businessRepo repository.BusinessRepository,
	promoRepo repository.PromoCodeRepository,
	redeemer PromoCodeRedeemer,
	lifecycle LifecycleManager,
	notifier FundingNotifier,
	fees ListingFees,
	clk clock.Clock,
) ListingFeeService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &listingFeeService{
		db:           db,
		businessRepo: businessRepo,
		promoRepo:    promoRepo,
		redeemer:     redeemer,
		lifecycle:    lifecycle,
		notifier:     notifier,
		fees:         fees,
		clock:        clk,
	}
}

func (s *listingFeeService) quote(business *model.Business, code *string, pct decimal.Decimal) FeeQuote {
	base := s.fees[business.BusinessTier]
	discount := base.Percent(pct)
	return FeeQuote{
		BusinessID:         business.ID,
		Tier:               business.BusinessTier,
		BaseFee:            base,
		PromoCode:          code,
		DiscountPercentage: pct,
		Discount:           discount,
		Amount:             base - discount,
	}
}

func (s *listingFeeService) loadPayable(ctx context.Context, actor Actor, businessID string) (*model.Business, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	if !canManage(actor, business) {
		return nil, ErrForbidden
	}
	return business, checkPayable(business)
}

func checkPayable(business *model.Business) error {
	if business.ListingFeePaid {
		return ErrListingFeeAlreadyPaid
	}
	if business.Status != model.BusinessStatusDraft && business.Status != model.BusinessStatusPendingVerification {
		return ErrIllegalTransition.WithMessage("listing fee cannot be paid for a %s business", business.Status)
	}
	return nil
}

// Quote prices the listing fee without consuming the promo code.
func (s *listingFeeService) Quote(ctx context.Context, actor Actor, businessID string, promoCode *string) (*FeeQuote, error) {
	business, err := s.loadPayable(ctx, actor, businessID)
	if err != nil {
		return nil, err
	}

	pct := decimal.Zero
	var code *string
	if promoCode != nil && strings.TrimSpace(*promoCode) != "" {
		promo, err := s.promoRepo.FindByCode(ctx, *promoCode)
		if err != nil {
			return nil, storeError(err, ErrPromoCodeNotFound)
		}
		switch {
		case !promo.IsActive:
			return nil, ErrCodeInactive
		case !promo.InWindow(s.clock.Now()):
			return nil, ErrCodeExpired
		case promo.Exhausted():
			return nil, ErrCodeExhausted
		}
		pct = promo.DiscountPercentage
		code = &promo.Code
	}

	quote := s.quote(business, code, pct)
	return &quote, nil
}

// PayListingFee records the fee payment. A promo code is redeemed first and
// stays consumed if the payment write fails. When verification is already
// approved the business is activated in the same transaction.
func (s *listingFeeService) PayListingFee(ctx context.Context, actor Actor, businessID string, input PayListingFeeInput) (*FeePayment, error) {
	if _, err := s.loadPayable(ctx, actor, businessID); err != nil {
		return nil, err
	}

	pct := decimal.Zero
	var code *string
	if input.PromoCode != nil && strings.TrimSpace(*input.PromoCode) != "" {
		applied, err := s.redeemer.Redeem(ctx, *input.PromoCode, businessID)
		if err != nil {
			return nil, err
		}
		pct = applied.DiscountPercentage
		code = &applied.Code
	}

	var payment *FeePayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		businessRepo := s.businessRepo.WithTx(tx)

		business, err := businessRepo.FindByIDForUpdate(ctx, businessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		if err := checkPayable(business); err != nil {
			return err
		}

		quote := s.quote(business, code, pct)
		if err := businessRepo.UpdateFields(ctx, businessID, map[string]interface{}{
			"listing_fee_paid":   true,
			"listing_fee_amount": int64(quote.Amount),
			"payment_reference":  strings.TrimSpace(input.PaymentReference),
		}); err != nil {
			return storeError(err, nil)
		}

		payment = &FeePayment{Quote: quote}
		if business.Status == model.BusinessStatusPendingVerification && business.VerificationStatus == model.VerificationApproved {
			result, err := s.lifecycle.ApplyTx(ctx, tx, businessID, EventApprove)
			if err != nil {
				return err
			}
			payment.Business = result.Business
			payment.Activated = result.Changed
			return nil
		}

		updated, err := businessRepo.FindByID(ctx, businessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		payment.Business = updated
		return nil
	})
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}

	if payment.Activated {
		s.notifier.PublishFunding(updateFromBusiness("status", payment.Business, s.clock.Now()))
	}
	logger.Info("Listing fee paid", map[string]interface{}{
		"business_id": businessID,
		"amount":      payment.Quote.Amount.String(),
		"promo_code":  code,
		"activated":   payment.Activated,
	})
	return payment, nil
}
