package service

import (
	"context"
	"errors"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvestRequest struct {
	BusinessID string
	InvestorID string
	Amount     model.Money
	PromoCode  *string
}

type InvestResult struct {
	InvestmentID       string               `json:"investment_id"`
	NewAmountRaised    model.Money          `json:"new_amount_raised"`
	BusinessStatus     model.BusinessStatus `json:"business_status"`
	DiscountPercentage *decimal.Decimal     `json:"discount_percentage,omitempty"`
}

type Portfolio struct {
	Investments []model.PortfolioEntry `json:"investments"`
	Totals      model.PortfolioTotals  `json:"totals"`
}

type InvestmentService interface {
	Invest(ctx context.Context, req InvestRequest) (*InvestResult, error)
	Refund(ctx context.Context, investmentID string) (*InvestmentRecord, error)
	GetPortfolio(ctx context.Context, investorID string) (*Portfolio, error)
	FundingSnapshot(ctx context.Context, businessID string) (*FundingUpdate, error)
}

type investmentService struct {
	businessRepo   repository.BusinessRepository
	investmentRepo repository.InvestmentRepository
	guard          *InvestmentGuard
	redeemer       PromoCodeRedeemer
	accumulator    FundingAccumulator
	notifier       FundingNotifier
	clock          clock.Clock
}

func NewInvestmentService(
	businessRepo repository.BusinessRepository,
	investmentRepo repository.InvestmentRepository,
	guard *InvestmentGuard,
	redeemer PromoCodeRedeemer,
	accumulator FundingAccumulator,
	notifier FundingNotifier,
	clk clock.Clock,
) InvestmentService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &investmentService{
		businessRepo:   businessRepo,
		investmentRepo: investmentRepo,
		guard:          guard,
		redeemer:       redeemer,
		accumulator:    accumulator,
		notifier:       notifier,
		clock:          clk,
	}
}

// Invest runs guard, optional redemption and the atomic ledger write in that
// order. A redeemed code stays consumed even when the ledger write fails.
func (s *investmentService) Invest(ctx context.Context, req InvestRequest) (*InvestResult, error) {
	if req.BusinessID == "" {
		return nil, validationError("business_id is required")
	}
	if req.InvestorID == "" {
		return nil, ErrForbidden
	}

	business, err := s.businessRepo.FindByID(ctx, req.BusinessID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(err, nil)
	}
	if err := s.guard.Authorize(req.InvestorID, business, req.Amount); err != nil {
		logger.Warn("Investment denied by guard", map[string]interface{}{
			"business_id": req.BusinessID,
			"investor_id": req.InvestorID,
			"reason":      errorReason(err),
		})
		return nil, err
	}

	var discount *DiscountApplied
	var promoCode *string
	if req.PromoCode != nil && *req.PromoCode != "" {
		discount, err = s.redeemer.Redeem(ctx, *req.PromoCode, req.BusinessID)
		if err != nil {
			return nil, err
		}
		code := discount.Code
		promoCode = &code
	}

	record, err := s.accumulator.RecordInvestment(ctx, req.BusinessID, req.InvestorID, req.Amount, promoCode)
	if err != nil {
		if discount != nil {
			logger.Warn("Investment failed after promo code was redeemed", map[string]interface{}{
				"business_id": req.BusinessID,
				"code":        discount.Code,
				"reason":      errorReason(err),
			})
		}
		return nil, err
	}

	s.notifier.PublishFunding(updateFromRecord("investment", record, s.clock.Now()))

	result := &InvestResult{
		InvestmentID:    record.Investment.ID,
		NewAmountRaised: record.NewAmountRaised,
		BusinessStatus:  record.BusinessStatus,
	}
	if discount != nil {
		pct := discount.DiscountPercentage
		result.DiscountPercentage = &pct
	}
	return result, nil
}

func (s *investmentService) Refund(ctx context.Context, investmentID string) (*InvestmentRecord, error) {
	record, err := s.accumulator.ReverseInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	s.notifier.PublishFunding(updateFromRecord("refund", record, s.clock.Now()))
	return record, nil
}

func (s *investmentService) GetPortfolio(ctx context.Context, investorID string) (*Portfolio, error) {
	investments, err := s.investmentRepo.FindByInvestor(ctx, investorID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	totals, err := s.investmentRepo.TotalsByInvestor(ctx, investorID)
	if err != nil {
		return nil, storeError(err, nil)
	}

	entries := make([]model.PortfolioEntry, 0, len(investments))
	for _, inv := range investments {
		entry := model.PortfolioEntry{Investment: inv}
		if inv.Business != nil {
			entry.BusinessSummary = inv.Business.Summary()
		}
		entries = append(entries, entry)
	}
	return &Portfolio{Investments: entries, Totals: *totals}, nil
}

// FundingSnapshot is the current funding state, sent to new feed subscribers.
func (s *investmentService) FundingSnapshot(ctx context.Context, businessID string) (*FundingUpdate, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	update := updateFromBusiness("snapshot", business, s.clock.Now())
	return &update, nil
}
