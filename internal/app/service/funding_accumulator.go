package service

import (
	"context"
	"errors"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

// InvestmentRecord is the committed outcome of a ledger write.
type InvestmentRecord struct {
	Investment      *model.Investment
	BusinessID      string
	NewAmountRaised model.Money
	FundingGoal     model.Money
	BusinessStatus  model.BusinessStatus
	Version         int64
	Funded          bool
}

type FundingAccumulator interface {
	RecordInvestment(ctx context.Context, businessID, investorID string, amount model.Money, promoCode *string) (*InvestmentRecord, error)
	ReverseInvestment(ctx context.Context, investmentID string) (*InvestmentRecord, error)
}

type fundingAccumulator struct {
	db             *gorm.DB
	businessRepo   repository.BusinessRepository
	investmentRepo repository.InvestmentRepository
	lifecycle      LifecycleManager
	guard          *InvestmentGuard
	tolerance      model.Money
	timeout        time.Duration
	clock          clock.Clock
}

// AccumulatorOptions carries the money policy of the accumulator.
type AccumulatorOptions struct {
	Tolerance model.Money   // allowed overfund above the goal; 0 is strict
	Timeout   time.Duration // upper bound for one atomic write; 0 disables
}

func NewFundingAccumulator(
	db *gorm.DB,
	businessRepo repository.BusinessRepository,
	investmentRepo repository.InvestmentRepository,
	lifecycle LifecycleManager,
	guard *InvestmentGuard,
	opts AccumulatorOptions,
	clk clock.Clock,
) FundingAccumulator {
	if clk == nil {
		clk = clock.New()
	}
	return &fundingAccumulator{
		db:             db,
		businessRepo:   businessRepo,
		investmentRepo: investmentRepo,
		lifecycle:      lifecycle,
		guard:          guard,
		tolerance:      opts.Tolerance,
		timeout:        opts.Timeout,
		clock:          clk,
	}
}

func (a *fundingAccumulator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// RecordInvestment admits an investment in one transaction: lock and re-check
// the business, conditionally increment the aggregate, insert the row and
// apply the funded transition. Any failure rolls back all of it.
func (a *fundingAccumulator) RecordInvestment(ctx context.Context, businessID, investorID string, amount model.Money, promoCode *string) (*InvestmentRecord, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	logger.Info("Recording investment", map[string]interface{}{
		"business_id": businessID,
		"investor_id": investorID,
		"amount":      amount.String(),
	})

	var record *InvestmentRecord
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		businessRepo := a.businessRepo.WithTx(tx)

		business, err := businessRepo.FindByIDForUpdate(ctx, businessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		if err := a.guard.Authorize(investorID, business, amount); err != nil {
			return err
		}

		ok, err := businessRepo.IncrementAmountRaised(ctx, businessID, amount, a.tolerance)
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			return ErrFundingGoalExceeded.WithMessage(
				"investment of %s would exceed the funding goal; at most %s remains",
				amount, business.Remaining())
		}

		investment := &model.Investment{
			InvestorID: investorID,
			BusinessID: businessID,
			Amount:     amount,
			Status:     model.InvestmentStatusActive,
			PromoCode:  promoCode,
		}
		if err := a.investmentRepo.WithTx(tx).Create(ctx, investment); err != nil {
			return storeError(err, nil)
		}

		transition, err := a.lifecycle.EvaluateFundingTx(ctx, tx, businessID)
		if err != nil {
			return err
		}

		updated := transition.Business
		record = &InvestmentRecord{
			Investment:      investment,
			BusinessID:      businessID,
			NewAmountRaised: updated.AmountRaised,
			FundingGoal:     updated.FundingGoal,
			BusinessStatus:  updated.Status,
			Version:         updated.Version,
			Funded:          transition.Changed && transition.To == model.BusinessStatusFunded,
		}
		return nil
	})
	if err != nil {
		err = storeError(err, ErrBusinessNotFound)
		metrics.ObserveInvestment(errorReason(err), 0, time.Since(started))
		logger.Warn("Investment not recorded", map[string]interface{}{
			"business_id": businessID,
			"investor_id": investorID,
			"amount":      amount.String(),
			"reason":      errorReason(err),
		})
		return nil, err
	}

	metrics.ObserveInvestment(metrics.ResultSuccess, int64(amount), time.Since(started))
	logger.Info("Investment recorded", map[string]interface{}{
		"investment_id":     record.Investment.ID,
		"business_id":       businessID,
		"new_amount_raised": record.NewAmountRaised.String(),
		"business_status":   record.BusinessStatus,
		"funded":            record.Funded,
	})
	return record, nil
}

// ReverseInvestment refunds an active investment and takes its amount back
// out of the aggregate. Investments of a funded business are settled and
// cannot be refunded.
func (a *fundingAccumulator) ReverseInvestment(ctx context.Context, investmentID string) (*InvestmentRecord, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var record *InvestmentRecord
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		investmentRepo := a.investmentRepo.WithTx(tx)
		businessRepo := a.businessRepo.WithTx(tx)

		investment, err := investmentRepo.FindByID(ctx, investmentID)
		if err != nil {
			return storeError(err, ErrInvestmentNotFound)
		}

		business, err := businessRepo.FindByIDForUpdate(ctx, investment.BusinessID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		if business.Status != model.BusinessStatusActive && business.Status != model.BusinessStatusClosed {
			return ErrRefundNotAllowed.WithMessage("investments in a %s business cannot be refunded", business.Status)
		}

		ok, err := investmentRepo.TransitionStatus(ctx, investmentID, model.InvestmentStatusActive, model.InvestmentStatusRefunded, a.clock.Now())
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			return ErrInvestmentNotActive
		}

		ok, err = businessRepo.DecrementAmountRaised(ctx, business.ID, investment.Amount)
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			// Aggregate below an admitted investment.
			logger.Error("Aggregate below refunded amount", nil, map[string]interface{}{
				"business_id":   business.ID,
				"investment_id": investmentID,
				"amount_raised": business.AmountRaised.String(),
			})
			return &LedgerError{Kind: KindStoreUnavailable, Reason: "ledger_inconsistent", Message: "ledger is inconsistent; refund aborted"}
		}

		updated, err := businessRepo.FindByID(ctx, business.ID)
		if err != nil {
			return storeError(err, ErrBusinessNotFound)
		}
		investment.Status = model.InvestmentStatusRefunded
		record = &InvestmentRecord{
			Investment:      investment,
			BusinessID:      business.ID,
			NewAmountRaised: updated.AmountRaised,
			FundingGoal:     updated.FundingGoal,
			BusinessStatus:  updated.Status,
			Version:         updated.Version,
		}
		return nil
	})
	if err != nil {
		err = storeError(err, ErrInvestmentNotFound)
		metrics.IncRefund(errorReason(err))
		return nil, err
	}

	metrics.IncRefund(metrics.ResultSuccess)
	logger.Info("Investment refunded", map[string]interface{}{
		"investment_id":     investmentID,
		"business_id":       record.BusinessID,
		"new_amount_raised": record.NewAmountRaised.String(),
	})
	return record, nil
}

// errorReason is the reason label used in logs and metrics.
func errorReason(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		if le.Reason != "" {
			return le.Reason
		}
		return string(le.Kind)
	}
	return "unknown"
}
