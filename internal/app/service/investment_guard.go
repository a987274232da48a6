package service

import (
	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/model"
)

// InvestmentLimits bounds a single investment. A zero Max means uncapped.
type InvestmentLimits struct {
	Min model.Money
	Max model.Money
}

// LimitsFromConfig converts the configured decimals to minor units.
func LimitsFromConfig(cfg config.LedgerConfig) (InvestmentLimits, error) {
	lower, err := model.MoneyFromDecimal(cfg.MinInvestment)
	if err != nil {
		return InvestmentLimits{}, err
	}
	upper, err := model.MoneyFromDecimal(cfg.MaxInvestment)
	if err != nil {
		return InvestmentLimits{}, err
	}
	return InvestmentLimits{Min: lower, Max: upper}, nil
}

// InvestmentGuard runs the pre-write policy checks. It never touches storage
// and may be called any number of times.
type InvestmentGuard struct {
	limits InvestmentLimits
}

func NewInvestmentGuard(limits InvestmentLimits) *InvestmentGuard {
	return &InvestmentGuard{limits: limits}
}

// Authorize returns nil when the investment may proceed, otherwise the first
// failing check: not_found, not_investable, self_investment, invalid_amount,
// fully_funded.
func (g *InvestmentGuard) Authorize(investorID string, business *model.Business, amount model.Money) error {
	if business == nil {
		return ErrBusinessNotFound
	}
	if business.Status != model.BusinessStatusActive {
		return ErrNotInvestable.WithMessage("business is %s and not accepting investments", business.Status)
	}
	if investorID == business.OwnerID {
		return ErrSelfInvestment
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount.WithMessage("investment amount must be greater than zero")
	}
	if g.limits.Min > 0 && amount < g.limits.Min {
		return ErrInvalidAmount.WithMessage("minimum investment is %s", g.limits.Min)
	}
	if g.limits.Max > 0 && amount > g.limits.Max {
		return ErrInvalidAmount.WithMessage("maximum investment is %s", g.limits.Max)
	}
	if business.AmountRaised >= business.FundingGoal {
		return ErrFullyFunded
	}
	return nil
}
