package service

import (
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// FundingUpdate is published after a ledger write commits.
type FundingUpdate struct {
	Type            string               `json:"type"` // investment, refund, status
	BusinessID      string               `json:"business_id"`
	Status          model.BusinessStatus `json:"status"`
	AmountRaised    model.Money          `json:"amount_raised"`
	FundingGoal     model.Money          `json:"funding_goal"`
	ProgressPercent decimal.Decimal      `json:"progress_percent"`
	Version         int64                `json:"version"`
	At              time.Time            `json:"at"`
}

// FundingNotifier fans committed funding changes out to live subscribers.
type FundingNotifier interface {
	PublishFunding(update FundingUpdate)
}

type noopNotifier struct{}

func (noopNotifier) PublishFunding(FundingUpdate) {}

func updateFromRecord(kind string, record *InvestmentRecord, at time.Time) FundingUpdate {
	return FundingUpdate{
		Type:            kind,
		BusinessID:      record.BusinessID,
		Status:          record.BusinessStatus,
		AmountRaised:    record.NewAmountRaised,
		FundingGoal:     record.FundingGoal,
		ProgressPercent: model.Progress(record.NewAmountRaised, record.FundingGoal),
		Version:         record.Version,
		At:              at,
	}
}

func updateFromBusiness(kind string, business *model.Business, at time.Time) FundingUpdate {
	return FundingUpdate{
		Type:            kind,
		BusinessID:      business.ID,
		Status:          business.Status,
		AmountRaised:    business.AmountRaised,
		FundingGoal:     business.FundingGoal,
		ProgressPercent: model.Progress(business.AmountRaised, business.FundingGoal),
		Version:         business.Version,
		At:              at,
	}
}

// StatusUpdate builds the update published after a lifecycle change.
func StatusUpdate(business *model.Business, at time.Time) FundingUpdate {
	return updateFromBusiness("status", business, at)
}
