package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusRefunded  InvestmentStatus = "refunded"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// Investment is one admitted contribution. Rows are never deleted; the only
// mutations are active->refunded and active->completed.
type Investment struct {
	ID         string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvestorID string           `gorm:"type:varchar(36);not null;index" json:"investor_id"`
	BusinessID string           `gorm:"type:varchar(36);not null;index" json:"business_id"`
	Amount     Money            `gorm:"type:bigint;not null" json:"amount"`
	Status     InvestmentStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	PromoCode  *string          `gorm:"type:varchar(50)" json:"promo_code,omitempty"` // code redeemed together with this investment
	RefundedAt *time.Time       `json:"refunded_at,omitempty"`
	CreatedAt  time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`

	Business *Business `gorm:"foreignKey:BusinessID" json:"-"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = InvestmentStatusActive
	}
	return nil
}

// Counts reports whether the amount is part of the business aggregate.
func (i *Investment) Counts() bool {
	return i.Status == InvestmentStatusActive || i.Status == InvestmentStatusCompleted
}

// PortfolioEntry is an investment joined with its business for the
// investor dashboard.
type PortfolioEntry struct {
	Investment
	BusinessSummary BusinessSummary `json:"business"`
}

// PortfolioTotals aggregates an investor's holdings.
type PortfolioTotals struct {
	TotalInvested   Money `json:"total_invested"`
	ActiveCount     int64 `json:"active_count"`
	BusinessesCount int64 `json:"businesses_count"`
}
