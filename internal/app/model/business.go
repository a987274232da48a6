package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BusinessStatus string
type VerificationState string
type RiskLevel string
type BusinessTier string

const (
	BusinessStatusDraft               BusinessStatus = "draft"
	BusinessStatusPendingVerification BusinessStatus = "pending_verification"
	BusinessStatusActive              BusinessStatus = "active"
	BusinessStatusFunded              BusinessStatus = "funded"
	BusinessStatusClosed              BusinessStatus = "closed"
	BusinessStatusRejected            BusinessStatus = "rejected"

	VerificationUnsubmitted VerificationState = "unsubmitted"
	VerificationPending     VerificationState = "pending"
	VerificationApproved    VerificationState = "approved"
	VerificationRejected    VerificationState = "rejected"

	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"

	TierBasic   BusinessTier = "basic"
	TierGrowth  BusinessTier = "growth"
	TierPremium BusinessTier = "premium"
)

// BusinessCategories is the fixed list a listing can be filed under.
var BusinessCategories = []string{
	"Food & Beverage",
	"Sustainability",
	"Health & Wellness",
	"Technology",
	"Retail",
	"Services",
}

func (s BusinessStatus) IsValid() bool {
	switch s {
	case BusinessStatusDraft, BusinessStatusPendingVerification, BusinessStatusActive,
		BusinessStatusFunded, BusinessStatusClosed, BusinessStatusRejected:
		return true
	}
	return false
}

func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

func (t BusinessTier) IsValid() bool {
	return t == TierBasic || t == TierGrowth || t == TierPremium
}

// Business is a listing raising money. AmountRaised is derived from the
// admitted investments and only moves through the funding accumulator.
type Business struct {
	ID                    string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	Slug                  string            `gorm:"type:varchar(140);uniqueIndex" json:"slug"`
	OwnerID               string            `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Name                  string            `gorm:"type:varchar(100);not null" json:"name"`
	Category              string            `gorm:"type:varchar(50);not null;index" json:"category"`
	Description           string            `gorm:"type:text;not null" json:"description"`
	DetailedDescription   string            `gorm:"type:text" json:"detailed_description,omitempty"`
	Location              string            `gorm:"type:varchar(200)" json:"location,omitempty"`
	City                  string            `gorm:"type:varchar(100)" json:"city,omitempty"`
	Country               string            `gorm:"type:varchar(100)" json:"country,omitempty"`
	IsRemote              bool              `gorm:"default:false" json:"is_remote"`
	ImageURL              string            `gorm:"type:text" json:"image_url,omitempty"`
	FundingGoal           Money             `gorm:"type:bigint;not null" json:"funding_goal"`
	AmountRaised          Money             `gorm:"type:bigint;not null;default:0" json:"amount_raised"`
	Status                BusinessStatus    `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	VerificationStatus    VerificationState `gorm:"type:varchar(20);not null;default:'unsubmitted'" json:"verification_status"`
	VerificationNotes     string            `gorm:"type:text" json:"verification_notes,omitempty"`
	VerificationDocuments pq.StringArray    `gorm:"type:text" json:"verification_documents"` // postgres array literal in a text column
	RiskLevel             RiskLevel         `gorm:"type:varchar(10);not null" json:"risk_level"`
	ROIPercentage         decimal.Decimal   `gorm:"column:roi_percentage;type:decimal(6,2);not null" json:"roi_percentage"`
	DurationMonths        int               `gorm:"not null" json:"duration_months"`
	BusinessTier          BusinessTier      `gorm:"type:varchar(20);not null;default:'basic'" json:"business_tier"`
	ListingFeePaid        bool              `gorm:"not null;default:false" json:"listing_fee_paid"`
	ListingFeeAmount      Money             `gorm:"type:bigint;not null;default:0" json:"listing_fee_amount"`
	PaymentReference      string            `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	PromoCodeUsed         *string           `gorm:"type:varchar(50)" json:"promo_code_used,omitempty"`
	Version               int64             `gorm:"not null;default:0" json:"version"` // bumped on every aggregate write

	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ClosesAt    *time.Time `gorm:"index" json:"closes_at,omitempty"`
	FundedAt    *time.Time `json:"funded_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Slug == "" {
		b.Slug = slug.Make(b.Name) + "-" + b.ID[:8]
	}
	if b.Status == "" {
		b.Status = BusinessStatusDraft
	}
	if b.VerificationStatus == "" {
		b.VerificationStatus = VerificationUnsubmitted
	}
	if b.BusinessTier == "" {
		b.BusinessTier = TierBasic
	}
	if b.VerificationDocuments == nil {
		b.VerificationDocuments = pq.StringArray{}
	}
	return nil
}

// Remaining is how much can still be raised before the goal.
func (b *Business) Remaining() Money {
	if b.AmountRaised >= b.FundingGoal {
		return 0
	}
	return b.FundingGoal - b.AmountRaised
}

// BusinessSummary is the short form embedded in portfolio rows.
type BusinessSummary struct {
	ID            string          `json:"id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Status        BusinessStatus  `json:"status"`
	ROIPercentage decimal.Decimal `json:"roi_percentage"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	FundingGoal   Money           `json:"funding_goal"`
	AmountRaised  Money           `json:"amount_raised"`
}

func (b *Business) Summary() BusinessSummary {
	return BusinessSummary{
		ID:            b.ID,
		Slug:          b.Slug,
		Name:          b.Name,
		Category:      b.Category,
		Status:        b.Status,
		ROIPercentage: b.ROIPercentage,
		RiskLevel:     b.RiskLevel,
		FundingGoal:   b.FundingGoal,
		AmountRaised:  b.AmountRaised,
	}
}
