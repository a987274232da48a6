package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromoCode is a capped, time-windowed discount on the listing fee.
type PromoCode struct {
	ID                 string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code               string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"` // stored upper-case
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	MaxUses            *int            `json:"max_uses,omitempty"` // nil means uncapped
	CurrentUses        int             `gorm:"not null;default:0" json:"current_uses"`
	IsActive           bool            `gorm:"not null" json:"is_active"`
	ValidFrom          *time.Time      `json:"valid_from,omitempty"`
	ValidUntil         *time.Time      `json:"valid_until,omitempty"`
	CreatedBy          string          `gorm:"type:varchar(36)" json:"created_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

func (p *PromoCode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Code = NormalizePromoCode(p.Code)
	return nil
}

// NormalizePromoCode is the canonical form used for storage and lookup.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether now falls inside [ValidFrom, ValidUntil].
func (p *PromoCode) InWindow(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the cap has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.CurrentUses >= *p.MaxUses
}
