package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundredPercent = decimal.NewFromInt(100)

// DiscountApplied is the result of a successful redemption.
type DiscountApplied struct {
	Code               string          `json:"code"`
	BusinessID         string          `json:"business_id"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	RemainingUses      *int            `json:"remaining_uses,omitempty"`
}

type CreatePromoCodeInput struct {
	Code               string          `json:"code" binding:"required"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MaxUses            *int            `json:"max_uses"`
	IsActive           *bool           `json:"is_active"`
	ValidFrom          *time.Time      `json:"valid_from"`
	ValidUntil         *time.Time      `json:"valid_until"`
}

type PromoCodeRedeemer interface {
	Redeem(ctx context.Context, code, businessID string) (*DiscountApplied, error)
	CreatePromoCode(ctx context.Context, input CreatePromoCodeInput, createdBy string) (*model.PromoCode, error)
	ImportPromoCodes(ctx context.Context, inputs []CreatePromoCodeInput, createdBy string) (int, error)
	GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error)
	ListPromoCodes(ctx context.Context) ([]model.PromoCode, error)
	CorrectUses(ctx context.Context, code string, uses int) (*model.PromoCode, error)
}

type promoCodeRedeemer struct {
	db           *gorm.DB
	promoRepo    repository.PromoCodeRepository
	businessRepo repository.BusinessRepository
	clock        clock.Clock
	timeout      time.Duration
}

func NewPromoCodeRedeemer(
	db *gorm.DB,
	promoRepo repository.PromoCodeRepository,
	businessRepo repository.BusinessRepository,
	clk clock.Clock,
	timeout time.Duration,
) PromoCodeRedeemer {
	if clk == nil {
		clk = clock.New()
	}
	return &promoCodeRedeemer{
		db:           db,
		promoRepo:    promoRepo,
		businessRepo: businessRepo,
		clock:        clk,
		timeout:      timeout,
	}
}

// Redeem consumes one use of the code for the business. Lookup, window check,
// capped increment and the business association share one transaction; the
// promo row is always written before the business row.
func (r *promoCodeRedeemer) Redeem(ctx context.Context, code, businessID string) (*DiscountApplied, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	normalized := model.NormalizePromoCode(code)
	if normalized == "" {
		return nil, validationError("promo code is required")
	}

	logger.Info("Redeeming promo code", map[string]interface{}{
		"code":        normalized,
		"business_id": businessID,
	})

	var applied *DiscountApplied
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		promoRepo := r.promoRepo.WithTx(tx)

		promo, err := promoRepo.FindByCode(ctx, normalized)
		if err != nil {
			return storeError(err, ErrPromoCodeNotFound)
		}
		if !promo.IsActive {
			return ErrCodeInactive
		}
		if !promo.InWindow(r.clock.Now()) {
			return ErrCodeExpired
		}

		ok, err := promoRepo.ConsumeSlot(ctx, promo.ID)
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			return ErrCodeExhausted
		}

		// current_uses may have moved since the first read
		promo, err = promoRepo.FindByCode(ctx, normalized)
		if err != nil {
			return storeError(err, ErrPromoCodeNotFound)
		}

		if err := r.businessRepo.WithTx(tx).SetPromoCodeUsed(ctx, businessID, promo.Code); err != nil {
			return storeError(err, ErrBusinessNotFound)
		}

		applied = &DiscountApplied{
			Code:               promo.Code,
			BusinessID:         businessID,
			DiscountPercentage: promo.DiscountPercentage,
		}
		if promo.MaxUses != nil {
			remaining := *promo.MaxUses - promo.CurrentUses
			if remaining < 0 {
				remaining = 0
			}
			applied.RemainingUses = &remaining
		}
		return nil
	})
	if err != nil {
		err = storeError(err, ErrPromoCodeNotFound)
		metrics.IncRedemption(errorReason(err))
		logger.Warn("Promo code not redeemed", map[string]interface{}{
			"code":        normalized,
			"business_id": businessID,
			"reason":      errorReason(err),
		})
		return nil, err
	}

	metrics.IncRedemption(metrics.ResultSuccess)
	logger.Info("Promo code redeemed", map[string]interface{}{
		"code":        applied.Code,
		"business_id": businessID,
		"discount":    applied.DiscountPercentage.String(),
	})
	return applied, nil
}

func validatePromoInput(input CreatePromoCodeInput) error {
	code := model.NormalizePromoCode(input.Code)
	if len(code) < 3 || len(code) > 50 {
		return validationError("promo code must be between 3 and 50 characters")
	}
	if strings.ContainsAny(code, " \t\n") {
		return validationError("promo code must not contain whitespace")
	}
	if !input.DiscountPercentage.IsPositive() || input.DiscountPercentage.GreaterThan(hundredPercent) {
		return validationError("discount percentage must be greater than 0 and at most 100")
	}
	if input.MaxUses != nil && *input.MaxUses < 0 {
		return validationError("max uses must not be negative")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return validationError("valid_until must not be before valid_from")
	}
	return nil
}

func (r *promoCodeRedeemer) CreatePromoCode(ctx context.Context, input CreatePromoCodeInput, createdBy string) (*model.PromoCode, error) {
	if err := validatePromoInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	promo := &model.PromoCode{
		Code:               model.NormalizePromoCode(input.Code),
		DiscountPercentage: input.DiscountPercentage,
		MaxUses:            input.MaxUses,
		IsActive:           active,
		ValidFrom:          input.ValidFrom,
		ValidUntil:         input.ValidUntil,
		CreatedBy:          createdBy,
	}

	if existing, err := r.promoRepo.FindByCode(ctx, promo.Code); err == nil && existing != nil {
		return nil, ErrPromoCodeExists
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(err, nil)
	}

	if err := r.promoRepo.Create(ctx, promo); err != nil {
		return nil, storeError(err, nil)
	}

	logger.Info("Promo code created", map[string]interface{}{
		"code":       promo.Code,
		"max_uses":   promo.MaxUses,
		"created_by": createdBy,
	})
	return promo, nil
}

// ImportPromoCodes creates each code, skipping the ones that already exist.
// It returns how many were created.
func (r *promoCodeRedeemer) ImportPromoCodes(ctx context.Context, inputs []CreatePromoCodeInput, createdBy string) (int, error) {
	created := 0
	for _, input := range inputs {
		if _, err := r.CreatePromoCode(ctx, input, createdBy); err != nil {
			if errors.Is(err, ErrPromoCodeExists) {
				logger.Info("Promo code already exists, skipping", map[string]interface{}{
					"code": model.NormalizePromoCode(input.Code),
				})
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func (r *promoCodeRedeemer) GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	promo, err := r.promoRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, ErrPromoCodeNotFound)
	}
	return promo, nil
}

func (r *promoCodeRedeemer) ListPromoCodes(ctx context.Context) ([]model.PromoCode, error) {
	promos, err := r.promoRepo.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return promos, nil
}

// CorrectUses is the administrative override of current_uses. It is the only
// path that may lower the counter.
func (r *promoCodeRedeemer) CorrectUses(ctx context.Context, code string, uses int) (*model.PromoCode, error) {
	if uses < 0 {
		return nil, validationError("uses must not be negative")
	}

	var promo *model.PromoCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		promoRepo := r.promoRepo.WithTx(tx)

		found, err := promoRepo.FindByCode(ctx, code)
		if err != nil {
			return storeError(err, ErrPromoCodeNotFound)
		}
		ok, err := promoRepo.SetUses(ctx, found.ID, uses)
		if err != nil {
			return storeError(err, nil)
		}
		if !ok {
			return validationError("uses must not exceed max uses")
		}
		promo, err = promoRepo.FindByCode(ctx, code)
		return storeError(err, ErrPromoCodeNotFound)
	})
	if err != nil {
		return nil, storeError(err, ErrPromoCodeNotFound)
	}

	logger.Warn("Promo code uses corrected", map[string]interface{}{
		"code": promo.Code,
		"uses": uses,
	})
	return promo, nil
}
