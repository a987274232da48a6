package repository

import (
	"context"
	"errors"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

type PromoCodeRepository interface {
	WithTx(tx *gorm.DB) PromoCodeRepository
	Create(ctx context.Context, promo *model.PromoCode) error
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindAll(ctx context.Context) ([]model.PromoCode, error)
	ConsumeSlot(ctx context.Context, id string) (bool, error)
	SetUses(ctx context.Context, id string, uses int) (bool, error)
}

type promoCodeRepository struct {
	db *gorm.DB
}

func NewPromoCodeRepository(db *gorm.DB) PromoCodeRepository {
	return &promoCodeRepository{db: db}
}

func (r *promoCodeRepository) WithTx(tx *gorm.DB) PromoCodeRepository {
	return &promoCodeRepository{db: tx}
}

func (r *promoCodeRepository) Create(ctx context.Context, promo *model.PromoCode) error {
	logger.Debug("Creating promo code in database", map[string]interface{}{
		"code": promo.Code,
	})

	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		logger.Error("Failed to create promo code in database", err, map[string]interface{}{
			"code": promo.Code,
		})
		return err
	}
	return nil
}

// FindByCode matches case-insensitively through the normalized form.
func (r *promoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	var promo model.PromoCode
	if err := r.db.WithContext(ctx).
		Where("code = ?", model.NormalizePromoCode(code)).
		First(&promo).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find promo code in database", err, map[string]interface{}{
				"code": code,
			})
		}
		return nil, err
	}
	return &promo, nil
}

func (r *promoCodeRepository) FindAll(ctx context.Context) ([]model.PromoCode, error) {
	var promos []model.PromoCode
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&promos).Error; err != nil {
		logger.Error("Failed to list promo codes", err)
		return nil, err
	}
	return promos, nil
}

// ConsumeSlot increments current_uses only while it is below max_uses.
// False means the cap was already reached.
func (r *promoCodeRepository) ConsumeSlot(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", id).
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		logger.Error("Failed to consume promo code slot", result.Error, map[string]interface{}{
			"promo_code_id": id,
		})
		return false, result.Error
	}

	logger.Debug("Promo code slot consume attempted", map[string]interface{}{
		"promo_code_id": id,
		"consumed":      result.RowsAffected == 1,
	})
	return result.RowsAffected == 1, nil
}

// SetUses overwrites current_uses for administrative corrections. The value
// must stay within [0, max_uses].
func (r *promoCodeRepository) SetUses(ctx context.Context, id string, uses int) (bool, error) {
	if uses < 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ? AND (max_uses IS NULL OR ? <= max_uses)", id, uses).
		Update("current_uses", uses)
	if result.Error != nil {
		logger.Error("Failed to set promo code uses", result.Error, map[string]interface{}{
			"promo_code_id": id,
			"uses":          uses,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
