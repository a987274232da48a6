package repository

import (
	"context"
	"errors"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

type VerificationRepository interface {
	WithTx(tx *gorm.DB) VerificationRepository
	Create(ctx context.Context, verification *model.BusinessVerification) error
	FindLatestByBusiness(ctx context.Context, businessID string) (*model.BusinessVerification, error)
	FindByBusiness(ctx context.Context, businessID string) ([]model.BusinessVerification, error)
	Review(ctx context.Context, id string, status model.VerificationState, reviewerID *string, notes string, at time.Time) (bool, error)
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) WithTx(tx *gorm.DB) VerificationRepository {
	return &verificationRepository{db: tx}
}

func (r *verificationRepository) Create(ctx context.Context, verification *model.BusinessVerification) error {
	logger.Debug("Creating business verification in database", map[string]interface{}{
		"business_id":   verification.BusinessID,
		"document_type": verification.DocumentType,
	})

	if err := r.db.WithContext(ctx).Create(verification).Error; err != nil {
		logger.Error("Failed to create business verification", err, map[string]interface{}{
			"business_id": verification.BusinessID,
		})
		return err
	}
	return nil
}

func (r *verificationRepository) FindLatestByBusiness(ctx context.Context, businessID string) (*model.BusinessVerification, error) {
	var verification model.BusinessVerification
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("submitted_at DESC").
		Order("created_at DESC").
		First(&verification).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find latest verification", err, map[string]interface{}{
				"business_id": businessID,
			})
		}
		return nil, err
	}
	return &verification, nil
}

func (r *verificationRepository) FindByBusiness(ctx context.Context, businessID string) ([]model.BusinessVerification, error) {
	var verifications []model.BusinessVerification
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("submitted_at DESC").
		Find(&verifications).Error; err != nil {
		logger.Error("Failed to find verifications by business", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, err
	}
	return verifications, nil
}

// Review records a decision on a pending submission.
func (r *verificationRepository) Review(ctx context.Context, id string, status model.VerificationState, reviewerID *string, notes string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.BusinessVerification{}).
		Where("id = ? AND status = ?", id, model.VerificationPending).
		Updates(map[string]interface{}{
			"status":         status,
			"reviewer_id":    reviewerID,
			"reviewer_notes": notes,
			"reviewed_at":    at,
		})
	if result.Error != nil {
		logger.Error("Failed to record verification review", result.Error, map[string]interface{}{
			"verification_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
