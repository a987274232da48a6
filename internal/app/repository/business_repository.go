package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BusinessFilter drives the browse listing.
type BusinessFilter struct {
	Status    model.BusinessStatus
	Category  string
	Search    string
	RiskLevel model.RiskLevel
	Sort      string // newest, goal, progress, roi
	Page      int
	PageSize  int
}

type BusinessRepository interface {
	WithTx(tx *gorm.DB) BusinessRepository
	Create(ctx context.Context, business *model.Business) error
	FindByID(ctx context.Context, id string) (*model.Business, error)
	FindBySlug(ctx context.Context, slug string) (*model.Business, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Business, error)
	FindAll(ctx context.Context, filter BusinessFilter) ([]model.Business, int64, error)
	FindByOwner(ctx context.Context, ownerID string) ([]model.Business, error)
	FindExpiring(ctx context.Context, now time.Time, limit int) ([]model.Business, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	IncrementAmountRaised(ctx context.Context, id string, amount, tolerance model.Money) (bool, error)
	DecrementAmountRaised(ctx context.Context, id string, amount model.Money) (bool, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to model.BusinessStatus, fields map[string]interface{}) (bool, error)
	SetPromoCodeUsed(ctx context.Context, id, code string) error
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// WithTx binds the repository to an open transaction.
func (r *businessRepository) WithTx(tx *gorm.DB) BusinessRepository {
	return &businessRepository{db: tx}
}

func (r *businessRepository) Create(ctx context.Context, business *model.Business) error {
	logger.Debug("Creating business in database", map[string]interface{}{
		"owner_id":     business.OwnerID,
		"name":         business.Name,
		"funding_goal": business.FundingGoal.String(),
	})

	if err := r.db.WithContext(ctx).Create(business).Error; err != nil {
		logger.Error("Failed to create business in database", err, map[string]interface{}{
			"owner_id": business.OwnerID,
			"name":     business.Name,
		})
		return err
	}

	logger.Debug("Business created in database", map[string]interface{}{
		"business_id": business.ID,
		"slug":        business.Slug,
	})
	return nil
}

func (r *businessRepository) FindByID(ctx context.Context, id string) (*model.Business, error) {
	logger.Debug("Finding business by ID in database", map[string]interface{}{
		"business_id": id,
	})

	var business model.Business
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find business by ID in database", err, map[string]interface{}{
				"business_id": id,
			})
		}
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) FindBySlug(ctx context.Context, slug string) (*model.Business, error) {
	var business model.Business
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&business).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find business by slug in database", err, map[string]interface{}{
				"slug": slug,
			})
		}
		return nil, err
	}
	return &business, nil
}

// FindByIDForUpdate takes a row lock for the rest of the transaction.
func (r *businessRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Business, error) {
	var business model.Business
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&business).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to lock business row", err, map[string]interface{}{
				"business_id": id,
			})
		}
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) FindAll(ctx context.Context, filter BusinessFilter) ([]model.Business, int64, error) {
	logger.Debug("Listing businesses from database", map[string]interface{}{
		"status":   filter.Status,
		"category": filter.Category,
		"search":   filter.Search,
		"sort":     filter.Sort,
		"page":     filter.Page,
	})

	query := r.db.WithContext(ctx).Model(&model.Business{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(city) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count businesses", err)
		return nil, 0, err
	}

	switch filter.Sort {
	case "goal":
		query = query.Order("funding_goal DESC")
	case "progress":
		query = query.Order("CAST(amount_raised AS REAL) / funding_goal DESC")
	case "roi":
		query = query.Order("roi_percentage DESC")
	default:
		query = query.Order("created_at DESC")
	}
	query = query.Order("id")

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var businesses []model.Business
	if err := query.Find(&businesses).Error; err != nil {
		logger.Error("Failed to list businesses", err)
		return nil, 0, err
	}

	logger.Debug("Businesses listed from database", map[string]interface{}{
		"count": len(businesses),
		"total": total,
	})
	return businesses, total, nil
}

func (r *businessRepository) FindByOwner(ctx context.Context, ownerID string) ([]model.Business, error) {
	var businesses []model.Business
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&businesses).Error; err != nil {
		logger.Error("Failed to find businesses by owner", err, map[string]interface{}{
			"owner_id": ownerID,
		})
		return nil, err
	}
	return businesses, nil
}

// FindExpiring returns active businesses whose funding period has elapsed.
func (r *businessRepository) FindExpiring(ctx context.Context, now time.Time, limit int) ([]model.Business, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND closes_at IS NOT NULL AND closes_at <= ?", model.BusinessStatusActive, now).
		Order("closes_at")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var businesses []model.Business
	if err := query.Find(&businesses).Error; err != nil {
		logger.Error("Failed to find expiring businesses", err)
		return nil, err
	}
	return businesses, nil
}

// UpdateFields writes descriptive columns only. The aggregate, version and
// status columns have dedicated conditional writers.
func (r *businessRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	for _, guarded := range []string{"amount_raised", "version", "status", "promo_code_used"} {
		delete(fields, guarded)
	}
	if len(fields) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Model(&model.Business{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		logger.Error("Failed to update business fields", err, map[string]interface{}{
			"business_id": id,
		})
		return err
	}
	return nil
}

// IncrementAmountRaised adds amount only while the business is active and the
// new total stays within funding_goal + tolerance. It reports false when the
// condition rejected the write.
func (r *businessRepository) IncrementAmountRaised(ctx context.Context, id string, amount, tolerance model.Money) (bool, error) {
	logger.Debug("Incrementing amount raised", map[string]interface{}{
		"business_id": id,
		"amount":      amount.String(),
	})

	result := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("id = ? AND status = ? AND amount_raised + ? <= funding_goal + ?",
			id, model.BusinessStatusActive, int64(amount), int64(tolerance)).
		Updates(map[string]interface{}{
			"amount_raised": gorm.Expr("amount_raised + ?", int64(amount)),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		logger.Error("Failed to increment amount raised", result.Error, map[string]interface{}{
			"business_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementAmountRaised never lets the aggregate go negative.
func (r *businessRepository) DecrementAmountRaised(ctx context.Context, id string, amount model.Money) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("id = ? AND amount_raised >= ?", id, int64(amount)).
		Updates(map[string]interface{}{
			"amount_raised": gorm.Expr("amount_raised - ?", int64(amount)),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		logger.Error("Failed to decrement amount raised", result.Error, map[string]interface{}{
			"business_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompareAndSetStatus moves status from -> to and writes the extra columns in
// the same statement. False means the row was not in the expected state.
func (r *businessRepository) CompareAndSetStatus(ctx context.Context, id string, from, to model.BusinessStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update business status", result.Error, map[string]interface{}{
			"business_id": id,
			"from":        from,
			"to":          to,
		})
		return false, result.Error
	}

	logger.Debug("Business status compare-and-set", map[string]interface{}{
		"business_id": id,
		"from":        from,
		"to":          to,
		"applied":     result.RowsAffected == 1,
	})
	return result.RowsAffected == 1, nil
}

func (r *businessRepository) SetPromoCodeUsed(ctx context.Context, id, code string) error {
	result := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("id = ?", id).
		Update("promo_code_used", code)
	if result.Error != nil {
		logger.Error("Failed to record promo code on business", result.Error, map[string]interface{}{
			"business_id": id,
			"code":        code,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
