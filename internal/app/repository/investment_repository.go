package repository

import (
	"context"
	"errors"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var countedStatuses = []model.InvestmentStatus{
	model.InvestmentStatusActive,
	model.InvestmentStatusCompleted,
}

type InvestmentRepository interface {
	WithTx(tx *gorm.DB) InvestmentRepository
	Create(ctx context.Context, investment *model.Investment) error
	FindByID(ctx context.Context, id string) (*model.Investment, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Investment, error)
	FindByInvestor(ctx context.Context, investorID string) ([]model.Investment, error)
	FindByBusiness(ctx context.Context, businessID string, statuses ...model.InvestmentStatus) ([]model.Investment, error)
	CountInvestors(ctx context.Context, businessID string) (int64, error)
	SumAdmitted(ctx context.Context, businessID string) (model.Money, error)
	TotalsByInvestor(ctx context.Context, investorID string) (*model.PortfolioTotals, error)
	TransitionStatus(ctx context.Context, id string, from, to model.InvestmentStatus, at time.Time) (bool, error)
	CompleteActive(ctx context.Context, businessID string) (int64, error)
}

type investmentRepository struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) WithTx(tx *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: tx}
}

func (r *investmentRepository) Create(ctx context.Context, investment *model.Investment) error {
	logger.Debug("Creating investment in database", map[string]interface{}{
		"business_id": investment.BusinessID,
		"investor_id": investment.InvestorID,
		"amount":      investment.Amount.String(),
	})

	if err := r.db.WithContext(ctx).Create(investment).Error; err != nil {
		logger.Error("Failed to create investment in database", err, map[string]interface{}{
			"business_id": investment.BusinessID,
			"investor_id": investment.InvestorID,
		})
		return err
	}

	logger.Debug("Investment created in database", map[string]interface{}{
		"investment_id": investment.ID,
	})
	return nil
}

func (r *investmentRepository) FindByID(ctx context.Context, id string) (*model.Investment, error) {
	var investment model.Investment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&investment).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find investment by ID in database", err, map[string]interface{}{
				"investment_id": id,
			})
		}
		return nil, err
	}
	return &investment, nil
}

func (r *investmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Investment, error) {
	var investment model.Investment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&investment).Error
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

// FindByInvestor returns the investor's investments newest first with their
// businesses preloaded.
func (r *investmentRepository) FindByInvestor(ctx context.Context, investorID string) ([]model.Investment, error) {
	logger.Debug("Finding investments by investor in database", map[string]interface{}{
		"investor_id": investorID,
	})

	var investments []model.Investment
	if err := r.db.WithContext(ctx).
		Preload("Business").
		Where("investor_id = ?", investorID).
		Order("created_at DESC").
		Find(&investments).Error; err != nil {
		logger.Error("Failed to find investments by investor", err, map[string]interface{}{
			"investor_id": investorID,
		})
		return nil, err
	}

	logger.Debug("Investments found by investor", map[string]interface{}{
		"investor_id": investorID,
		"count":       len(investments),
	})
	return investments, nil
}

func (r *investmentRepository) FindByBusiness(ctx context.Context, businessID string, statuses ...model.InvestmentStatus) ([]model.Investment, error) {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var investments []model.Investment
	if err := query.Order("created_at DESC").Find(&investments).Error; err != nil {
		logger.Error("Failed to find investments by business", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, err
	}
	return investments, nil
}

// CountInvestors counts distinct investors with an admitted investment.
func (r *investmentRepository) CountInvestors(ctx context.Context, businessID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Investment{}).
		Where("business_id = ? AND status IN ?", businessID, countedStatuses).
		Distinct("investor_id").
		Count(&count).Error; err != nil {
		logger.Error("Failed to count investors", err, map[string]interface{}{
			"business_id": businessID,
		})
		return 0, err
	}
	return count, nil
}

// SumAdmitted recomputes the aggregate from the investment rows.
func (r *investmentRepository) SumAdmitted(ctx context.Context, businessID string) (model.Money, error) {
	var sum int64
	if err := r.db.WithContext(ctx).Model(&model.Investment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("business_id = ? AND status IN ?", businessID, countedStatuses).
		Scan(&sum).Error; err != nil {
		logger.Error("Failed to sum admitted investments", err, map[string]interface{}{
			"business_id": businessID,
		})
		return 0, err
	}
	return model.Money(sum), nil
}

func (r *investmentRepository) TotalsByInvestor(ctx context.Context, investorID string) (*model.PortfolioTotals, error) {
	var row struct {
		Total      int64
		Active     int64
		Businesses int64
	}
	err := r.db.WithContext(ctx).Model(&model.Investment{}).
		Select("COALESCE(SUM(amount), 0) AS total, "+
			"COUNT(CASE WHEN status = ? THEN 1 END) AS active, "+
			"COUNT(DISTINCT business_id) AS businesses", model.InvestmentStatusActive).
		Where("investor_id = ? AND status IN ?", investorID, countedStatuses).
		Scan(&row).Error
	if err != nil {
		logger.Error("Failed to compute portfolio totals", err, map[string]interface{}{
			"investor_id": investorID,
		})
		return nil, err
	}
	return &model.PortfolioTotals{
		TotalInvested:   model.Money(row.Total),
		ActiveCount:     row.Active,
		BusinessesCount: row.Businesses,
	}, nil
}

// TransitionStatus moves a single investment from -> to. False means it was
// no longer in the expected state.
func (r *investmentRepository) TransitionStatus(ctx context.Context, id string, from, to model.InvestmentStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == model.InvestmentStatusRefunded {
		updates["refunded_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&model.Investment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to transition investment status", result.Error, map[string]interface{}{
			"investment_id": id,
			"from":          from,
			"to":            to,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompleteActive marks every active investment of a business completed.
func (r *investmentRepository) CompleteActive(ctx context.Context, businessID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Investment{}).
		Where("business_id = ? AND status = ?", businessID, model.InvestmentStatusActive).
		Update("status", model.InvestmentStatusCompleted)
	if result.Error != nil {
		logger.Error("Failed to complete investments", result.Error, map[string]interface{}{
			"business_id": businessID,
		})
		return 0, result.Error
	}

	logger.Debug("Investments completed", map[string]interface{}{
		"business_id": businessID,
		"count":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}
