package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/investly/investly-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == util.RoleAdmin
}

type CreateBusinessInput struct {
	Name                string             `json:"name"`
	Category            string             `json:"category"`
	Description         string             `json:"description"`
	DetailedDescription string             `json:"detailed_description"`
	Location            string             `json:"location"`
	City                string             `json:"city"`
	Country             string             `json:"country"`
	IsRemote            bool               `json:"is_remote"`
	ImageURL            string             `json:"image_url"`
	FundingGoal         model.Money        `json:"funding_goal"`
	ROIPercentage       decimal.Decimal    `json:"roi_percentage"`
	RiskLevel           model.RiskLevel    `json:"risk_level"`
	DurationMonths      int                `json:"duration_months"`
	BusinessTier        model.BusinessTier `json:"business_tier"`
}

// UpdateBusinessInput holds optional changes. Funding terms can only change
// while the business is still a draft.
type UpdateBusinessInput struct {
	Name                *string             `json:"name"`
	Category            *string             `json:"category"`
	Description         *string             `json:"description"`
	DetailedDescription *string             `json:"detailed_description"`
	Location            *string             `json:"location"`
	City                *string             `json:"city"`
	Country             *string             `json:"country"`
	IsRemote            *bool               `json:"is_remote"`
	ImageURL            *string             `json:"image_url"`
	FundingGoal         *model.Money        `json:"funding_goal"`
	ROIPercentage       *decimal.Decimal    `json:"roi_percentage"`
	RiskLevel           *model.RiskLevel    `json:"risk_level"`
	DurationMonths      *int                `json:"duration_months"`
	BusinessTier        *model.BusinessTier `json:"business_tier"`
}

// BusinessDetail is a business with its derived funding figures.
type BusinessDetail struct {
	model.Business
	ProgressPercent decimal.Decimal `json:"progress_percent"`
	Remaining       model.Money     `json:"remaining"`
	InvestorCount   int64           `json:"investor_count"`
}

type BusinessService interface {
	CreateBusiness(ctx context.Context, ownerID string, input CreateBusinessInput) (*model.Business, error)
	GetBusiness(ctx context.Context, idOrSlug string) (*BusinessDetail, error)
	ListBusinesses(ctx context.Context, filter repository.BusinessFilter) ([]BusinessDetail, int64, error)
	ListOwnerBusinesses(ctx context.Context, ownerID string) ([]BusinessDetail, error)
	UpdateBusiness(ctx context.Context, actor Actor, businessID string, input UpdateBusinessInput) (*model.Business, error)
	CloseBusiness(ctx context.Context, actor Actor, businessID string) (*model.Business, error)
	ListBusinessInvestments(ctx context.Context, actor Actor, businessID string) (*model.Business, []model.Investment, error)
}

type businessService struct {
	businessRepo   repository.BusinessRepository
	investmentRepo repository.InvestmentRepository
	lifecycle      LifecycleManager
	notifier       FundingNotifier
	minFundingGoal model.Money
}

func NewBusinessService(
	businessRepo repository.BusinessRepository,
	investmentRepo repository.InvestmentRepository,
	lifecycle LifecycleManager,
	notifier FundingNotifier,
	minFundingGoal model.Money,
) BusinessService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &businessService{
		businessRepo:   businessRepo,
		investmentRepo: investmentRepo,
		lifecycle:      lifecycle,
		notifier:       notifier,
		minFundingGoal: minFundingGoal,
	}
}

var (
	minROI = decimal.NewFromInt(1)
	maxROI = decimal.NewFromInt(100)
)

func isCategory(category string) bool {
	for _, c := range model.BusinessCategories {
		if c == category {
			return true
		}
	}
	return false
}

func checkLength(field, value string, lo, hi int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < lo || n > hi {
		if lo == 0 {
			return validationError("%s must be at most %d characters", field, hi)
		}
		return validationError("%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}

func (s *businessService) validateTerms(goal model.Money, roi decimal.Decimal, risk model.RiskLevel, months int, tier model.BusinessTier) error {
	if goal < s.minFundingGoal || goal <= 0 {
		return validationError("funding goal must be at least %s", s.minFundingGoal)
	}
	if roi.LessThan(minROI) || roi.GreaterThan(maxROI) {
		return validationError("roi percentage must be between 1 and 100")
	}
	if !risk.IsValid() {
		return validationError("risk level must be one of low, medium, high")
	}
	if months < 1 || months > 60 {
		return validationError("duration must be between 1 and 60 months")
	}
	if !tier.IsValid() {
		return validationError("business tier must be one of basic, growth, premium")
	}
	return nil
}

func normalizeCreateInput(input *CreateBusinessInput) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.RiskLevel = model.RiskLevel(strings.ToLower(string(input.RiskLevel)))
	input.BusinessTier = model.BusinessTier(strings.ToLower(string(input.BusinessTier)))
	if input.BusinessTier == "" {
		input.BusinessTier = model.TierBasic
	}
}

func (s *businessService) CreateBusiness(ctx context.Context, ownerID string, input CreateBusinessInput) (*model.Business, error) {
	normalizeCreateInput(&input)

	if ownerID == "" {
		return nil, ErrForbidden
	}
	if err := checkLength("name", input.Name, 2, 100); err != nil {
		return nil, err
	}
	if !isCategory(input.Category) {
		return nil, validationError("category must be one of: %s", strings.Join(model.BusinessCategories, ", "))
	}
	if err := checkLength("description", input.Description, 20, 500); err != nil {
		return nil, err
	}
	if err := checkLength("detailed description", input.DetailedDescription, 0, 2000); err != nil {
		return nil, err
	}
	if err := s.validateTerms(input.FundingGoal, input.ROIPercentage, input.RiskLevel, input.DurationMonths, input.BusinessTier); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	business := &model.Business{
		ID:                  id,
		OwnerID:             ownerID,
		Name:                input.Name,
		Category:            input.Category,
		Description:         strings.TrimSpace(input.Description),
		DetailedDescription: strings.TrimSpace(input.DetailedDescription),
		Location:            input.Location,
		City:                input.City,
		Country:             input.Country,
		IsRemote:            input.IsRemote,
		ImageURL:            input.ImageURL,
		FundingGoal:         input.FundingGoal,
		Status:              model.BusinessStatusDraft,
		VerificationStatus:  model.VerificationUnsubmitted,
		RiskLevel:           input.RiskLevel,
		ROIPercentage:       input.ROIPercentage,
		DurationMonths:      input.DurationMonths,
		BusinessTier:        input.BusinessTier,
	}

	if err := s.businessRepo.Create(ctx, business); err != nil {
		return nil, storeError(err, nil)
	}

	logger.Info("Business listed", map[string]interface{}{
		"business_id":  business.ID,
		"owner_id":     ownerID,
		"funding_goal": business.FundingGoal.String(),
	})
	return business, nil
}

func (s *businessService) detail(ctx context.Context, business *model.Business) (*BusinessDetail, error) {
	count, err := s.investmentRepo.CountInvestors(ctx, business.ID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return &BusinessDetail{
		Business:        *business,
		ProgressPercent: model.Progress(business.AmountRaised, business.FundingGoal),
		Remaining:       business.Remaining(),
		InvestorCount:   count,
	}, nil
}

// GetBusiness accepts either the id or the slug.
func (s *businessService) GetBusiness(ctx context.Context, idOrSlug string) (*BusinessDetail, error) {
	business, err := s.businessRepo.FindByID(ctx, idOrSlug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		business, err = s.businessRepo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	return s.detail(ctx, business)
}

func (s *businessService) ListBusinesses(ctx context.Context, filter repository.BusinessFilter) ([]BusinessDetail, int64, error) {
	if filter.Status == "" {
		filter.Status = model.BusinessStatusActive
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	businesses, total, err := s.businessRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, nil)
	}

	details := make([]BusinessDetail, 0, len(businesses))
	for i := range businesses {
		d, err := s.detail(ctx, &businesses[i])
		if err != nil {
			return nil, 0, err
		}
		details = append(details, *d)
	}
	return details, total, nil
}

func (s *businessService) ListOwnerBusinesses(ctx context.Context, ownerID string) ([]BusinessDetail, error) {
	businesses, err := s.businessRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, nil)
	}

	details := make([]BusinessDetail, 0, len(businesses))
	for i := range businesses {
		d, err := s.detail(ctx, &businesses[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

func (s *businessService) loadOwned(ctx context.Context, actor Actor, businessID string) (*model.Business, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	if business.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return business, nil
}

func (s *businessService) UpdateBusiness(ctx context.Context, actor Actor, businessID string, input UpdateBusinessInput) (*model.Business, error) {
	business, err := s.loadOwned(ctx, actor, businessID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if err := checkLength("name", *input.Name, 2, 100); err != nil {
			return nil, err
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		if !isCategory(*input.Category) {
			return nil, validationError("category must be one of: %s", strings.Join(model.BusinessCategories, ", "))
		}
		fields["category"] = *input.Category
	}
	if input.Description != nil {
		if err := checkLength("description", *input.Description, 20, 500); err != nil {
			return nil, err
		}
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.DetailedDescription != nil {
		if err := checkLength("detailed description", *input.DetailedDescription, 0, 2000); err != nil {
			return nil, err
		}
		fields["detailed_description"] = strings.TrimSpace(*input.DetailedDescription)
	}
	if input.Location != nil {
		fields["location"] = *input.Location
	}
	if input.City != nil {
		fields["city"] = *input.City
	}
	if input.Country != nil {
		fields["country"] = *input.Country
	}
	if input.IsRemote != nil {
		fields["is_remote"] = *input.IsRemote
	}
	if input.ImageURL != nil {
		fields["image_url"] = *input.ImageURL
	}

	termsChanged := input.FundingGoal != nil || input.ROIPercentage != nil || input.RiskLevel != nil ||
		input.DurationMonths != nil || input.BusinessTier != nil
	if termsChanged {
		if business.Status != model.BusinessStatusDraft {
			return nil, validationError("funding terms can only change while the business is a draft")
		}
		goal, roi, risk, months, tier := business.FundingGoal, business.ROIPercentage, business.RiskLevel, business.DurationMonths, business.BusinessTier
		if input.FundingGoal != nil {
			goal = *input.FundingGoal
		}
		if input.ROIPercentage != nil {
			roi = *input.ROIPercentage
		}
		if input.RiskLevel != nil {
			risk = model.RiskLevel(strings.ToLower(string(*input.RiskLevel)))
		}
		if input.DurationMonths != nil {
			months = *input.DurationMonths
		}
		if input.BusinessTier != nil {
			tier = model.BusinessTier(strings.ToLower(string(*input.BusinessTier)))
		}
		if err := s.validateTerms(goal, roi, risk, months, tier); err != nil {
			return nil, err
		}
		fields["funding_goal"] = int64(goal)
		fields["roi_percentage"] = roi
		fields["risk_level"] = risk
		fields["duration_months"] = months
		fields["business_tier"] = tier
	}

	if err := s.businessRepo.UpdateFields(ctx, businessID, fields); err != nil {
		return nil, storeError(err, nil)
	}

	updated, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, storeError(err, ErrBusinessNotFound)
	}
	return updated, nil
}

// CloseBusiness is the manual close by the owner or an administrator.
func (s *businessService) CloseBusiness(ctx context.Context, actor Actor, businessID string) (*model.Business, error) {
	if _, err := s.loadOwned(ctx, actor, businessID); err != nil {
		return nil, err
	}

	result, err := s.lifecycle.Apply(ctx, businessID, EventClose)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		s.notifier.PublishFunding(updateFromBusiness("status", result.Business, time.Now().UTC()))
	}
	return result.Business, nil
}

func (s *businessService) ListBusinessInvestments(ctx context.Context, actor Actor, businessID string) (*model.Business, []model.Investment, error) {
	business, err := s.loadOwned(ctx, actor, businessID)
	if err != nil {
		return nil, nil, err
	}

	investments, err := s.investmentRepo.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, storeError(err, nil)
	}
	return business, investments, nil
}
