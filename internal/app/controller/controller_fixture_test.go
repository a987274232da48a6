package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/db"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testOwnerID    = "owner-1"
	testInvestorID = "investor-1"
	testAdminID    = "admin-1"
)

type controllerFixture struct {
	db           *gorm.DB
	router       *gin.Engine
	businessRepo repository.BusinessRepository
	promoRepo    repository.PromoCodeRepository

	businesses    service.BusinessService
	investments   service.InvestmentService
	verifications service.VerificationService
	fees          service.ListingFeeService
	redeemer      service.PromoCodeRedeemer
}

func setupControllerTest(t *testing.T, notifier service.FundingNotifier) *controllerFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	businessRepo := repository.NewBusinessRepository(testDB)
	investmentRepo := repository.NewInvestmentRepository(testDB)
	promoRepo := repository.NewPromoCodeRepository(testDB)
	verificationRepo := repository.NewVerificationRepository(testDB)

	lifecycle := service.NewLifecycleManager(testDB, businessRepo, investmentRepo, nil)
	guard := service.NewInvestmentGuard(service.InvestmentLimits{Min: model.MustParseMoney("1.00")})
	accumulator := service.NewFundingAccumulator(testDB, businessRepo, investmentRepo, lifecycle, guard,
		service.AccumulatorOptions{Timeout: 5 * time.Second}, nil)
	redeemer := service.NewPromoCodeRedeemer(testDB, promoRepo, businessRepo, nil, 5*time.Second)

	f := &controllerFixture{
		db:           testDB,
		businessRepo: businessRepo,
		promoRepo:    promoRepo,
		redeemer:     redeemer,
	}
	f.investments = service.NewInvestmentService(businessRepo, investmentRepo, guard, redeemer, accumulator, notifier, nil)
	f.businesses = service.NewBusinessService(businessRepo, investmentRepo, lifecycle, notifier, model.MustParseMoney("1000.00"))
	f.verifications = service.NewVerificationService(testDB, businessRepo, verificationRepo, lifecycle, notifier, nil)
	f.fees = service.NewListingFeeService(testDB, businessRepo, promoRepo, redeemer, lifecycle, notifier, service.ListingFees{
		model.TierBasic:   model.MustParseMoney("99.00"),
		model.TierGrowth:  model.MustParseMoney("249.00"),
		model.TierPremium: model.MustParseMoney("499.00"),
	}, nil)

	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	return f
}

// asActor stands in for the auth middleware.
func asActor(id, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

var (
	asOwner    = asActor(testOwnerID, util.RoleUser)
	asInvestor = asActor(testInvestorID, util.RoleUser)
	asAdmin    = asActor(testAdminID, util.RoleAdmin)
)

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *controllerFixture) seedActiveBusiness(t *testing.T, goal string) *model.Business {
	t.Helper()
	now := time.Now().UTC()
	closes := now.AddDate(0, 6, 0)
	business := &model.Business{
		OwnerID:            testOwnerID,
		Name:               "Harbour Coffee",
		Category:           "Food & Beverage",
		Description:        "Specialty coffee cart at the ferry terminal",
		FundingGoal:        model.MustParseMoney(goal),
		Status:             model.BusinessStatusActive,
		RiskLevel:          model.RiskMedium,
		ROIPercentage:      decimal.NewFromInt(10),
		DurationMonths:     6,
		BusinessTier:       model.TierBasic,
		ListingFeePaid:     true,
		VerificationStatus: model.VerificationApproved,
		ActivatedAt:        &now,
		ClosesAt:           &closes,
	}
	require.NoError(t, f.businessRepo.Create(context.Background(), business))
	return business
}
