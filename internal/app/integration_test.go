package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/controller"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/db"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/internal/router"
	ws "github.com/investly/investly-backend/internal/websocket"
	"github.com/investly/investly-backend/pkg/redis"
	"github.com/investly/investly-backend/pkg/util"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "integration-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
}

func setupIntegrationTest(t *testing.T) *TestServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	idempotency := redis.NewIdempotencyStore(client, time.Hour, time.Minute)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	// Repositories
	businessRepo := repository.NewBusinessRepository(testDB)
	investmentRepo := repository.NewInvestmentRepository(testDB)
	promoRepo := repository.NewPromoCodeRepository(testDB)
	verificationRepo := repository.NewVerificationRepository(testDB)

	// Services
	lifecycle := service.NewLifecycleManager(testDB, businessRepo, investmentRepo, nil)
	guard := service.NewInvestmentGuard(service.InvestmentLimits{Min: model.MustParseMoney("10.00")})
	accumulator := service.NewFundingAccumulator(testDB, businessRepo, investmentRepo, lifecycle, guard,
		service.AccumulatorOptions{Timeout: 5 * time.Second}, nil)
	redeemer := service.NewPromoCodeRedeemer(testDB, promoRepo, businessRepo, nil, 5*time.Second)
	investmentService := service.NewInvestmentService(businessRepo, investmentRepo, guard, redeemer, accumulator, hub, nil)
	businessService := service.NewBusinessService(businessRepo, investmentRepo, lifecycle, hub, model.MustParseMoney("1000.00"))
	verificationService := service.NewVerificationService(testDB, businessRepo, verificationRepo, lifecycle, hub, nil)
	listingFeeService := service.NewListingFeeService(testDB, businessRepo, promoRepo, redeemer, lifecycle, hub, service.ListingFees{
		model.TierBasic:   model.MustParseMoney("99.00"),
		model.TierGrowth:  model.MustParseMoney("249.00"),
		model.TierPremium: model.MustParseMoney("499.00"),
	}, nil)

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	r := router.NewRouter(
		controller.NewBusinessController(businessService),
		controller.NewInvestmentController(investmentService),
		controller.NewVerificationController(verificationService, listingFeeService),
		controller.NewPromoCodeController(redeemer, businessService),
		controller.NewUploadController(nil, businessService),
		controller.NewFundingFeedController(investmentService, hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(testJWTSecret),
		idempotency,
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
		Redis:  mr,
	}
}

func tokenFor(t *testing.T, actorID, role string) string {
	token, err := util.GenerateToken(actorID, actorID+"@example.com", role, testJWTSecret, 15*time.Minute)
	require.NoError(t, err)
	return token
}

func (ts *TestServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func parse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCompleteFundingJourney(t *testing.T) {
	ts := setupIntegrationTest(t)

	owner := tokenFor(t, "owner-7", util.RoleUser)
	investor := tokenFor(t, "investor-7", util.RoleUser)
	admin := tokenFor(t, "admin-7", util.RoleAdmin)

	t.Log("Step 1: Owner creates a draft business")
	w := ts.do(t, http.MethodPost, "/api/v1/businesses", owner, map[string]interface{}{
		"name":            "Riverside Bakery",
		"category":        "Food & Beverage",
		"description":     "Sourdough bakery opening a second oven",
		"funding_goal":    "2000.00",
		"roi_percentage":  "8",
		"risk_level":      "low",
		"duration_months": 12,
		"business_tier":   "basic",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := parse(t, w)
	businessID := created["business_id"].(string)
	assert.Equal(t, "draft", created["status"])

	t.Log("Step 2: Investing in a draft is refused")
	w = ts.do(t, http.MethodPost, "/api/v1/investments", investor, map[string]interface{}{
		"business_id": businessID,
		"amount":      "100.00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_NOT_INVESTABLE", parse(t, w)["error"])

	t.Log("Step 3: Verification, review and listing fee")
	w = ts.do(t, http.MethodPost, "/api/v1/businesses/"+businessID+"/verification", owner, map[string]interface{}{
		"document_ref":  "verifications/" + businessID + "/license.pdf",
		"document_type": "business_license",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/businesses/"+businessID+"/verification/review", owner, map[string]interface{}{
		"decision": "approve",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_ADMIN_ONLY", parse(t, w)["error"])

	w = ts.do(t, http.MethodPost, "/api/v1/businesses/"+businessID+"/verification/review", admin, map[string]interface{}{
		"decision": "approve",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/businesses/"+businessID+"/listing-fee", owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, parse(t, w)["activated"])

	t.Log("Step 4: Owner cannot invest in their own business")
	w = ts.do(t, http.MethodPost, "/api/v1/investments", owner, map[string]interface{}{
		"business_id": businessID,
		"amount":      "100.00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_SELF_INVESTMENT", parse(t, w)["error"])

	t.Log("Step 5: Investor invests with an idempotency key, then retries")
	w = ts.do(t, http.MethodPost, "/api/v1/investments", investor, map[string]interface{}{
		"business_id": businessID,
		"amount":      "1500.00",
	}, middleware.IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := parse(t, w)
	assert.Equal(t, "1500.00", first["new_amount_raised"])

	w = ts.do(t, http.MethodPost, "/api/v1/investments", investor, map[string]interface{}{
		"business_id": businessID,
		"amount":      "1500.00",
	}, middleware.IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.ReplayedHeader))
	assert.Equal(t, first["investment_id"], parse(t, w)["investment_id"])

	var count int64
	require.NoError(t, ts.DB.Model(&model.Investment{}).Where("business_id = ?", businessID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	t.Log("Step 6: Over-funding is refused, exact remainder funds the business")
	w = ts.do(t, http.MethodPost, "/api/v1/investments", investor, map[string]interface{}{
		"business_id": businessID,
		"amount":      "600.00",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "FUNDING_GOAL_EXCEEDED", parse(t, w)["error"])

	w = ts.do(t, http.MethodPost, "/api/v1/investments", investor, map[string]interface{}{
		"business_id": businessID,
		"amount":      "500.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "funded", parse(t, w)["business_status"])

	t.Log("Step 7: Public view and portfolio")
	w = ts.do(t, http.MethodGet, "/api/v1/businesses/"+businessID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/me/investments", investor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	portfolio := parse(t, w)
	assert.Len(t, portfolio["investments"], 2)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := setupIntegrationTest(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", parse(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := setupIntegrationTest(t)

	for _, path := range []string{"/api/v1/me/investments", "/api/v1/me/businesses"} {
		w := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := ts.do(t, http.MethodPost, "/api/v1/uploads/verification-documents", tokenFor(t, "owner-8", util.RoleUser), map[string]interface{}{
		"business_id":  "x",
		"filename":     "a.pdf",
		"content_type": "application/pdf",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
