package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/controller"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/clock"
	"github.com/investly/investly-backend/internal/db"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/internal/router"
	"github.com/investly/investly-backend/internal/scheduler"
	"github.com/investly/investly-backend/internal/storage"
	"github.com/investly/investly-backend/internal/websocket"
	"github.com/investly/investly-backend/pkg/logger"
	"github.com/investly/investly-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting Investly Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	sqlDB, err := db.GetDB().DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", err)
	}
	metrics.Init(sqlDB)

	// Redis is optional; without it investments are not replay-protected.
	var idempotency *redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, idempotent replay disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redis.Close()
			idempotency = redis.NewIdempotencyStore(redis.GetClient(), cfg.Redis.IdempotencyTTL, cfg.Redis.PendingTTL)
		}
	}

	// Ledger rules
	limits, err := service.LimitsFromConfig(cfg.Ledger)
	if err != nil {
		logger.Fatal("Invalid investment limits", err)
	}
	fees, err := service.FeesFromConfig(cfg.Ledger)
	if err != nil {
		logger.Fatal("Invalid listing fees", err)
	}
	tolerance, err := model.MoneyFromDecimal(cfg.Ledger.OverfundTolerance)
	if err != nil {
		logger.Fatal("Invalid overfund tolerance", err)
	}
	minGoal, err := model.MoneyFromDecimal(cfg.Ledger.MinFundingGoal)
	if err != nil {
		logger.Fatal("Invalid minimum funding goal", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	clk := clock.New()
	database := db.GetDB()

	// Initialize repositories
	businessRepo := repository.NewBusinessRepository(database)
	investmentRepo := repository.NewInvestmentRepository(database)
	promoRepo := repository.NewPromoCodeRepository(database)
	verificationRepo := repository.NewVerificationRepository(database)

	// Initialize services
	lifecycle := service.NewLifecycleManager(database, businessRepo, investmentRepo, clk)
	guard := service.NewInvestmentGuard(limits)
	accumulator := service.NewFundingAccumulator(database, businessRepo, investmentRepo, lifecycle, guard,
		service.AccumulatorOptions{Tolerance: tolerance, Timeout: cfg.Ledger.OperationTimeout}, clk)
	redeemer := service.NewPromoCodeRedeemer(database, promoRepo, businessRepo, clk, cfg.Ledger.OperationTimeout)
	investmentService := service.NewInvestmentService(businessRepo, investmentRepo, guard, redeemer, accumulator, hub, clk)
	businessService := service.NewBusinessService(businessRepo, investmentRepo, lifecycle, hub, minGoal)
	verificationService := service.NewVerificationService(database, businessRepo, verificationRepo, lifecycle, hub, clk)
	listingFeeService := service.NewListingFeeService(database, businessRepo, promoRepo, redeemer, lifecycle, hub, fees, clk)

	var s3Storage *storage.S3Storage
	if cfg.S3.Bucket != "" {
		s3Storage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			logger.Warn("S3 storage unavailable, document uploads disabled", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Initialize controllers
	businessController := controller.NewBusinessController(businessService)
	investmentController := controller.NewInvestmentController(investmentService)
	verificationController := controller.NewVerificationController(verificationService, listingFeeService)
	promoCodeController := controller.NewPromoCodeController(redeemer, businessService)
	uploadController := controller.NewUploadController(s3Storage, businessService)
	fundingFeedController := controller.NewFundingFeedController(investmentService, hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		businessController,
		investmentController,
		verificationController,
		promoCodeController,
		uploadController,
		fundingFeedController,
		authMiddleware,
		idempotency,
		cfg,
	)
	engine := r.Setup()

	if cfg.Scheduler.Enabled {
		deadlines := scheduler.NewFundingDeadlineScheduler(cfg.Scheduler.DeadlineSweep, lifecycle, hub)
		if err := deadlines.Start(); err != nil {
			logger.Fatal("Failed to start funding deadline scheduler", err)
		}
		defer deadlines.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
