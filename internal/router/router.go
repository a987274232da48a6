package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/controller"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/pkg/redis"
	"github.com/investly/investly-backend/pkg/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	businessController     *controller.BusinessController
	investmentController   *controller.InvestmentController
	verificationController *controller.VerificationController
	promoCodeController    *controller.PromoCodeController
	uploadController       *controller.UploadController
	fundingFeedController  *controller.FundingFeedController
	authMiddleware         *middleware.AuthMiddleware
	idempotency            *redis.IdempotencyStore
	config                 *config.Config
}

func NewRouter(
	businessController *controller.BusinessController,
	investmentController *controller.InvestmentController,
	verificationController *controller.VerificationController,
	promoCodeController *controller.PromoCodeController,
	uploadController *controller.UploadController,
	fundingFeedController *controller.FundingFeedController,
	authMiddleware *middleware.AuthMiddleware,
	idempotency *redis.IdempotencyStore,
	cfg *config.Config,
) *Router {
	return &Router{
		businessController:     businessController,
		investmentController:   investmentController,
		verificationController: verificationController,
		promoCodeController:    promoCodeController,
		uploadController:       uploadController,
		fundingFeedController:  fundingFeedController,
		authMiddleware:         authMiddleware,
		idempotency:            idempotency,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Investly API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole(util.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		businesses := v1.Group("/businesses")
		{
			businesses.GET("", r.authMiddleware.OptionalAuthenticate(), r.businessController.ListBusinesses)
			businesses.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.businessController.GetBusiness)
			businesses.GET("/:id/live", authenticated, r.fundingFeedController.Subscribe)

			owned := businesses.Group("")
			owned.Use(authenticated)
			{
				owned.POST("", r.businessController.CreateBusiness)
				owned.PUT("/:id", r.businessController.UpdateBusiness)
				owned.POST("/:id/close", r.businessController.CloseBusiness)
				owned.GET("/:id/investments", r.businessController.ListInvestments)
				owned.GET("/:id/investments/export", r.businessController.ExportInvestments)
				owned.POST("/:id/verification", r.verificationController.SubmitVerification)
				owned.GET("/:id/verifications", r.verificationController.ListVerifications)
				owned.POST("/:id/verification/review", adminOnly, r.verificationController.ReviewVerification)
				owned.GET("/:id/listing-fee", r.verificationController.QuoteListingFee)
				owned.POST("/:id/listing-fee", r.verificationController.PayListingFee)
			}
		}

		investments := v1.Group("/investments")
		investments.Use(authenticated)
		{
			investments.POST("", middleware.Idempotency(r.idempotency), r.investmentController.Invest)
			investments.POST("/:id/refund", adminOnly, r.investmentController.Refund)
		}

		me := v1.Group("/me")
		me.Use(authenticated)
		{
			me.GET("/investments", r.investmentController.MyInvestments)
			me.GET("/businesses", r.businessController.MyBusinesses)
		}

		promoCodes := v1.Group("/promo-codes")
		promoCodes.Use(authenticated)
		{
			promoCodes.POST("/:code/redeem", r.promoCodeController.Redeem)

			promoCodes.POST("", adminOnly, r.promoCodeController.CreatePromoCode)
			promoCodes.POST("/import", adminOnly, r.promoCodeController.ImportPromoCodes)
			promoCodes.GET("", adminOnly, r.promoCodeController.ListPromoCodes)
			promoCodes.GET("/:code", adminOnly, r.promoCodeController.GetPromoCode)
			promoCodes.PUT("/:code/uses", adminOnly, r.promoCodeController.CorrectUses)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(authenticated)
		{
			uploads.POST("/verification-documents", r.uploadController.PresignVerificationDocument)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Idempotent-Replayed")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
