package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
)

// VerificationController covers the onboarding steps of a business:
// document submission, admin review and the listing fee.
type VerificationController struct {
	verificationService service.VerificationService
	listingFeeService   service.ListingFeeService
}

func NewVerificationController(verificationService service.VerificationService, listingFeeService service.ListingFeeService) *VerificationController {
	return &VerificationController{
		verificationService: verificationService,
		listingFeeService:   listingFeeService,
	}
}

// SubmitVerification
// POST /api/v1/businesses/:id/verification
func (ctrl *VerificationController) SubmitVerification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.SubmitVerificationInput
	if !bindJSON(c, &input) {
		return
	}

	outcome, err := ctrl.verificationService.Submit(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		errors.ParseAndRespond(c, err, "submit verification")
		return
	}

	log.Info("Verification submitted", map[string]interface{}{
		"business_id":     outcome.Business.ID,
		"verification_id": outcome.Verification.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"verification":        outcome.Verification,
		"verification_status": outcome.Business.VerificationStatus,
		"business_status":     outcome.Business.Status,
	})
}

// ReviewVerification
// POST /api/v1/businesses/:id/verification/review
func (ctrl *VerificationController) ReviewVerification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.ReviewVerificationInput
	if !bindJSON(c, &input) {
		return
	}

	outcome, err := ctrl.verificationService.Review(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		errors.ParseAndRespond(c, err, "review verification")
		return
	}

	log.Info("Verification reviewed", map[string]interface{}{
		"business_id": outcome.Business.ID,
		"decision":    input.Decision,
		"activated":   outcome.Activated,
	})

	c.JSON(http.StatusOK, gin.H{
		"verification":        outcome.Verification,
		"verification_status": outcome.Business.VerificationStatus,
		"business_status":     outcome.Business.Status,
		"activated":           outcome.Activated,
	})
}

// ListVerifications
// GET /api/v1/businesses/:id/verifications
func (ctrl *VerificationController) ListVerifications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	verifications, err := ctrl.verificationService.ListVerifications(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "list verifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verifications": verifications,
		"count":         len(verifications),
	})
}

// QuoteListingFee prices the fee without consuming a promo code.
// GET /api/v1/businesses/:id/listing-fee?promo_code=
func (ctrl *VerificationController) QuoteListingFee(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var promo *string
	if code := c.Query("promo_code"); code != "" {
		promo = &code
	}

	quote, err := ctrl.listingFeeService.Quote(c.Request.Context(), actor, c.Param("id"), promo)
	if err != nil {
		errors.ParseAndRespond(c, err, "quote listing fee")
		return
	}

	c.JSON(http.StatusOK, quote)
}

// PayListingFee
// POST /api/v1/businesses/:id/listing-fee
func (ctrl *VerificationController) PayListingFee(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.PayListingFeeInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
		return
	}

	payment, err := ctrl.listingFeeService.PayListingFee(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		errors.ParseAndRespond(c, err, "pay listing fee")
		return
	}

	log.Info("Listing fee paid", map[string]interface{}{
		"business_id": payment.Business.ID,
		"amount":      payment.Quote.Amount.String(),
		"activated":   payment.Activated,
	})

	c.JSON(http.StatusOK, payment)
}
