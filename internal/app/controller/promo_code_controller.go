package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/internal/spreadsheet"
)

const maxImportSize = 5 << 20

type PromoCodeController struct {
	redeemer        service.PromoCodeRedeemer
	businessService service.BusinessService
}

func NewPromoCodeController(redeemer service.PromoCodeRedeemer, businessService service.BusinessService) *PromoCodeController {
	return &PromoCodeController{
		redeemer:        redeemer,
		businessService: businessService,
	}
}

type CorrectUsesRequest struct {
	CurrentUses *int `json:"current_uses" binding:"required"`
}

type RedeemRequest struct {
	BusinessID string `json:"business_id" binding:"required"`
}

// CreatePromoCode
// POST /api/v1/promo-codes
func (ctrl *PromoCodeController) CreatePromoCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.CreatePromoCodeInput
	if !bindJSON(c, &input) {
		return
	}

	promo, err := ctrl.redeemer.CreatePromoCode(c.Request.Context(), input, actor.ID)
	if err != nil {
		errors.ParseAndRespond(c, err, "create promo code")
		return
	}

	log.Info("Promo code created", map[string]interface{}{
		"code": promo.Code,
	})

	c.JSON(http.StatusCreated, gin.H{
		"promo_code": promo,
	})
}

// ImportPromoCodes bulk-creates codes from an uploaded XLSX sheet.
// POST /api/v1/promo-codes/import (multipart field "file")
func (ctrl *PromoCodeController) ImportPromoCodes(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "file is required")
		return
	}
	if header.Size > maxImportSize {
		errors.BadRequest(c, errors.UploadFileTooLarge, "file is too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		errors.InternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	inputs, skipped, err := spreadsheet.ReadPromoCodes(file)
	if err != nil {
		errors.BadRequest(c, errors.UploadInvalidFileType, err.Error())
		return
	}

	created, err := ctrl.redeemer.ImportPromoCodes(c.Request.Context(), inputs, actor.ID)
	if err != nil {
		errors.ParseAndRespond(c, err, "import promo codes")
		return
	}

	reasons := make([]string, 0, len(skipped))
	for _, s := range skipped {
		reasons = append(reasons, s.Error())
	}

	log.Info("Promo codes imported", map[string]interface{}{
		"rows":    len(inputs),
		"created": created,
		"skipped": len(skipped),
	})

	c.JSON(http.StatusOK, gin.H{
		"created": created,
		"skipped": reasons,
	})
}

// ListPromoCodes
// GET /api/v1/promo-codes
func (ctrl *PromoCodeController) ListPromoCodes(c *gin.Context) {
	promos, err := ctrl.redeemer.ListPromoCodes(c.Request.Context())
	if err != nil {
		errors.ParseAndRespond(c, err, "list promo codes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"promo_codes": promos,
		"count":       len(promos),
	})
}

// GetPromoCode
// GET /api/v1/promo-codes/:code
func (ctrl *PromoCodeController) GetPromoCode(c *gin.Context) {
	promo, err := ctrl.redeemer.GetPromoCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		errors.ParseAndRespond(c, err, "get promo code")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"promo_code": promo,
	})
}

// CorrectUses overrides the usage counter.
// PUT /api/v1/promo-codes/:code/uses
func (ctrl *PromoCodeController) CorrectUses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CorrectUsesRequest
	if !bindJSON(c, &req) {
		return
	}

	promo, err := ctrl.redeemer.CorrectUses(c.Request.Context(), c.Param("code"), *req.CurrentUses)
	if err != nil {
		errors.ParseAndRespond(c, err, "correct promo code uses")
		return
	}

	log.Info("Promo code uses corrected", map[string]interface{}{
		"code":         promo.Code,
		"current_uses": promo.CurrentUses,
	})

	c.JSON(http.StatusOK, gin.H{
		"promo_code": promo,
	})
}

// Redeem consumes one use of the code for a business the actor owns.
// POST /api/v1/promo-codes/:code/redeem
func (ctrl *PromoCodeController) Redeem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req RedeemRequest
	if !bindJSON(c, &req) {
		return
	}

	business, err := ctrl.businessService.GetBusiness(c.Request.Context(), req.BusinessID)
	if err != nil {
		errors.ParseAndRespond(c, err, "redeem promo code")
		return
	}
	if business.OwnerID != actor.ID && !actor.IsAdmin() {
		errors.Forbidden(c, "only the business owner can redeem a code for it")
		return
	}

	applied, err := ctrl.redeemer.Redeem(c.Request.Context(), c.Param("code"), business.ID)
	if err != nil {
		errors.ParseAndRespond(c, err, "redeem promo code")
		return
	}

	log.Info("Promo code redeemed", map[string]interface{}{
		"code":        applied.Code,
		"business_id": applied.BusinessID,
	})

	c.JSON(http.StatusOK, applied)
}
