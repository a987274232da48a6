package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
)

type InvestmentController struct {
	investmentService service.InvestmentService
}

func NewInvestmentController(investmentService service.InvestmentService) *InvestmentController {
	return &InvestmentController{investmentService: investmentService}
}

type InvestRequest struct {
	BusinessID string      `json:"business_id" binding:"required"`
	InvestorID string      `json:"investor_id"`
	Amount     model.Money `json:"amount" binding:"required"`
	PromoCode  *string     `json:"promo_code"`
}

// Invest records an investment for the authenticated actor.
// POST /api/v1/investments
func (ctrl *InvestmentController) Invest(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req InvestRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.InvestorID != "" && req.InvestorID != actor.ID {
		log.Warn("Investor mismatch", map[string]interface{}{
			"actor_id":    actor.ID,
			"investor_id": req.InvestorID,
		})
		errors.Forbidden(c, "investor_id must match the authenticated user")
		return
	}

	if req.PromoCode != nil && strings.TrimSpace(*req.PromoCode) == "" {
		req.PromoCode = nil
	}

	result, err := ctrl.investmentService.Invest(c.Request.Context(), service.InvestRequest{
		BusinessID: req.BusinessID,
		InvestorID: actor.ID,
		Amount:     req.Amount,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		errors.ParseAndRespond(c, err, "invest")
		return
	}

	log.Info("Investment recorded", map[string]interface{}{
		"investment_id":   result.InvestmentID,
		"business_id":     req.BusinessID,
		"business_status": result.BusinessStatus,
	})

	c.JSON(http.StatusCreated, result)
}

// Refund reverses an active investment.
// POST /api/v1/investments/:id/refund
func (ctrl *InvestmentController) Refund(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	record, err := ctrl.investmentService.Refund(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "refund investment")
		return
	}

	log.Info("Investment refunded", map[string]interface{}{
		"investment_id": c.Param("id"),
		"business_id":   record.BusinessID,
	})

	c.JSON(http.StatusOK, gin.H{
		"investment":        record.Investment,
		"new_amount_raised": record.NewAmountRaised,
		"business_status":   record.BusinessStatus,
	})
}

// MyInvestments
// GET /api/v1/me/investments
func (ctrl *InvestmentController) MyInvestments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	portfolio, err := ctrl.investmentService.GetPortfolio(c.Request.Context(), actor.ID)
	if err != nil {
		errors.ParseAndRespond(c, err, "get portfolio")
		return
	}

	c.JSON(http.StatusOK, portfolio)
}
