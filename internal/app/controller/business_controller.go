package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/internal/spreadsheet"
)

type BusinessController struct {
	businessService service.BusinessService
}

func NewBusinessController(businessService service.BusinessService) *BusinessController {
	return &BusinessController{businessService: businessService}
}

// CreateBusinessRequest lets an admin create a listing on behalf of owner_id;
// everyone else owns what they create.
type CreateBusinessRequest struct {
	OwnerID string `json:"owner_id"`
	service.CreateBusinessInput
}

// CreateBusiness
// POST /api/v1/businesses
func (ctrl *BusinessController) CreateBusiness(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	ownerID := actor.ID
	if req.OwnerID != "" && req.OwnerID != actor.ID {
		if !actor.IsAdmin() {
			errors.Forbidden(c, "cannot create a business for another owner")
			return
		}
		ownerID = req.OwnerID
	}

	business, err := ctrl.businessService.CreateBusiness(c.Request.Context(), ownerID, req.CreateBusinessInput)
	if err != nil {
		errors.ParseAndRespond(c, err, "create business")
		return
	}

	log.Info("Business created", map[string]interface{}{
		"business_id": business.ID,
		"owner_id":    ownerID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"business_id": business.ID,
		"status":      business.Status,
		"business":    business,
	})
}

// ListBusinesses browses listings; only active ones unless a status is given.
// GET /api/v1/businesses
func (ctrl *BusinessController) ListBusinesses(c *gin.Context) {
	filter := repository.BusinessFilter{
		Status:    model.BusinessStatus(c.Query("status")),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		RiskLevel: model.RiskLevel(c.Query("risk_level")),
		Sort:      c.DefaultQuery("sort", "newest"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		errors.BadRequest(c, errors.ValidationInvalidFormat, "unknown status")
		return
	}

	businesses, total, err := ctrl.businessService.ListBusinesses(c.Request.Context(), filter)
	if err != nil {
		errors.ParseAndRespond(c, err, "list businesses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"businesses": businesses,
		"count":      len(businesses),
		"total":      total,
		"page":       filter.Page,
	})
}

// GetBusiness accepts an id or a slug.
// GET /api/v1/businesses/:id
func (ctrl *BusinessController) GetBusiness(c *gin.Context) {
	business, err := ctrl.businessService.GetBusiness(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "get business")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"business": business,
	})
}

// MyBusinesses
// GET /api/v1/me/businesses
func (ctrl *BusinessController) MyBusinesses(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	businesses, err := ctrl.businessService.ListOwnerBusinesses(c.Request.Context(), actor.ID)
	if err != nil {
		errors.ParseAndRespond(c, err, "list my businesses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"businesses": businesses,
		"count":      len(businesses),
	})
}

// UpdateBusiness
// PUT /api/v1/businesses/:id
func (ctrl *BusinessController) UpdateBusiness(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.UpdateBusinessInput
	if !bindJSON(c, &input) {
		return
	}

	business, err := ctrl.businessService.UpdateBusiness(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		errors.ParseAndRespond(c, err, "update business")
		return
	}

	log.Info("Business updated", map[string]interface{}{
		"business_id": business.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"business": business,
	})
}

// CloseBusiness
// POST /api/v1/businesses/:id/close
func (ctrl *BusinessController) CloseBusiness(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	business, err := ctrl.businessService.CloseBusiness(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "close business")
		return
	}

	log.Info("Business closed", map[string]interface{}{
		"business_id": business.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"business_id": business.ID,
		"status":      business.Status,
	})
}

// ListInvestments is visible to the owner and admins.
// GET /api/v1/businesses/:id/investments
func (ctrl *BusinessController) ListInvestments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	business, investments, err := ctrl.businessService.ListBusinessInvestments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "list business investments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"business_id":   business.ID,
		"amount_raised": business.AmountRaised,
		"investments":   investments,
		"count":         len(investments),
	})
}

// ExportInvestments
// GET /api/v1/businesses/:id/investments/export
func (ctrl *BusinessController) ExportInvestments(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	business, investments, err := ctrl.businessService.ListBusinessInvestments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		errors.ParseAndRespond(c, err, "export business investments")
		return
	}

	data, err := spreadsheet.BuildInvestmentsXLSX(business, investments, time.Now())
	if err != nil {
		log.Error("Failed to build investments export", err, map[string]interface{}{
			"business_id": business.ID,
		})
		errors.InternalError(c, "failed to build export")
		return
	}

	filename := fmt.Sprintf("%s-investments.xlsx", business.Slug)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
