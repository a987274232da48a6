package controller

import (
	goerrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
	"github.com/investly/investly-backend/internal/storage"
)

type UploadController struct {
	storage         *storage.S3Storage
	businessService service.BusinessService
}

func NewUploadController(storage *storage.S3Storage, businessService service.BusinessService) *UploadController {
	return &UploadController{
		storage:         storage,
		businessService: businessService,
	}
}

type VerificationUploadRequest struct {
	BusinessID  string `json:"business_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size"`
}

// PresignVerificationDocument issues a presigned PUT for a verification
// document of a business the actor owns. The returned key is submitted later
// as document_ref.
// POST /api/v1/uploads/verification-documents
func (ctrl *UploadController) PresignVerificationDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.storage == nil {
		errors.RespondWithError(c, http.StatusServiceUnavailable, errors.InternalConfigError, "document uploads are not configured")
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req VerificationUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := storage.ValidateContentType(req.ContentType); err != nil {
		log.Warn("Invalid content type", map[string]interface{}{
			"content_type": req.ContentType,
		})
		errors.BadRequest(c, errors.UploadInvalidFileType, "only PDF, JPEG, PNG and WEBP documents are allowed")
		return
	}
	if err := storage.ValidateFileSize(req.Size); err != nil {
		errors.BadRequest(c, errors.UploadFileTooLarge, err.Error())
		return
	}

	business, err := ctrl.businessService.GetBusiness(c.Request.Context(), req.BusinessID)
	if err != nil {
		errors.ParseAndRespond(c, err, "presign verification document")
		return
	}
	if business.OwnerID != actor.ID && !actor.IsAdmin() {
		errors.Forbidden(c, "only the business owner can upload verification documents")
		return
	}

	upload, err := ctrl.storage.PresignVerificationUpload(c.Request.Context(), business.ID, req.Filename, req.ContentType)
	if err != nil {
		if goerrors.Is(err, storage.ErrContentTypeNotAllowed) {
			errors.BadRequest(c, errors.UploadInvalidFileType, err.Error())
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"business_id": business.ID,
			"filename":    req.Filename,
		})
		errors.RespondWithError(c, http.StatusInternalServerError, errors.UploadFailed, "failed to generate upload URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"business_id": business.ID,
		"key":         upload.Key,
	})

	c.JSON(http.StatusOK, upload)
}
