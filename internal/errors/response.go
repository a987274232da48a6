package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/pkg/logger"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error     string `json:"error"`   // error code for client side mapping
	Message   string `json:"message"` // user facing message
	Retryable bool   `json:"retryable,omitempty"`
}

// RespondWithError writes an error body with an explicit status and code.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// Shortcuts for the common cases.

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "an unexpected error occurred; try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError lists per-field problems.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "input is invalid",
		Fields:  fields,
	})
}

// ParseAndRespond parses err and writes the matching status and body.
// Server side failures are logged with their cause.
func ParseAndRespond(c *gin.Context, err error, context string) {
	info := ParseError(err, context)
	if info.Status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, map[string]interface{}{
			"context": context,
			"code":    info.Code,
			"path":    c.FullPath(),
		})
	}
	if info.Retryable {
		c.Header("Retry-After", "1")
	}
	c.JSON(info.Status, ErrorResponse{
		Error:     info.Code,
		Message:   info.Message,
		Retryable: info.Retryable,
	})
}
