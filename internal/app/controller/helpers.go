package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/middleware"
)

// requireActor returns the authenticated actor or writes 401.
func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Actor not found in context", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		errors.Unauthorized(c, "")
		return service.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "invalid request data: "+err.Error())
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
