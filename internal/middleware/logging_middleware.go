package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/investly/investly-backend/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// health and metrics paths are scraped constantly and only logged at debug level
var scrapePaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		log := logger.WithContext(map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
		})

		scraped := scrapePaths[c.Request.URL.Path]
		if !scraped {
			log.Info("Incoming request", map[string]interface{}{
				"user_agent": c.Request.UserAgent(),
				"query":      c.Request.URL.RawQuery,
			})
		}

		c.Set("logger", log)

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"route":       c.FullPath(),
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"body_size":   c.Writer.Size(),
		}
		if actor, ok := GetActor(c); ok {
			fields["user_id"] = actor.ID
			fields["role"] = actor.Role
		}
		if c.Writer.Header().Get(ReplayedHeader) != "" {
			fields["idempotent_replay"] = true
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		msg := "Request completed"
		if scraped && statusCode < 400 {
			log.Debug(msg, fields)
		} else if statusCode >= 500 {
			log.Error(msg, nil, fields)
		} else if statusCode >= 400 {
			log.Warn(msg, fields)
		} else {
			log.Info(msg, fields)
		}
	}
}

// GetLoggerFromContext retrieves the request logger from gin context
func GetLoggerFromContext(c *gin.Context) *logger.Logger {
	if log, exists := c.Get("logger"); exists {
		if l, ok := log.(*logger.Logger); ok {
			return l
		}
	}
	return logger.Get()
}
