package middleware

import (
	"bytes"
	"context"
	goerrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investly/investly-backend/internal/errors"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key from the same actor on the same route. Requests without the
// header, or with no store configured, pass straight through. When redis is
// unreachable the request runs without replay protection.
func Idempotency(store *redis.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			errors.BadRequest(c, errors.ValidationInvalidFormat, "Idempotency-Key is too long")
			c.Abort()
			return
		}

		log := GetLoggerFromContext(c)
		userID, _ := GetUserID(c)
		scope := userID + ":" + c.Request.Method + ":" + c.FullPath()

		stored, err := store.Begin(c.Request.Context(), scope, key)
		switch {
		case goerrors.Is(err, redis.ErrRequestInFlight):
			errors.Conflict(c, errors.InvestmentInFlight, "a request with this Idempotency-Key is still being processed")
			c.Abort()
			return
		case err != nil:
			log.Warn("Idempotency store unavailable, continuing without replay", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		case stored != nil:
			metrics.IncIdempotentReplay()
			c.Header(ReplayedHeader, "true")
			c.Data(stored.StatusCode, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// the ledger write may have committed even if the client went away
		ctx := context.WithoutCancel(c.Request.Context())
		status := writer.Status()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			if err := store.Complete(ctx, scope, key, status, writer.body.Bytes()); err != nil {
				log.Error("Failed to store idempotent response", err, map[string]interface{}{
					"scope": scope,
				})
			}
			return
		}
		if err := store.Abandon(ctx, scope, key); err != nil {
			log.Warn("Failed to release idempotency key", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
		}
	}
}
