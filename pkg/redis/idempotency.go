package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/investly/investly-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	pendingMarker = "pending"

	// claimAttempts bounds the SETNX/GET race with a key expiring in between.
	claimAttempts = 2

	defaultPendingTTL = time.Minute
)

// Deletes the key only while it still holds the pending marker, so a
// completed response is never thrown away by a late abandon.
const abandonScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrRequestInFlight    = errors.New("a request with this idempotency key is still in progress")
	ErrStoreNotConfigured = errors.New("idempotency store not configured")
	ErrClaimContended     = errors.New("idempotency key changed while being claimed")
)

// StoredResponse is the replayable result of a completed request.
type StoredResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// IdempotencyStore remembers the first successful response per key. A claim
// that is never completed or abandoned lapses after pendingTTL; a stored
// response is kept for ttl.
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	script     *redis.Script
}

func NewIdempotencyStore(c *redis.Client, ttl, pendingTTL time.Duration) *IdempotencyStore {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	if pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &IdempotencyStore{
		client:     c,
		ttl:        ttl,
		pendingTTL: pendingTTL,
		script:     redis.NewScript(abandonScript),
	}
}

func storeKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}

// Begin claims the key for the caller. It returns (nil, nil) when the caller
// owns the key and must run the request, the stored response when one was
// already completed, and ErrRequestInFlight while another owner is running.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, key string) (*StoredResponse, error) {
	if s == nil || s.client == nil {
		return nil, ErrStoreNotConfigured
	}

	k := storeKey(scope, key)
	for attempt := 0; attempt < claimAttempts; attempt++ {
		claimed, err := s.client.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			logger.Error("Failed to claim idempotency key", err, map[string]interface{}{
				"key": k,
			})
			return nil, err
		}
		if claimed {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired or abandoned between SETNX and GET
			continue
		}
		if err != nil {
			return nil, err
		}
		if raw == pendingMarker {
			return nil, ErrRequestInFlight
		}

		var stored StoredResponse
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("corrupt idempotency record %s: %w", k, err)
		}
		logger.Debug("Replaying stored response", map[string]interface{}{
			"key":         k,
			"status_code": stored.StatusCode,
		})
		return &stored, nil
	}
	return nil, ErrClaimContended
}

// Complete stores the response for later replays.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, statusCode int, body []byte) error {
	if s == nil || s.client == nil {
		return ErrStoreNotConfigured
	}
	if len(body) == 0 {
		body = nil
	}
	payload, err := json.Marshal(StoredResponse{StatusCode: statusCode, Body: body})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, storeKey(scope, key), payload, s.ttl).Err()
}

// Abandon releases a claimed key after a failed request so it can be retried.
func (s *IdempotencyStore) Abandon(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.script.Run(ctx, s.client, []string{storeKey(scope, key)}, pendingMarker).Err()
}
