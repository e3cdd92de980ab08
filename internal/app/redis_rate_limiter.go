/**
 * @description
 * This file implements the distributed attempt limiter backed by Redis. The
 * limiter guards the credential-bearing operations (link handshake, direct
 * transfer) against brute-force attempts by counting attempts per scope and
 * subject inside a fixed window, atomically via a Lua script.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// countWindowScript counts the attempt and reports how long the current
// window still has to live, in one atomic round trip. The window is armed on
// the first attempt only; a key that somehow lost its expiry reports the full
// window instead of a negative TTL.
var countWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local remaining = redis.call("PTTL", KEYS[1])
if remaining < 0 then
  remaining = tonumber(ARGV[1])
end
return {n, remaining}
`)

// RedisRateLimiter implements RateLimiter on a shared Redis instance so the
// attempt counts hold across every replica of the service.
type RedisRateLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, keyPrefix string) *RedisRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(keyPrefix), ":")
	if p == "" {
		p = "ledger:rate_limit"
	}
	return &RedisRateLimiter{client: client, keyPrefix: p}
}

// ConsumeRateLimit counts one attempt for the subject within the scope and
// returns the resulting window state. A nil client, a non-positive limit or
// window, or a blank scope/subject disables the check and reports an open
// window.
func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (RateLimitDecision, error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return RateLimitDecision{}, nil
	}
	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return RateLimitDecision{}, nil
	}

	// Sub-second windows are not meaningful for credential abuse; clamp so
	// RetryAfter always rounds to at least one whole second.
	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := strings.Join([]string{r.keyPrefix, scope, subject}, ":")
	raw, err := countWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return RateLimitDecision{}, err
	}
	return decodeCountWindow(raw, windowMs)
}

// decodeCountWindow turns the script reply into a decision. The reply is a
// two-element array of integers: the attempt count and the remaining window
// in milliseconds.
func decodeCountWindow(raw interface{}, windowMs int64) (RateLimitDecision, error) {
	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return RateLimitDecision{}, fmt.Errorf("unexpected limiter reply shape: %T", raw)
	}
	count, ok := reply[0].(int64)
	if !ok {
		return RateLimitDecision{}, fmt.Errorf("unexpected limiter count type: %T", reply[0])
	}
	remainingMs, ok := reply[1].(int64)
	if !ok {
		return RateLimitDecision{}, fmt.Errorf("unexpected limiter ttl type: %T", reply[1])
	}
	if remainingMs < 0 {
		remainingMs = windowMs
	}

	// Round the remaining window up to whole seconds so callers never retry
	// before it actually resets.
	retryAfter := time.Duration((remainingMs+999)/1000) * time.Second
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return RateLimitDecision{Count: int(count), RetryAfter: retryAfter}, nil
}
