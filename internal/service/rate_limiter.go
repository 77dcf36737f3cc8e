package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/session-auth/pkg/database"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimitDecision is the outcome of a single Limiter.Allow call.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a sliding window log limiter backed by a Redis sorted set per key.
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{redis: redis, now: now}
}

// slidingWindowScript trims the window, then records the request only when
// the key is under its limit. It returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
local used = redis.call('ZCARD', key)
if used < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window + 60000)
	return {1, limit - used - 1, 0}
end

local wait = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest == 2 then
	wait = tonumber(oldest[2]) + window - now
end
return {0, 0, wait}
`)

// Allow records a request for key and reports whether it fits into limit
// requests per window. Rejected requests are not recorded. Counting and
// recording run as one script, so concurrent callers never exceed limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error) {
	result, err := slidingWindowScript.Run(ctx, r.redis.Client,
		[]string{rateLimitKeyPrefix + key},
		r.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return RateLimitDecision{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if len(result) != 3 {
		return RateLimitDecision{}, fmt.Errorf("unexpected rate limit reply: %v", result)
	}

	if result[0] == 1 {
		return RateLimitDecision{Allowed: true, Remaining: int(result[1])}, nil
	}

	return RateLimitDecision{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: retryAfter(time.Duration(result[2]) * time.Millisecond),
	}, nil
}

// retryAfter rounds the time until the oldest entry leaves the window to
// whole seconds, never below one.
func retryAfter(wait time.Duration) time.Duration {
	if wait < time.Second {
		return time.Second
	}
	return wait.Round(time.Second)
}
