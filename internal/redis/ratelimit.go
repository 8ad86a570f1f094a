package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key pattern: ratelimit:{conn_id}:{event}, TTL = window.

// RateLimitConfig contains configuration for rate limiting
type RateLimitConfig struct {
	EventLimit  int           // Max events of one type per window
	EventWindow time.Duration // Fixed window length
}

// RateLimitConfigFor converts a token-bucket style rate into a fixed window
// of ten seconds that admits at least burst events.
func RateLimitConfigFor(rps float64, burst int) RateLimitConfig {
	window := 10 * time.Second
	limit := int(math.Ceil(rps * window.Seconds()))
	if limit < burst {
		limit = burst
	}
	if limit < 1 {
		limit = 1
	}
	return RateLimitConfig{EventLimit: limit, EventWindow: window}
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// RateLimiter limits inbound websocket events through Redis so that the
// counters survive reconnects to the same connection id and can be inspected.
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

var fixedWindow = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

func eventKey(connID, eventType string) string {
	return fmt.Sprintf("ratelimit:%s:%s", connID, eventType)
}

// AllowEvent reports whether connID may send one more eventType.
func (r *RateLimiter) AllowEvent(ctx context.Context, connID, eventType string) (bool, error) {
	res, err := r.checkLimit(ctx, eventKey(connID, eventType), r.config.EventLimit, r.config.EventWindow)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := fixedWindow.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := resultSlice[0].(int64)
	remaining, _ := resultSlice[1].(int64)
	ttl, _ := resultSlice[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(ttl) * time.Second,
		Limit:     limit,
	}, nil
}

// Forget drops the counters of a closed connection.
func (r *RateLimiter) Forget(ctx context.Context, connID string, eventTypes ...string) error {
	if len(eventTypes) == 0 {
		return nil
	}
	keys := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		keys[i] = eventKey(connID, t)
	}
	return r.client.Del(ctx, keys...).Err()
}
