package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	chatredis "github.com/UthayakumarDevon/livechatapp/internal/redis"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limitedEvents are the inbound events subject to per-connection limits.
var limitedEvents = map[string]bool{
	events.EventTypeMessage:     true,
	events.EventTypeFileMessage: true,
	events.EventTypeTyping:      true,
	events.EventTypeReaction:    true,
	events.EventTypeSeen:        true,
}

// EventLimiter decides whether a connection may send one more event.
type EventLimiter interface {
	Allow(ctx context.Context, connID, eventType string) bool
	Forget(connID string)
}

// limiterIdleTTL is how long an unused key keeps its buckets. By then they
// have refilled, so dropping them changes nothing for the key.
const limiterIdleTTL = 10 * time.Minute

// LocalLimiter keeps one token bucket per (key, event) in memory. Keys are
// connection ids, or "ip:<addr>" for HTTP routes; keys idle for
// limiterIdleTTL are swept so the map stays bounded.
type LocalLimiter struct {
	mu        sync.Mutex
	m         map[string]*limiterSet
	rps       float64
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterSet struct {
	byEvent  map[string]*rate.Limiter
	lastUsed time.Time
}

func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &LocalLimiter{
		m:     make(map[string]*limiterSet),
		rps:   rps,
		burst: burst,
		idle:  limiterIdleTTL,
		now:   time.Now,
	}
}

func (l *LocalLimiter) get(key, eventType string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	set, ok := l.m[key]
	if !ok {
		set = &limiterSet{byEvent: make(map[string]*rate.Limiter)}
		l.m[key] = set
	}
	set.lastUsed = now
	lim, ok := set.byEvent[eventType]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		set.byEvent[eventType] = lim
	}
	return lim
}

// sweep must be called with l.mu held.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, set := range l.m {
		if now.Sub(set.lastUsed) >= l.idle {
			delete(l.m, key)
		}
	}
	l.lastSweep = now
}

func (l *LocalLimiter) Allow(_ context.Context, key, eventType string) bool {
	return l.get(key, eventType).Allow()
}

func (l *LocalLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
}

// Len reports how many keys currently hold buckets.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// RedisLimiter shares limits through Redis. When Redis cannot answer the
// event is let through.
type RedisLimiter struct {
	rl  *chatredis.RateLimiter
	log *zap.Logger
}

func NewRedisLimiter(rl *chatredis.RateLimiter, log *zap.Logger) *RedisLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLimiter{rl: rl, log: log}
}

func (l *RedisLimiter) Allow(ctx context.Context, connID, eventType string) bool {
	ok, err := l.rl.AllowEvent(ctx, connID, eventType)
	if err != nil {
		l.log.Warn("rate_limit_check_failed", zap.String("client_id", connID), zap.Error(err))
		return true
	}
	return ok
}

func (l *RedisLimiter) Forget(connID string) {
	types := make([]string, 0, len(limitedEvents))
	for t := range limitedEvents {
		types = append(types, t)
	}
	if err := l.rl.Forget(context.Background(), connID, types...); err != nil {
		l.log.Debug("rate_limit_forget_failed", zap.String("client_id", connID), zap.Error(err))
	}
}
