package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/UthayakumarDevon/livechatapp/config"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client for cfg. It does not dial; use Ping to
// check reachability.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect creates a client and verifies it answers within five seconds.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := NewClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
