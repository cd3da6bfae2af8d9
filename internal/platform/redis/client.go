// Package redis bootstraps the optional Redis connection used by the
// credential revocation list.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"onward/internal/platform/config"
)

// Client wraps go-redis so callers can health-check the connection.
type Client struct {
	*redis.Client
}

// New dials Redis from the given configuration. An empty URL means Redis is
// not configured; New then returns (nil, nil) and callers fall back to
// database-only revocation checks.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection is still serving commands.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
