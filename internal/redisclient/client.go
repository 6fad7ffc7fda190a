package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis for the short-lived event sink. One process runs
// one codex invocation, so the pool stays small.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Redis client from a URL string (redis://...).
func New(url, prefix string) (*Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	opt.PoolSize = 2
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second
	opt.MaxRetries = 2
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 256 * time.Millisecond

	return &Client{rdb: redis.NewClient(opt), prefix: prefix}, nil
}

// Ping checks Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close shuts down the Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for direct access.
func (c *Client) Unwrap() *redis.Client {
	return c.rdb
}

// Key returns a prefixed Redis key built from colon-joined parts.
func (c *Client) Key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}
