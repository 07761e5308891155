// Package cache holds the optional Redis client behind token display links, mention
// debounce, import status and the label catalogue.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"projectboard/internal/middleware"
	"projectboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

// client is nil when Redis is not configured or unreachable; every helper here
// treats that as a cache miss.
var client *redis.Client

// errorCounter feeds projectboard_redis_errors_total. redis.Nil is a miss, not an error.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		count(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		count("pipeline", err)
		return err
	}
}

func count(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(op).Inc()
	}
}

// NewClient accepts either host:port or a redis:// / rediss:// URL.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})
	return c, nil
}

// InitRedis connects the shared client. A bad address or failed ping leaves the
// board running without Redis and returns nil.
func InitRedis(addr string) *redis.Client {
	client = nil
	c, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("Redis disabled", slog.String("reason", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis disabled", slog.String("addr", addr), slog.String("reason", err.Error()))
		_ = c.Close()
		return nil
	}

	middleware.Logger.Info("Redis connected", slog.String("addr", c.Options().Addr))
	client = c
	return c
}

// SetClient swaps the shared client; tests point it at miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the shared client, or nil without Redis.
func GetClient() *redis.Client {
	return client
}
