package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"projectboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Remember returns the JSON value cached under key, or calls load and caches its
// result for ttl. Redis failures and undecodable entries fall through to load; a
// load error is returned as is and nothing is cached.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if client != nil {
		if raw, err := json.Marshal(v); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return v, nil
}

func lookup[T any](ctx context.Context, key string) (T, bool) {
	var v T
	if client == nil {
		return v, false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		client.Del(ctx, key)
		return v, false
	}
	return v, true
}
