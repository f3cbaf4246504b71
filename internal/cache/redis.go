// Package cache provides Redis caching utilities for the catalog.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalog/internal/middleware"
	"catalog/internal/observability"

	"github.com/redis/go-redis/v9"
)

// errorCounter is a go-redis hook feeding observability.CacheErrors.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.CacheErrors.WithLabelValues(command).Inc()
	}
}

// clientOptions accepts host:port or a redis:// URL. The cache sits in the
// read path, so command timeouts are kept short.
func clientOptions(addr string) (*redis.Options, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond
	return opts, nil
}

// InitRedis connects to addr. It returns nil when the address is invalid or
// Redis is unreachable; callers then run without a cache.
func InitRedis(addr string) *redis.Client {
	opts, err := clientOptions(addr)
	if err != nil {
		middleware.Logger.Warn("cache disabled", slog.String("error", err.Error()))
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("cache disabled, redis unreachable",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}

	middleware.Logger.Info("cache connected", slog.String("addr", opts.Addr))
	return client
}
