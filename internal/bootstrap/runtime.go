// Package bootstrap wires the store, cache and media host shared by the
// server and the admin commands.
package bootstrap

import (
	"context"
	"fmt"

	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/media"
	"catalog/internal/observability"
	"catalog/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched; the migrate commands manage it themselves.
	SkipSchema     bool
	SeedCategories bool
}

// Runtime holds the initialized dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Media media.Host
}

// InitRuntime connects to the database and Redis, applies the schema policy,
// builds the media host and optionally seeds built-in categories. Redis is
// optional and may be nil in the result.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	host, err := media.NewHost(cfg)
	if err != nil {
		return nil, fmt.Errorf("media host: %w", err)
	}

	if opts.SeedCategories {
		if err := seed.Categories(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
	}

	return &Runtime{
		DB:    db,
		Redis: cache.InitRedis(cfg.RedisURL),
		Media: host,
	}, nil
}

// InitTracing starts the tracer provider described by cfg.
func InitTracing(ctx context.Context, cfg *config.Config, version string) (func(context.Context) error, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "catalog-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
}
