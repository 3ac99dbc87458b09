// Package bootstrap opens the stores, Redis and audit sink shared by the
// server and the operator commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agora/internal/audit"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations or AutoMigrate per DB_SCHEMA_MODE.
	ApplySchema bool
	// Tracing installs the OpenTelemetry provider described by the config.
	Tracing bool
}

// Runtime is everything a process needs to build repositories and services.
type Runtime struct {
	Config *config.Config
	Stores *database.Stores
	// Redis is nil when REDIS_URL is unset or unreachable.
	Redis *redis.Client
	Sink  audit.Sink

	shutdownTracing func(context.Context) error
}

// InitRuntime connects both stores and Redis and builds the audit sink.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, shutdownTracing: func(context.Context) error { return nil }}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    "agora",
			ServiceVersion: "1.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSampler,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	stores, err := database.OpenStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.Stores = stores

	if opts.ApplySchema {
		if err := database.ApplySchemas(ctx, stores, cfg); err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		rt.Redis = cache.Connect(ctx, cfg.RedisURL)
	}

	sink, err := audit.NewSink(cfg.AuditSink, cfg.AuditLogPath, cfg.AuditStream, rt.Redis)
	if err != nil {
		// A redis sink without Redis falls back to the log so admin changes
		// are still recorded somewhere.
		observability.Logger.Warn("audit sink unavailable, falling back to log",
			slog.String("sink", cfg.AuditSink), slog.String("error", err.Error()))
		sink = audit.NewLogSink(nil)
	}
	rt.Sink = sink

	return rt, nil
}

// Close releases the stores, Redis and the tracer provider.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Stores != nil {
		errs = append(errs, r.Stores.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	errs = append(errs, r.shutdownTracing(ctx))
	return errors.Join(errs...)
}
