// Package cache holds the Redis client setup and the profile read cache.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// instrumentation traces every command and counts failures by command
// name. A miss (redis.Nil) is not a failure.
type instrumentation struct{}

func (instrumentation) DialHook(next redis.DialHook) redis.DialHook { return next }

func (instrumentation) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := observability.TraceRedisOperation(ctx, cmd.Name())
		err := next(ctx, cmd)
		observability.EndSpan(span, failure(cmd.Name(), err))
		return err
	}
}

func (instrumentation) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := observability.TraceRedisOperation(ctx, "pipeline")
		span.SetAttributes(attribute.Int("db.redis.commands", len(cmds)))
		err := next(ctx, cmds)
		observability.EndSpan(span, failure("pipeline", err))
		return err
	}
}

func failure(op string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	observability.RedisErrorRate.WithLabelValues(op).Inc()
	return err
}

// NewClient builds an instrumented client for addr, given as host:port or
// as a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, err
		}
	}
	client := redis.NewClient(opts)
	client.AddHook(instrumentation{})
	return client, nil
}

// Connect returns a pinged client, or nil when Redis is unreachable.
// Caching, rate limiting, token revocation and the redis audit sink all
// degrade without it.
func Connect(ctx context.Context, addr string) *redis.Client {
	log := observability.Logger.With(slog.String("addr", addr))
	client, err := NewClient(addr)
	if err != nil {
		log.Warn("Invalid REDIS_URL, continuing without redis", slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, continuing without redis", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	log.Info("Redis connected")
	return client
}
