package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestAside_LoadsOnceThenHits(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *payload) func() error {
		return func() error {
			loads++
			*dest = payload{Name: "alice", Count: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, c.Aside(ctx, ProfileKey(1), &first, time.Minute, load(&first)))
	var second payload
	require.NoError(t, c.Aside(ctx, ProfileKey(1), &second, time.Minute, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("profile:1"))
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	var dest payload
	err := c.Aside(context.Background(), ProfileKey(2), &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("profile:2"))
}

func TestInvalidateProfiles(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("profile:1", "{}"))
	require.NoError(t, mr.Set("profile:2", "{}"))

	c.InvalidateProfiles(context.Background(), 1, 2)
	assert.False(t, mr.Exists("profile:1"))
	assert.False(t, mr.Exists("profile:2"))
}

func TestNilCacheAlwaysLoads(t *testing.T) {
	var c *Cache
	loads := 0
	var dest payload
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Aside(context.Background(), "k", &dest, time.Minute, func() error {
			loads++
			return nil
		}))
	}
	assert.Equal(t, 2, loads)
	c.Invalidate(context.Background(), "k")
}

func TestClientInstrumentation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(t.Context())
	})

	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	failures := testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("hget"))

	assert.ErrorIs(t, client.Get(ctx, "missing").Err(), redis.Nil)
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	assert.Error(t, client.HGet(ctx, "k", "field").Err(), "wrong type")

	// Connection setup may add its own spans, so look commands up by name.
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "redis.get")
	require.Contains(t, byName, "redis.hget")
	assert.Equal(t, codes.Unset, byName["redis.get"].Status().Code, "a miss is not an error")
	assert.Equal(t, codes.Error, byName["redis.hget"].Status().Code)
	assert.Equal(t, failures+1, testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("hget")))
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("redis://:bad:port/x")
	assert.Error(t, err)
}
