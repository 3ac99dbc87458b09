package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "agora-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	_, span := StartSpan(context.Background(), "IdentityRegistrar.Register")
	EndSpan(span, errors.New("credential write failed"))
	_, span = TraceRedisOperation(context.Background(), "xadd")
	EndSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1, "error recorded as an event")
	assert.Equal(t, "redis.xadd", ended[1].Name())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}

func TestToggleState(t *testing.T) {
	assert.Equal(t, "active", ToggleState(true))
	assert.Equal(t, "inactive", ToggleState(false))
}
