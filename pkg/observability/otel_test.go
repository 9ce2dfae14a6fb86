package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TestInitTracing_Disabled tests that InitTracing returns nil when disabled
func TestInitTracing_Disabled(t *testing.T) {
	logger := NewLogger(InfoLevel, TextFormat, &bytes.Buffer{})

	tp, err := InitTracing(context.Background(), OTelConfig{Enabled: false}, logger)

	assert.NoError(t, err)
	assert.Nil(t, tp)
}

// OTLP exporters connect lazily, so an unreachable endpoint still initializes
func TestInitTracing_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	logger, hook := test.NewNullLogger()
	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "switcher-test",
		ServiceVersion: "0.0.1",
		Insecure:       true,
	}

	tp, err := InitTracing(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.Contains(t, hook.LastEntry().Message, "localhost:4317")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// Nothing was exported, so the flush has nothing to send
	_ = ShutdownTracing(ctx, tp, logger)
}

func TestShutdownTracing_NilProvider(t *testing.T) {
	logger, hook := test.NewNullLogger()

	assert.NoError(t, ShutdownTracing(context.Background(), nil, logger))
	assert.Empty(t, hook.AllEntries())
}

func TestShutdownTracing_WithProvider(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tp := sdktrace.NewTracerProvider()

	assert.NoError(t, ShutdownTracing(context.Background(), tp, logger))
}
