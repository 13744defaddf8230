package diagnostics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
)

func TestLoggerFromContext(t *testing.T) {
	assert.NotNil(t, diagnostics.LoggerFromContext(context.Background()))

	logger := zap.NewExample()
	ctx := diagnostics.ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, diagnostics.LoggerFromContext(ctx))
}

func TestTracerFromContext(t *testing.T) {
	assert.NotNil(t, diagnostics.TracerFromContext(context.Background()))

	tracer := noop.NewTracerProvider().Tracer("test")
	ctx := diagnostics.ContextWithTracer(context.Background(), tracer)
	assert.Equal(t, tracer, diagnostics.TracerFromContext(ctx))
}
