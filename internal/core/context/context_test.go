package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTrace(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTrace(ctx))
	assert.Empty(t, GetRequestID(ctx))

	t.Run("keeps supplied ids", func(t *testing.T) {
		tr := NewTrace(ctx, "req-1", "trace-1")
		assert.Equal(t, &Trace{TraceID: "trace-1", RequestID: "req-1"}, tr)
	})

	t.Run("generates missing ids", func(t *testing.T) {
		tr := NewTrace(ctx, "", "")
		assert.NotEmpty(t, tr.TraceID)
		assert.NotEmpty(t, tr.RequestID)
		assert.NotEqual(t, tr.TraceID, tr.RequestID)
	})

	t.Run("uses span trace id", func(t *testing.T) {
		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID})
		spanCtx := trace.ContextWithSpanContext(ctx, sc)

		tr := NewTrace(spanCtx, "", "")
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tr.TraceID)
	})

	tr := NewTrace(ctx, "req-2", "")
	ctx = WithTrace(ctx, tr)
	assert.Same(t, tr, GetTrace(ctx))
	assert.Equal(t, "req-2", GetRequestID(ctx))
}

func TestOperation(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetOperation(ctx))

	ctx = WithOperation(ctx, "record_movement")
	assert.Equal(t, "record_movement", GetOperation(ctx))
}
