package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "backoffice/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestFromContext_AttachesTraceOnce(t *testing.T) {
	base, logs := observed()

	ctx := appctx.WithTrace(context.Background(), &appctx.Trace{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithOperation(ctx, "POST /api/v1/inventory/purchases")
	ctx = WithLogger(ctx, base.WithContext(ctx))

	Info(ctx, "purchase recorded", "material_id", "m-1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "purchase recorded", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "POST /api/v1/inventory/purchases", fields["operation"])
	assert.Equal(t, "m-1", fields["material_id"])

	traceFields := 0
	for _, f := range entry.Context {
		if f.Key == "trace_id" {
			traceFields++
		}
	}
	assert.Equal(t, 1, traceFields)
}

func TestFromContext_ScopesUnscopedLogger(t *testing.T) {
	base, logs := observed()

	ctx := WithLogger(context.Background(), base.WithComponent("worker"))
	ctx = appctx.WithTrace(ctx, &appctx.Trace{TraceID: "t-2", RequestID: "task-7"})

	Warn(ctx, "propagation skipped")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "worker", fields["component"])
	assert.Equal(t, "task-7", fields["request_id"])
}

func TestNew_FallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))

	assert.NotNil(t, FromContext(context.Background()))
}
