// Package context carries request-scoped identifiers through the engine so
// that every log line of one ledger operation can be correlated.
package context

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Trace identifies a request in logs.
type Trace struct {
	TraceID   string
	RequestID string
}

type (
	traceKey     struct{}
	operationKey struct{}
)

// NewTrace fills whatever the caller did not supply. The trace ID prefers
// the active span, so log lines line up with exported spans.
func NewTrace(ctx context.Context, requestID, traceID string) *Trace {
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &Trace{TraceID: traceID, RequestID: requestID}
}

func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns nil outside a request.
func GetTrace(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// GetRequestID returns the request ID or "".
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// WithOperation names the ledger operation being executed
// (e.g. "record_movement" or "POST /api/v1/inventory/movements").
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

func GetOperation(ctx context.Context) string {
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}
