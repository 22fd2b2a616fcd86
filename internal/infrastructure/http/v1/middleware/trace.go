package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "backoffice/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace tags the request context with request and trace IDs, taken from
// the incoming headers when present, and with the route as operation name.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tr := appctx.NewTrace(ctx, c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))

		ctx = appctx.WithTrace(ctx, tr)
		ctx = appctx.WithOperation(ctx, c.Request.Method+" "+c.FullPath())
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, tr.RequestID)
		c.Header(HeaderTraceID, tr.TraceID)

		c.Next()
	}
}
