package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/pkg/logger"
)

// Logger stores a request-scoped logger in the context and writes one access
// line per request: 5xx at error level, 4xx at warn, the rest at info.
// Health probes are not logged.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/health/") {
			c.Next()
			return
		}

		start := time.Now()
		ctx := c.Request.Context()
		reqLog := log.WithContext(ctx)
		c.Request = c.Request.WithContext(logger.WithLogger(ctx, reqLog))

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Errorw("http request", kv...)
		case status >= http.StatusBadRequest:
			reqLog.Warnw("http request", kv...)
		default:
			reqLog.Infow("http request", kv...)
		}
	}
}
