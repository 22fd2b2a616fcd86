package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
	"backoffice/internal/infrastructure/http/v1/dto"
	"backoffice/pkg/logger"
)

// ErrorHandler renders the last error a handler registered with c.Error,
// unless the handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 && !c.Writer.Written() {
			writeError(c, c.Errors.Last().Err)
		}
	}
}

// writeError renders err as a dto.ErrorResponse. Anything that is not an
// AppError becomes a bare 500; 5xx bodies carry the request id so a
// client report can be matched to the log line.
func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}

	body := dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
		body.Details = map[string]any{"request_id": appctx.GetRequestID(ctx)}
	} else if appErr.Err != nil {
		logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
	}

	c.JSON(appErr.HTTPStatus, body)
}
