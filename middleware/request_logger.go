package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger decorates requests with structured logging metadata and
// recovers panics into a 500 envelope.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()

		reqLogger := base.With(
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("remote_addr", c.ClientIP()),
		)

		ctx := logging.WithLogger(c.Request.Context(), reqLogger)
		ctx = logging.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		defer func() {
			if rec := recover(); rec != nil {
				reqLogger.Error("panic recovered", "panic", rec)
				utils.RespondError(c, apierror.InternalError("something went wrong", nil))
			}
			reqLogger.Info("request completed",
				slog.Int("status", c.Writer.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		}()

		c.Next()
	}
}
