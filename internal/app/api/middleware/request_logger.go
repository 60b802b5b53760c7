package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/pkg/logctx"
)

// RequestLoggerMiddleware stores a logger tagged with the trace id on the request.
// RequireUser later extends it with user_id.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		setLogger(c, base.With("trace_id", c.GetString(logctx.TraceIDKey)))
		c.Next()
	}
}

func setLogger(c *gin.Context, l *zap.SugaredLogger) {
	c.Set(logctx.LoggerKey, l)
	c.Request = c.Request.WithContext(logctx.WithLogger(c.Request.Context(), l))
}
