package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
)

const HeaderRequestID = "X-Request-ID"

// TraceMiddleware tags each request with a trace id and echoes it back in X-Request-ID.
// A client supplied id is kept only when it is a UUID.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderRequestID)
		if !tool.IsUUID(traceID) {
			traceID = tool.GenerateUUIDV7()
		}

		c.Set(logctx.TraceIDKey, traceID)
		c.Header(HeaderRequestID, traceID)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}
