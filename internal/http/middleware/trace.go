package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// TraceID echoes the request's trace id in header so callers can quote it.
// It must run after the otelgin middleware to see a span.
func TraceID(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header != "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				c.Header(header, sc.TraceID().String())
			}
		}
		c.Next()
	}
}
