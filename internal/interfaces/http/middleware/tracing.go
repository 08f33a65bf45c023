package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the otelgin middleware followed by a handler that
// annotates the server span once the request has been served. With
// tracing disabled it returns nothing.
func Tracing(serviceName string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName),
		annotateSpan(),
	}
}

func annotateSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if p, ok := GetPrincipal(c); ok {
			span.SetAttributes(
				attribute.String("user_id", p.UserID.String()),
				attribute.String("user_role", string(p.Role)),
			)
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
