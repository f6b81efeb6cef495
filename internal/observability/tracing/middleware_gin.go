package tracing

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "epin/http"

// GinMiddleware starts a server span per request using the propagated context.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), c.Request.Header)

		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(SafeAttributes(c.Request.Method, c.FullPath(), c.Writer.Status())...)
		if len(c.Errors) > 0 {
			SafeError(span, c.Errors.Last())
		}
	}
}
