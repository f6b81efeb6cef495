package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request counts and latency for the gin server.
type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewHTTPMetrics registers the HTTP instruments.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	meter := otel.Meter("epin/http")

	requests, err := meter.Int64Counter(
		"epin_http_requests_total",
		metric.WithDescription("HTTP requests served, by method, route, and status."),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"epin_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, latency: latency}, nil
}

// GinMiddleware records per-request metrics under route templates only.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := FilterAttributes(
			attribute.String("http_method", c.Request.Method),
			attribute.String("http_route", route),
			attribute.String("http_status", strconv.Itoa(c.Writer.Status())),
		)

		ctx := c.Request.Context()
		m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
}
