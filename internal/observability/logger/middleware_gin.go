package logger

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/context"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// GinMiddleware assigns a request id, logs the request, and records latency.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := ensureRequestID(c)
		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log := WithContext(c.Request.Context(), base).With(
			zap.String("http_method", c.Request.Method),
			zap.String("http_path", c.FullPath()),
			zap.String("http_status", strconv.Itoa(status)),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)

		switch {
		case status >= 500:
			log.Error("http request")
		case status >= 400:
			log.Warn("http request")
		default:
			log.Info("http request")
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Writer.Header().Set(requestIDHeader, requestID)
	return requestID
}
