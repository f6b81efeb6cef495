package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/auditcontext"
	obscontext "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/context"
)

const (
	// Admin identity comes from the reverse proxy in front of this
	// service; this API never does its own credential checks.
	HeaderAdminActor = "X-Admin-Actor"

	defaultAdminActor = "admin"
)

// AuditContextMiddleware records each request's client IP, user agent and
// request id so audit entries written downstream carry them.
func AuditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, c.Writer.Header().Get("X-Request-Id"))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) AdminActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderAdminActor))
		if actor == "" {
			actor = defaultAdminActor
		}

		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeAdmin), actor)
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeAdmin), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("admin_actor", actor)
		c.Next()
	}
}

func (s *Server) adminActor(c *gin.Context) string {
	if v, ok := c.Get("admin_actor"); ok {
		if actor, ok := v.(string); ok && actor != "" {
			return actor
		}
	}
	return defaultAdminActor
}

func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.limiter.AllowIP(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis being down must not take checkout down with it.
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
