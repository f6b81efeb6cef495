package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/auditcontext"
)

type paymentCallbackRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PaymentCallback is the provider webhook. Providers retry aggressively,
// so the handler is idempotent end to end.
func (s *Server) PaymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderID, err := parseSnowflakeID(req.OrderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && status != "paid" && status != "success" {
		AbortWithError(c, newValidationError("status", "unsupported_status", "unsupported payment status"))
		return
	}

	ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeSystem), "payment-callback")
	delivery, err := s.fulfillmentSvc.HandlePaid(ctx, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":    req.OrderID,
		"status":      delivery.Status,
		"hold_reason": delivery.HoldReason,
	})
}
