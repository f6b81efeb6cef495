package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db/pagination"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	order, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) ListOrders(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
		Pagination:     page,
		PaymentStatus:  c.Query("payment_status"),
		DeliveryStatus: c.Query("delivery_status"),
		RiskStatus:     c.Query("risk_status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type approveRequest struct {
	Note string `json:"note"`
}

func (s *Server) ApproveOrder(c *gin.Context) {
	orderID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req approveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	delivery, err := s.fulfillmentSvc.Approve(c.Request.Context(), orderID, s.adminActor(c), req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

type assignStockRequest struct {
	UnitID string `json:"unit_id"`
}

func (s *Server) AssignStock(c *gin.Context) {
	orderID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assignStockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// No unit chosen means the admin wants the next unit in line.
	if req.UnitID == "" {
		delivery, err := s.fulfillmentSvc.Approve(c.Request.Context(), orderID, s.adminActor(c), "")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, delivery)
		return
	}

	unitID, err := parseSnowflakeID(req.UnitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	delivery, err := s.fulfillmentSvc.AssignUnit(c.Request.Context(), orderID, unitID, s.adminActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RefundOrder(c *gin.Context) {
	orderID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	delivery, err := s.fulfillmentSvc.Refund(c.Request.Context(), orderID, req.Reason, s.adminActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

type verifyRequest struct {
	Approve *bool `json:"approve"`
}

func (s *Server) VerifyOrder(c *gin.Context) {
	orderID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Approve == nil {
		AbortWithError(c, newValidationError("approve", "required", "approve is required"))
		return
	}

	delivery, err := s.fulfillmentSvc.VerifyHighValue(c.Request.Context(), orderID, *req.Approve, s.adminActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}
