package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	inventorydomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
)

type addStockRequest struct {
	Items []string `json:"items"`
}

func (s *Server) GetStock(c *gin.Context) {
	itemID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stock, err := s.inventorySvc.Stock(c.Request.Context(), itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func (s *Server) AddStock(c *gin.Context) {
	itemID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	units, err := s.inventorySvc.AddUnits(c.Request.Context(), inventorydomain.AddUnitsRequest{
		ItemID: itemID,
		Lines:  req.Items,
		Actor:  s.adminActor(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": len(units), "units": units})
}

func (s *Server) DeleteStockUnit(c *gin.Context) {
	itemID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	unitID, err := parseSnowflakeID(c.Param("unit_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.inventorySvc.DeleteUnit(c.Request.Context(), itemID, unitID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
