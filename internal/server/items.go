package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
)

// ListItems is the storefront listing: active items only, credentials
// never included.
func (s *Server) ListItems(c *gin.Context) {
	active := true
	items, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Kind:   c.Query("kind"),
		Active: &active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	public := make([]gin.H, 0, len(items))
	for _, item := range items {
		public = append(public, gin.H{
			"id":          item.ID,
			"slug":        item.Slug,
			"name":        item.Name,
			"kind":        item.Kind,
			"price_try":   item.PriceTRY,
			"status":      item.Status,
			"sales_count": item.SalesCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": public})
}

func (s *Server) AdminListItems(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_bool", "invalid boolean value"))
		return
	}

	items, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Kind:   c.Query("kind"),
		Active: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) CreateItem(c *gin.Context) {
	var req catalogdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.catalogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) GetItem(c *gin.Context) {
	item, err := s.catalogSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) UpdateItem(c *gin.Context) {
	var req catalogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	item, err := s.catalogSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
