package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

func (s *Server) GetRiskSettings(c *gin.Context) {
	settings, err := s.riskSvc.GetSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) UpdateRiskSettings(c *gin.Context) {
	var settings riskdomain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.riskSvc.UpdateSettings(c.Request.Context(), settings, s.adminActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) ListDenylist(c *gin.Context) {
	entries, err := s.riskSvc.ListDenylist(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) AddDenylistEntry(c *gin.Context) {
	var req riskdomain.AddDenylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Actor = s.adminActor(c)

	entry, err := s.riskSvc.AddDenylist(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) RemoveDenylistEntry(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.riskSvc.RemoveDenylist(c.Request.Context(), id, s.adminActor(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
