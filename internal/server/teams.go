package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
)

func (s *Server) RegisterTeam(c *gin.Context) {
	var req teamdomain.RegisterTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) GetTeam(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.GetByExternalID(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) SyncTeamMembers(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req teamdomain.SyncMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TeamExternalID = externalID

	if err := s.teamSvc.SyncMembership(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
