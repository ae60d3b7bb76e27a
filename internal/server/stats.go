package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
)

type statsResponse struct {
	Members          int64                           `json:"members"`
	Teams            int64                           `json:"teams"`
	ActiveEvents     int64                           `json:"active_events"`
	CelebratedEvents int64                           `json:"celebrated_events"`
	Contributions    contributiondomain.StatusCounts `json:"contributions"`
}

func (s *Server) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	members, err := s.memberSvc.Count(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teams, err := s.teamSvc.Count(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	active, err := s.eventSvc.CountActive(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	celebrated, err := s.eventSvc.CountCelebrated(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	contributions, err := s.contributionSvc.CountAll(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, statsResponse{
		Members:          members,
		Teams:            teams,
		ActiveEvents:     active,
		CelebratedEvents: celebrated,
		Contributions:    contributions,
	})
}
