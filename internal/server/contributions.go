package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
)

func (s *Server) JoinEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	contribution, err := s.contributionSvc.Join(c.Request.Context(), contributiondomain.JoinRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) DeclineEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	contribution, err := s.contributionSvc.Decline(c.Request.Context(), contributiondomain.DeclineRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) ReportContributionStatus(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req contributiondomain.ReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.EventID = c.Param("id")
	req.ActorExternalID = actor

	contribution, err := s.contributionSvc.ReportStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) GetContributionAggregate(c *gin.Context) {
	resp, err := s.contributionSvc.Aggregate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetContributionDetail returns the per-member breakdown. The service
// restricts it to the event's organizer.
func (s *Server) GetContributionDetail(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contributionSvc.Detail(c.Request.Context(), contributiondomain.DetailRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
