package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	"github.com/smallbiznis/kado/pkg/db/pagination"
)

func (s *Server) ListEvents(c *gin.Context) {
	teamExternalID, ok := queryInt64(c, "team_id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.List(c.Request.Context(), eventdomain.ListEventsRequest{
		TeamExternalID: teamExternalID,
		Status:         c.Query("status"),
		Page:           page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetEvent(c *gin.Context) {
	event, err := s.eventSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) ClaimEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.eventSvc.Claim(c.Request.Context(), eventdomain.ClaimRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) ReleaseEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.eventSvc.Release(c.Request.Context(), eventdomain.ReleaseRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) FinalizeEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req eventdomain.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.EventID = c.Param("id")
	req.ActorExternalID = actor

	event, err := s.eventSvc.Finalize(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) CancelEvent(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.eventSvc.Cancel(c.Request.Context(), eventdomain.CancelRequest{
		EventID:         c.Param("id"),
		ActorExternalID: actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}
