package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	votedomain "github.com/smallbiznis/kado/internal/vote/domain"
)

func (s *Server) CastVote(c *gin.Context) {
	actor, ok := actorExternalID(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req votedomain.CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.EventID = c.Param("id")
	req.ActorExternalID = actor

	vote, err := s.voteSvc.Cast(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

func (s *Server) GetVoteTally(c *gin.Context) {
	resp, err := s.voteSvc.Tally(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
