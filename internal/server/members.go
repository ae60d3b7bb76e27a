package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
)

func (s *Server) UpsertMember(c *gin.Context) {
	var req memberdomain.UpsertMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.memberSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (s *Server) GetMember(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.memberSvc.GetByExternalID(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (s *Server) SetBirthday(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req memberdomain.SetBirthdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ExternalID = externalID

	member, err := s.memberSvc.SetBirthday(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (s *Server) AddWishlistItem(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req memberdomain.AddWishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ExternalID = externalID

	item, err := s.memberSvc.AddWishlistItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) ListWishlist(c *gin.Context) {
	externalID, ok := pathExternalID(c, "externalId")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.memberSvc.ListWishlist(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
