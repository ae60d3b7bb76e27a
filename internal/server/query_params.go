package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderMember carries the acting member's chat-platform id. The gateway
// resolves identity before calling; the API trusts the header behind the
// API key.
const HeaderMember = "X-Member-External-ID"

func pathExternalID(c *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func actorExternalID(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader(HeaderMember))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
