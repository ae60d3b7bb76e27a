package server

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/kado/internal/apikey/domain"
	obscontext "github.com/smallbiznis/kado/internal/observability/context"
)

type contextKey string

const (
	contextAPIKeyIDKey     contextKey = "api_key_id"
	contextAPIKeyScopesKey contextKey = "api_key_scopes"
)

// APIKeyRequired authenticates requests with a bearer API key. The gateway
// is the only caller; member identity rides in a header on top of the key.
func (s *Server) APIKeyRequired(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.apiKeySvc.Verify(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !key.HasScope(scope) {
			AbortWithError(c, ErrForbidden)
			return
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, key.KeyID)
		ctx = context.WithValue(ctx, contextAPIKeyScopesKey, []string(key.Scopes))
		ctx = obscontext.WithActor(ctx, "api_key", key.KeyID)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireScope gates a route on an additional scope beyond the group's base
// scope.
func (s *Server) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Request.Context().Value(contextAPIKeyScopesKey).([]string)
		for _, have := range scopes {
			if have == scope || have == apikeydomain.ScopeAdmin {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func apiKeyIDFromContext(ctx context.Context) string {
	keyID, _ := ctx.Value(contextAPIKeyIDKey).(string)
	return keyID
}
