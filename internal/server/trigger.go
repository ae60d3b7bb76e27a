package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/kado/internal/observability/logger"
	"go.uber.org/zap"
)

// TriggerRateLimit throttles the manual tick endpoint with a global bucket
// plus a per-key bucket. Without redis the limiter is disabled and the
// endpoint relies on the admin scope alone.
func (s *Server) TriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := s.triggerLimiter
		if limiter == nil || !limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := limiter.AllowGlobal(ctx)
		if err != nil {
			// Redis trouble must not take out an operational recovery path.
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		if keyID := apiKeyIDFromContext(ctx); keyID != "" {
			result, err = limiter.AllowCaller(ctx, keyID)
			if err == nil && !result.Allowed {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
				AbortWithError(c, ErrTooManyRequests)
				return
			}
		}

		c.Next()
	}
}

// TriggerCheckBirthdays forces one scheduler tick outside the regular
// cadence. The tick runs in the background; idempotent jobs make overlap
// with the regular loop harmless.
func (s *Server) TriggerCheckBirthdays(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	log := obslogger.FromContext(c.Request.Context())
	go func() {
		if err := s.scheduler.RunOnce(context.Background()); err != nil {
			log.Warn("manual tick finished with errors", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
