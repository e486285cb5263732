package server

import (
	"crypto/hmac"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the operator surface with a static bearer
// token. An empty configured token disables the admin API entirely.
func (s *Server) AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := strings.TrimSpace(s.cfg.AdminToken)
		if configured == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !hmac.Equal([]byte(strings.TrimSpace(token)), []byte(configured)) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

func (s *Server) ReplayRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.replayLimiter == nil {
			c.Next()
			return
		}

		res, allowed := s.replayLimiter.Allow(c.Request.Context(), c.ClientIP())
		if !allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyReplays)
			return
		}

		c.Next()
	}
}
