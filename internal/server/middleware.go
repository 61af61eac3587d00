package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const contextUserID = "user_id"

// RequireAuth verifies the bearer token and stores the account id on the
// request context.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		uid, err := s.identity.VerifyToken(strings.TrimSpace(parts[1]))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserID, uid)
		c.Next()
	}
}

// RateLimited applies a fixed-window limit keyed by client IP.
func (s *Server) RateLimited(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func (s *Server) userID(c *gin.Context) (string, bool) {
	uid := c.GetString(contextUserID)
	return uid, uid != ""
}
