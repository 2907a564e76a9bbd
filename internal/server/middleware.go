package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
)

const callerContextKey = "caller"

// CallerIdentity resolves the authenticated user from the X-User-ID header
// set by the upstream gateway. Authentication itself happens outside this
// service.
func (s *Server) CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		users, err := s.identitySvc.FindByIDs(c.Request.Context(), []snowflake.ID{id})
		if err != nil || len(users) != 1 || !users[0].IsActive {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(callerContextKey, users[0])
		c.Next()
	}
}

func caller(c *gin.Context) *identitydomain.User {
	value, ok := c.Get(callerContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*identitydomain.User)
	if !ok {
		return nil
	}
	return user
}

// requirePermission enforces the caller's role against one editorial object
// and action.
func (s *Server) requirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := caller(c)
		if user == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), user.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// inviteRateLimit throttles invitation issuance per editor.
func (s *Server) inviteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.inviteLimiter.Enabled() {
			c.Next()
			return
		}
		user := caller(c)
		if user == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.inviteLimiter.AllowEditor(c.Request.Context(), user.ID.String())
		if err != nil {
			s.log.Warn("invite rate limit check failed; allowing request")
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", result.RetryAfter.String())
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
