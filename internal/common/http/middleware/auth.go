package middleware

import (
	"strings"

	userService "codeverse/internal/user/service"
	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserID and ContextUserRole are gin context keys set by RequireAuth.
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"

	tokenCookieName = "token"
)

// RequireAuth validates the caller's session token and stores the
// session on the request context. Revoked and expired tokens are
// rejected before any handler runs.
func RequireAuth(auth *userService.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing session token")
			c.Abort()
			return
		}
		session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserID, session.UserID)
		c.Set(ContextUserRole, string(session.Role))
		c.Next()
	}
}

// RequireAdmin allows only admin sessions. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != "admin" {
			response.Error(c, appErr.New(appErr.Forbidden).WithMessage("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionUserID returns the authenticated user id, 0 when absent.
func SessionUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// SessionToken returns the raw token the caller presented.
func SessionToken(c *gin.Context) string {
	return extractToken(c)
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(tokenCookieName); err == nil {
		return cookie
	}
	return ""
}
