package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coop-site/internal/shared/auth"
	"coop-site/internal/shared/server/respond"
)

const (
	// SessionCookie carries the signed admin session token.
	SessionCookie = "admin-session"

	adminKey = "admin"
)

// TokenVerifier validates admin session tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// OptionalAdmin marks the request as admin when a valid session cookie is present.
func OptionalAdmin(sessions TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasValidSession(c, sessions) {
			c.Set(adminKey, true)
		}
		c.Next()
	}
}

// AdminGate rejects requests without a valid admin session cookie.
func AdminGate(sessions TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasValidSession(c, sessions) {
			respond.Error(c, http.StatusForbidden, "forbidden", "Přístup odepřen. Přihlaste se jako administrátor.", nil)
			return
		}
		c.Set(adminKey, true)
		c.Next()
	}
}

// IsAdmin reports whether an admin session was verified for this request.
func IsAdmin(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(adminKey)
}

func hasValidSession(c *gin.Context, sessions TokenVerifier) bool {
	if sessions == nil {
		return false
	}
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return false
	}
	_, err = sessions.Verify(token)
	return err == nil
}
