package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kundenportal/internal/pkg/jwt"
	"kundenportal/internal/pkg/response"
	"kundenportal/internal/session"
)

const sessionIDKey = "session_id"

// CookieOptions control the portal session cookie.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// CookieName is derived from the access token so that a browser can work on
// several quotes at once without the sessions overwriting each other.
func CookieName(token string) string {
	return "kp_" + session.HashToken(token)[:16]
}

// PortalSession reads the session cookie of the token in the ":token" path
// parameter. A valid cookie puts the session ID into the context; a missing
// or invalid cookie is ignored so handlers can open a fresh session.
func PortalSession(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			c.Next()
			return
		}

		raw, err := c.Cookie(CookieName(token))
		if err != nil || strings.TrimSpace(raw) == "" {
			c.Next()
			return
		}

		claims, err := j.ValidateToken(raw)
		if err != nil || claims.TokenHash != session.HashToken(token) {
			c.Next()
			return
		}

		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// RequireSession aborts with 401 unless PortalSession found a valid cookie.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionID(c) == "" {
			response.Abort(c, http.StatusUnauthorized, "SESSION_REQUIRED", "Open the quote first")
			return
		}
		c.Next()
	}
}

// SessionID returns the portal session ID found by PortalSession.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// IssueSession signs a cookie binding the session to the access token.
func IssueSession(c *gin.Context, j *jwt.Service, opts CookieOptions, sessionID, token string) error {
	signed, err := j.GenerateToken(sessionID, session.HashToken(token))
	if err != nil {
		return err
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}
	c.SetSameSite(opts.SameSite)
	c.SetCookie(CookieName(token), signed, int(j.TTL().Seconds()), path, "", opts.Secure, true)
	c.Set(sessionIDKey, sessionID)
	return nil
}
