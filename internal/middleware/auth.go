package middleware

import (
	"strings"

	"motoexpress/internal/access"
	"motoexpress/internal/apperr"
	"motoexpress/internal/models"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie a browser client may send instead of a bearer token.
const SessionCookie = "motoexpress_session"

const userKey = "user"

// Auth authenticates the caller and checks it against the policy of endpoint e.
// The active user is stored in the context for CurrentUser.
func Auth(gate *access.Gate, e access.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := gate.Authenticate(credential(c))
		if err != nil {
			Abort(c, err)
			return
		}
		if err := gate.Authorize(u, e); err != nil {
			Abort(c, err)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// credential returns the bearer token, falling back to the session cookie.
func credential(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the user set by Auth, or nil on public routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// Abort writes err as an error envelope and stops the chain.
func Abort(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.Status(kind), gin.H{
		"error": gin.H{"code": kind, "message": apperr.Message(err)},
	})
}
