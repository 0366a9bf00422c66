package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFCookieName holds the token the browser must echo back.
	CSRFCookieName = "mailgate.csrf-token"
	// CSRFHeader carries the echoed token on state-changing requests.
	CSRFHeader = "X-CSRF-Token"
)

// CSRF implements the double-submit cookie check for form-style endpoints.
type CSRF struct {
	secure bool
}

// NewCSRF creates a CSRF guard.
func NewCSRF(secure bool) *CSRF {
	return &CSRF{secure: secure}
}

// Token returns the request's CSRF token, issuing a new cookie when none is present.
func (g *CSRF) Token(c *gin.Context) string {
	if existing, err := c.Cookie(CSRFCookieName); err == nil && existing != "" {
		return existing
	}
	token := rand.Text()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CSRFCookieName, token, 0, "/", "", g.secure, true)
	return token
}

// Verify returns a middleware that rejects requests whose header does not
// match the CSRF cookie.
func (g *CSRF) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(CSRFCookieName)
		header := c.GetHeader(CSRFHeader)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "MissingCSRF"})
			return
		}
		c.Next()
	}
}
