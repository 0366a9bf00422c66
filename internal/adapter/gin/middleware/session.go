package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "mailgate/internal/domain/session"
	"mailgate/pkg/logger"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "mailgate.session-token"

const sessionContextKey = "mailgate.session"

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(identity domain.Identity) (string, time.Time, error)
	Parse(raw string) (*domain.Session, error)
	MaxAge() time.Duration
}

// Sessions reads and writes the session cookie.
type Sessions struct {
	tokens TokenIssuer
	secure bool
	log    *zap.Logger
}

// NewSessions creates a session cookie manager.
func NewSessions(tokens TokenIssuer, secure bool, log *zap.Logger) *Sessions {
	return &Sessions{
		tokens: tokens,
		secure: secure,
		log:    log,
	}
}

// Start issues a session for identity and sets it on the response.
func (s *Sessions) Start(c *gin.Context, identity domain.Identity) (*domain.Session, error) {
	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(s.tokens.MaxAge().Seconds()), "/", "", s.secure, true)
	sess := &domain.Session{Identity: identity, ExpiresAt: expiresAt}
	c.Set(sessionContextKey, sess)
	return sess, nil
}

// End clears the session cookie.
func (s *Sessions) End(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.secure, true)
	c.Set(sessionContextKey, (*domain.Session)(nil))
}

// Load returns a middleware that attaches a valid session, if any, to the request.
// Invalid or expired cookies are cleared.
func (s *Sessions) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		sess, err := s.tokens.Parse(raw)
		if err != nil {
			logger.WithContext(c.Request.Context(), s.log).Debug("discarding session cookie", zap.Error(err))
			s.End(c)
			c.Next()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), sess.Identity.UserID))
		c.Next()
	}
}

// RequireSession returns a middleware that rejects requests without a session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session loaded for this request.
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*domain.Session)
	if !ok || sess == nil {
		return nil, false
	}
	return sess, true
}
