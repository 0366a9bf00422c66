package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgate/internal/adapter/gin/middleware"
	"mailgate/internal/domain/session"
	"mailgate/internal/usecase/auth"
	"mailgate/internal/usecase/user"
	apperrors "mailgate/pkg/errors"
	"mailgate/pkg/logger"
)

// oauthCallbackError is the error code the sign-in page shows after a failed social login.
const oauthCallbackError = "OAuthCallback"

// AuthHandler handles sign-up, sign-in and session endpoints.
type AuthHandler struct {
	users    user.Usecase
	social   auth.Usecase
	sessions *middleware.Sessions
	csrf     *middleware.CSRF
	log      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(users user.Usecase, social auth.Usecase, sessions *middleware.Sessions, csrf *middleware.CSRF, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		social:   social,
		sessions: sessions,
		csrf:     csrf,
		log:      log,
	}
}

// SignUpRequest represents the HTTP request body for creating an account
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialsRequest represents the HTTP request body for an email and password sign-in
type CredentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl"`
}

// SessionUser is the user part of a session response
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// SessionResponse represents the HTTP response for the current session
type SessionResponse struct {
	User    *SessionUser `json:"user,omitempty"`
	Expires string       `json:"expires,omitempty"`
}

// CSRF handles GET /api/auth/csrf
func (h *AuthHandler) CSRF(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrfToken": h.csrf.Token(c)})
}

// Providers handles GET /api/auth/providers
func (h *AuthHandler) Providers(c *gin.Context) {
	out := gin.H{}
	for _, p := range h.social.Providers() {
		out[p.ID] = p
	}
	c.JSON(http.StatusOK, out)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusOK, SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		User: &SessionUser{
			ID:    sess.Identity.UserID,
			Name:  sess.Identity.Name,
			Email: sess.Identity.Email,
		},
		Expires: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid sign up request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Name, email and password are required"})
		return
	}

	_, err := h.users.SignUp(c.Request.Context(), user.SignUpRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		log.Warn("Sign up failed", zap.Error(err))
		writeError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CredentialsCallback handles POST /api/auth/callback/credentials
func (h *AuthHandler) CredentialsCallback(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid credentials request", zap.Error(err))
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: apperrors.ErrInvalidCredentials.Error()})
		return
	}

	u, err := h.users.Authorize(c.Request.Context(), user.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err, false)
		return
	}

	_, err = h.sessions.Start(c, session.Identity{
		UserID:   u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Provider: session.CredentialsProvider,
	})
	if err != nil {
		log.Error("Failed to start session", zap.Error(err))
		writeError(c, apperrors.NewInternalError("failed to start session", err), false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": localRedirect(req.CallbackURL)})
}

// SignIn handles GET /api/auth/signin/:provider
func (h *AuthHandler) SignIn(c *gin.Context) {
	provider := c.Param("provider")

	authURL, err := h.social.BeginLogin(c.Request.Context(), provider, c.Query("callbackUrl"))
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			writeError(c, err, false)
			return
		}
		_ = c.Error(err)
		c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(oauthCallbackError))
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback handles GET /api/auth/callback/:provider
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	result, err := h.social.CompleteLogin(c.Request.Context(), auth.CallbackRequest{
		Provider: c.Param("provider"),
		Code:     c.Query("code"),
		State:    c.Query("state"),
		Error:    c.Query("error"),
	})
	if err != nil {
		_ = c.Error(err)
		c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(oauthCallbackError))
		return
	}

	if _, err := h.sessions.Start(c, result.Identity); err != nil {
		log.Error("Failed to start session", zap.Error(err))
		_ = c.Error(err)
		c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(oauthCallbackError))
		return
	}

	c.Redirect(http.StatusFound, localRedirect(result.CallbackURL))
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.sessions.End(c)
	c.JSON(http.StatusOK, gin.H{"url": "/"})
}

// localRedirect keeps redirects on this site.
func localRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return auth.DefaultCallbackURL
	}
	return target
}
