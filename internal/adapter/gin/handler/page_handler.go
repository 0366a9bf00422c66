package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailgate/internal/adapter/gin/middleware"
	"mailgate/internal/usecase/auth"
)

const pageTitle = "Email Notification App"

var pageErrors = map[string]string{
	oauthCallbackError: "Sign-in with the selected provider failed. Please try again.",
}

// PageHandler renders the browser pages.
type PageHandler struct {
	social auth.Usecase
}

// NewPageHandler creates a new PageHandler instance
func NewPageHandler(social auth.Usecase) *PageHandler {
	return &PageHandler{social: social}
}

// Home handles GET /
func (h *PageHandler) Home(c *gin.Context) {
	if _, ok := middleware.CurrentSession(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}

	errMsg := ""
	if code := c.Query("error"); code != "" {
		errMsg = pageErrors[code]
		if errMsg == "" {
			errMsg = "Sign-in failed."
		}
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"Title":     pageTitle,
		"Providers": h.social.Providers(),
		"Error":     errMsg,
	})
}

// Dashboard handles GET /dashboard
func (h *PageHandler) Dashboard(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title": pageTitle,
		"Email": sess.Identity.Email,
	})
}
