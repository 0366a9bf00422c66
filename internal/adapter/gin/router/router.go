package router

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgate/internal/adapter/gin/handler"
	"mailgate/internal/adapter/gin/middleware"
	"mailgate/pkg/logger"
)

// Deps groups what the router wires together.
type Deps struct {
	Auth        *handler.AuthHandler
	Email       *handler.EmailHandler
	Pages       *handler.PageHandler
	Sessions    *middleware.Sessions
	CSRF        *middleware.CSRF
	RateLimiter *middleware.RateLimiter
	Templates   *template.Template
	ServiceName string
	Log         *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(d.Templates)

	// Global middleware
	router.Use(logger.RequestID())
	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.Logger(d.Log))
	router.Use(d.Sessions.Load())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": d.ServiceName,
		})
	})

	// Pages
	router.GET("/", d.Pages.Home)
	router.GET("/dashboard", d.Pages.Dashboard)

	api := router.Group("/api")
	api.Use(d.RateLimiter.Handler())
	{
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/csrf", d.Auth.CSRF)
			authGroup.GET("/providers", d.Auth.Providers)
			authGroup.GET("/session", d.Auth.Session)
			authGroup.POST("/signup", d.Auth.SignUp)
			authGroup.POST("/callback/credentials", d.CSRF.Verify(), d.Auth.CredentialsCallback)
			authGroup.GET("/signin/:provider", d.Auth.SignIn)
			authGroup.GET("/callback/:provider", d.Auth.OAuthCallback)
			authGroup.POST("/signout", d.CSRF.Verify(), d.Auth.SignOut)
		}

		api.POST("/send-email", middleware.RequireSession(), d.Email.SendEmail)
	}

	return router
}
