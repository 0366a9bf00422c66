package di

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailgate/cmd/api/infrastructure"
	"mailgate/internal/adapter/cache"
	ginhandler "mailgate/internal/adapter/gin/handler"
	"mailgate/internal/adapter/gin/middleware"
	ginrouter "mailgate/internal/adapter/gin/router"
	"mailgate/internal/adapter/gin/templates"
	"mailgate/internal/adapter/mail"
	"mailgate/internal/adapter/oauth"
	"mailgate/internal/adapter/repository/memory"
	"mailgate/internal/adapter/session"
	"mailgate/internal/config"
	"mailgate/internal/usecase/auth"
	"mailgate/internal/usecase/notification"
	"mailgate/internal/usecase/user"
	redisclient "mailgate/pkg/redis"
)

const tokenIssuer = "mailgate"

// Container holds the wired HTTP handler and the resources it must release
type Container struct {
	RedisClient *redisclient.Client
	Router      *gin.Engine
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Redis client (optional)
	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	var rawRedis *goredis.Client
	if rdb != nil {
		rawRedis = rdb.Client
	}

	// OAuth state lives in Redis when available so any replica can finish a login
	var states cache.StateStore
	if rawRedis != nil {
		states = cache.NewRedisStateStore(rawRedis, l)
	} else {
		states = cache.NewMemoryStateStore(cache.DefaultMaxPendingStates)
	}

	// Initialize repository
	repo := memory.NewUserRepo(l)

	// Initialize use cases
	userUC := user.New(repo, l)

	registry := oauth.NewRegistry(cfg.App.BaseURL, oauth.Definitions(cfg.OAuth))
	authUC := auth.New(
		auth.FromRegistry(registry),
		states,
		time.Duration(cfg.OAuth.StateTTLSeconds)*time.Second,
		cfg.App.BaseURL,
		l,
	)
	for _, p := range registry.List() {
		l.Info("oauth provider enabled", zap.String("provider", p.ID()), zap.String("callback", p.CallbackURL()))
	}

	sender, err := mail.NewSMTPSender(cfg.Mail, l)
	if err != nil {
		closeRedis(rdb)
		return nil, fmt.Errorf("failed to initialize mail sender: %w", err)
	}
	notificationUC := notification.New(sender, l)

	// Sessions
	tokens, err := session.NewTokenManager(
		cfg.Auth.Secret,
		tokenIssuer,
		time.Duration(cfg.Auth.SessionMaxAgeSeconds)*time.Second,
	)
	if err != nil {
		closeRedis(rdb)
		return nil, fmt.Errorf("failed to initialize session tokens: %w", err)
	}
	sessions := middleware.NewSessions(tokens, cfg.Auth.SecureCookies, l)
	csrf := middleware.NewCSRF(cfg.Auth.SecureCookies)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(
		rawRedis,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			WindowSeconds:     cfg.RateLimit.WindowSeconds,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	tmpl, err := templates.Load()
	if err != nil {
		closeRedis(rdb)
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	router := ginrouter.SetupRouter(ginrouter.Deps{
		Auth:        ginhandler.NewAuthHandler(userUC, authUC, sessions, csrf, l),
		Email:       ginhandler.NewEmailHandler(notificationUC, l),
		Pages:       ginhandler.NewPageHandler(authUC),
		Sessions:    sessions,
		CSRF:        csrf,
		RateLimiter: rateLimiter,
		Templates:   tmpl,
		ServiceName: cfg.Logger.ServiceName,
		Log:         l,
	})

	return &Container{
		RedisClient: rdb,
		Router:      router,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

func closeRedis(rdb *redisclient.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}
