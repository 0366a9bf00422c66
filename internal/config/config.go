package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	Mail      MailConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

// AppConfig holds configuration for the application server
type AppConfig struct {
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	BaseURL                string `mapstructure:"BASE_URL"`
	Environment            string `mapstructure:"APP_ENV"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// AuthConfig holds session signing configuration
type AuthConfig struct {
	Secret               string `mapstructure:"AUTH_SECRET"`
	SessionMaxAgeSeconds int    `mapstructure:"SESSION_MAX_AGE_SECONDS"`
	SecureCookies        bool   `mapstructure:"SECURE_COOKIES"`
}

// OAuthConfig holds credentials for the social login providers.
// A provider is enabled only when both its client id and secret are set.
type OAuthConfig struct {
	GoogleClientID       string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	LinkedInClientID     string `mapstructure:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string `mapstructure:"LINKEDIN_CLIENT_SECRET"`
	GitHubClientID       string `mapstructure:"GITHUB_ID"`
	GitHubClientSecret   string `mapstructure:"GITHUB_SECRET"`
	StateTTLSeconds      int    `mapstructure:"OAUTH_STATE_TTL_SECONDS"`
}

// MailConfig holds SMTP relay configuration
type MailConfig struct {
	Host           string `mapstructure:"MAIL_HOST"`
	Port           int    `mapstructure:"MAIL_PORT"`
	Username       string `mapstructure:"MAIL_USERNAME"`
	Password       string `mapstructure:"MAIL_PASSWORD"`
	From           string `mapstructure:"MAIL_FROM"`
	FromName       string `mapstructure:"MAIL_FROM_NAME"`
	TimeoutSeconds int    `mapstructure:"MAIL_TIMEOUT_SECONDS"`
}

// RedisConfig holds configuration for Redis.
// Redis is optional; without it OAuth state lives in process memory and
// rate limiting is disabled.
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
}

// RateLimitConfig holds configuration for the API rate limiter
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	WindowSeconds     int     `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level          string `mapstructure:"LOG_LEVEL"`
	Format         string `mapstructure:"LOG_FORMAT"`
	OutputPath     string `mapstructure:"LOG_OUTPUT_PATH"`
	EnableSampling bool   `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName    string `mapstructure:"SERVICE_NAME"`
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`
}

// legacyAliases maps the EMAIL_* variable names used by earlier deployments
// onto the MAIL_* keys.
var legacyAliases = map[string]string{
	"MAIL_HOST":     "EMAIL_HOST",
	"MAIL_PORT":     "EMAIL_PORT",
	"MAIL_USERNAME": "EMAIL_USER",
	"MAIL_PASSWORD": "EMAIL_PASS",
	"AUTH_SECRET":   "NEXTAUTH_SECRET",
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	for key, alias := range legacyAliases {
		if err := v.BindEnv(key, key, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.BaseURL = strings.TrimRight(v.GetString("BASE_URL"), "/")
	config.App.Environment = v.GetString("APP_ENV")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")

	config.Auth.Secret = v.GetString("AUTH_SECRET")
	config.Auth.SessionMaxAgeSeconds = v.GetInt("SESSION_MAX_AGE_SECONDS")
	config.Auth.SecureCookies = v.GetBool("SECURE_COOKIES")

	config.OAuth.GoogleClientID = v.GetString("GOOGLE_CLIENT_ID")
	config.OAuth.GoogleClientSecret = v.GetString("GOOGLE_CLIENT_SECRET")
	config.OAuth.FacebookClientID = v.GetString("FACEBOOK_CLIENT_ID")
	config.OAuth.FacebookClientSecret = v.GetString("FACEBOOK_CLIENT_SECRET")
	config.OAuth.LinkedInClientID = v.GetString("LINKEDIN_CLIENT_ID")
	config.OAuth.LinkedInClientSecret = v.GetString("LINKEDIN_CLIENT_SECRET")
	config.OAuth.GitHubClientID = v.GetString("GITHUB_ID")
	config.OAuth.GitHubClientSecret = v.GetString("GITHUB_SECRET")
	config.OAuth.StateTTLSeconds = v.GetInt("OAUTH_STATE_TTL_SECONDS")

	config.Mail.Host = v.GetString("MAIL_HOST")
	config.Mail.Port = v.GetInt("MAIL_PORT")
	config.Mail.Username = v.GetString("MAIL_USERNAME")
	config.Mail.Password = v.GetString("MAIL_PASSWORD")
	config.Mail.From = v.GetString("MAIL_FROM")
	if config.Mail.From == "" {
		config.Mail.From = config.Mail.Username
	}
	config.Mail.FromName = v.GetString("MAIL_FROM_NAME")
	config.Mail.TimeoutSeconds = v.GetInt("MAIL_TIMEOUT_SECONDS")

	config.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.WindowSeconds = v.GetInt("RATE_LIMIT_WINDOW_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "3000")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	v.SetDefault("SESSION_MAX_AGE_SECONDS", 30*24*60*60)
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("OAUTH_STATE_TTL_SECONDS", 600)

	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_FROM_NAME", "Email Notification App")
	v.SetDefault("MAIL_TIMEOUT_SECONDS", 15)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Logger defaults
	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("SERVICE_NAME", "mailgate")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks the configuration for values the service cannot start without.
func (c *Config) Validate() error {
	var problems []string

	if c.App.HTTPPort == "" {
		problems = append(problems, "HTTP_PORT is required")
	}
	if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "BASE_URL must be an absolute URL")
	}
	if len(c.Auth.Secret) < 32 {
		problems = append(problems, "AUTH_SECRET must be at least 32 characters")
	}
	if c.Auth.SessionMaxAgeSeconds <= 0 {
		problems = append(problems, "SESSION_MAX_AGE_SECONDS must be positive")
	}
	if c.OAuth.StateTTLSeconds <= 0 {
		problems = append(problems, "OAUTH_STATE_TTL_SECONDS must be positive")
	}
	if c.Mail.Host == "" {
		problems = append(problems, "MAIL_HOST is required")
	}
	if c.Mail.From == "" {
		problems = append(problems, "MAIL_FROM or MAIL_USERNAME is required")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		problems = append(problems, "MAIL_PORT must be between 1 and 65535")
	}
	if c.RateLimit.Enabled && c.Redis.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			problems = append(problems, "RATE_LIMIT_RPS must be positive")
		}
		if c.RateLimit.WindowSeconds <= 0 {
			problems = append(problems, "RATE_LIMIT_WINDOW_SECONDS must be positive")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
