package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"mailgate/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, handler http.Handler) *Server {
	s := &Server{
		Config: cfg,
		Logger: l,
	}
	s.Gin = SetupGinServer(handler, s.httpAddress(), l)
	return s
}

// Start runs the HTTP server until it is shut down.
// A graceful shutdown is not reported as an error.
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running",
		zap.String("address", s.httpAddress()),
		zap.String("base_url", s.Config.App.BaseURL),
	)

	if err := s.Gin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// httpAddress returns the HTTP server address
func (s *Server) httpAddress() string {
	return ":" + s.Config.App.HTTPPort
}
