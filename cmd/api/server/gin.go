package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SetupGinServer wraps the router in an HTTP server with sane timeouts
func SetupGinServer(handler http.Handler, addr string, l *zap.Logger) *http.Server {
	l.Info("Gin HTTP server configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		// SMTP hand-off can take up to MAIL_TIMEOUT_SECONDS.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
