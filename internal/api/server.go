// Package api serves the bot's operational surface: a Prometheus scrape
// endpoint and a liveness probe. The dashboard/auth/trading-control API the
// teacher served here is out of scope; only the two operational routes
// survive.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/eth-trading/internal/api/middleware"
	"github.com/eth-trading/internal/telemetry"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the operational HTTP surface.
type Server struct {
	config *ServerConfig
	echo   *echo.Echo
}

// NewServer creates a new API server backed by the given metric registry.
func NewServer(config *ServerConfig, metrics *telemetry.Metrics) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echoMiddleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	handler := promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
	e.GET("/metrics", echo.WrapHandler(handler))

	return &Server{config: config, echo: e}
}

// Start starts the server.
func (s *Server) Start() error {
	log.Info().Str("port", s.config.Port).Msg("starting operational HTTP server")
	return s.echo.Start(s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	log.Info().Msg("shutting down operational HTTP server")
	return s.echo.Shutdown(ctx)
}
