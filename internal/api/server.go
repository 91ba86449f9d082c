// Package api exposes the scanner over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/idscan/internal/config"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/security"
	"github.com/gmsas95/idscan/internal/store"
)

// Deps wires a Server. Store is optional; history routes answer 503 without it.
type Deps struct {
	Config  *config.Config
	Scans   *scan.Service
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Version string
}

type Server struct {
	app       *fiber.App
	config    *config.Config
	scans     *scan.Service
	store     *store.Store
	metrics   *metrics.Metrics
	validator *security.TextValidator
	logger    *zap.Logger
	version   string
}

func New(d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = metrics.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	readTimeout := time.Duration(d.Config.Server.ReadTimeout) * time.Second
	writeTimeout := time.Duration(d.Config.Server.WriteTimeout) * time.Second
	bodyLimit := d.Config.Server.BodyLimitMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	s := &Server{
		config:    d.Config,
		scans:     d.Scans,
		store:     d.Store,
		metrics:   d.Metrics,
		validator: security.NewTextValidator(),
		logger:    d.Logger,
		version:   d.Version,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "idscan",
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.setupRoutes()
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	s.logger.Info("API server listening", zap.String("addr", s.config.Addr()))
	return s.app.Listen(s.config.Addr())
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
