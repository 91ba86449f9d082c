package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: zapWriter{s.logger},
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := s.app.Group("/api")

	api.Post("/auth/token", s.handleToken)

	protected := api.Use(s.authMiddleware())

	protected.Post("/scan/:kind", s.handleScan)
	protected.Post("/extract/:kind", s.handleExtract)
	protected.Post("/mrz/parse", s.handleParseMRZ)

	protected.Get("/scans", s.handleListScans)
	protected.Get("/scans/:id", s.handleGetScan)
	protected.Delete("/scans/:id", s.handleDeleteScan)

	protected.Get("/stats", s.handleStats)
	protected.Get("/batches", s.handleListBatches)
}
