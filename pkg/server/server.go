// Package server exposes the knowledge engine over HTTP with gin.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/config"
	"github.com/soundprediction/mnemo/pkg/server/handlers"
)

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	engine mnemo.KnowledgeGraph
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance.
func New(cfg *config.Config, engine mnemo.KnowledgeGraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		engine: engine,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes.
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.engine)
	learnHandler := handlers.NewLearnHandler(s.engine)
	askHandler := handlers.NewAskHandler(s.engine)
	graphHandler := handlers.NewGraphHandler(s.engine)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/learn", learnHandler.Learn)
		v1.POST("/learn/batch", learnHandler.LearnBatch)
		v1.POST("/ask", askHandler.Ask)
		v1.POST("/subgraph", graphHandler.Subgraph)
		v1.GET("/stats", graphHandler.Stats)

		v1.GET("/entities", graphHandler.ListEntities)
		v1.GET("/entities/:id", graphHandler.GetEntity)
		v1.PATCH("/entities/:id", graphHandler.UpdateEntity)
		v1.DELETE("/entities/:id", graphHandler.DeleteEntity)

		v1.GET("/documents", graphHandler.ListDocuments)
		v1.GET("/documents/:id", graphHandler.GetDocument)
		v1.DELETE("/documents/:id", graphHandler.DeleteDocument)

		v1.GET("/relationships", graphHandler.ListRelationships)
		v1.GET("/relationships/:id", graphHandler.GetRelationship)
		v1.DELETE("/relationships/:id", graphHandler.DeleteRelationship)
	}
}

// Router returns the configured gin router, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs each request through the structured logger.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
