// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/library"
	"github.com/jdfalk/libshelf/internal/likes"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/server/middleware"
)

// SettingsStore keeps process-wide preferences.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

// DegradedReporter reports a recent cloud failover.
type DegradedReporter interface {
	Degraded() (bool, error)
}

// Deps are the services the HTTP API is built on.
type Deps struct {
	Library  *library.Service
	Likes    *likes.Service
	Settings SettingsStore
	Hub      *events.Hub
	// Degraded is nil when the store has no fallback.
	Degraded DegradedReporter

	RateLimitPerMinute int
	RateLimitBurst     int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	library    *library.Service
	likes      *likes.Service
	settings   SettingsStore
	hub        *events.Hub
	degraded   DegradedReporter
	started    time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Paths the rate limiter never counts.
var rateLimitExempt = []string{"/api/v1/health", "/api/v1/events", "/metrics"}

// NewServer creates a new server instance
func NewServer(deps Deps) *Server {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())
	if deps.RateLimitPerMinute > 0 {
		limiter := middleware.NewIPRateLimiter(deps.RateLimitPerMinute, deps.RateLimitBurst, rateLimitExempt...)
		router.Use(limiter.Middleware())
	}
	router.Use(middleware.MaxRequestBodySize(middleware.DefaultJSONBodyLimit, middleware.DefaultUploadBodyLimit))
	router.Use(middleware.Viewer(deps.Library.Owner()))

	// Register metrics (idempotent)
	metrics.Register()

	hub := deps.Hub
	if hub == nil {
		hub = events.NewHub()
	}

	server := &Server{
		router:   router,
		library:  deps.Library,
		likes:    deps.Likes,
		settings: deps.Settings,
		hub:      hub,
		degraded: deps.Degraded,
		started:  time.Now(),
	}

	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Starting server on %s (backend: %s, library: %s)",
			s.httpServer.Addr, s.library.Backend(), s.library.Owner())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Heartbeat: refresh gauges every 30s while running
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		case <-ticker.C:
			s.refreshGauges(context.Background())
		case <-quit:
			return s.shutdown()
		}
	}
}

func (s *Server) shutdown() error {
	log.Println("[INFO] Shutting down server...")

	s.hub.Broadcast(&events.Event{
		Type:      "system.shutdown",
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"message": "Server is shutting down"},
	})

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] Server exited")
	return nil
}

func (s *Server) refreshGauges(ctx context.Context) {
	if _, err := s.library.Stats(ctx); err != nil {
		log.Printf("[DEBUG] Heartbeat: failed to compute stats: %v", err)
	}
	if s.degraded != nil {
		degraded, _ := s.degraded.Degraded()
		metrics.SetDegraded(degraded)
	}
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/events", s.hub.HandleSSE)
		api.GET("/categories", s.listCategories)
		api.POST("/classify", s.classify)

		// Book routes
		api.GET("/books", s.listBooks)
		api.GET("/books/recent", s.recentBooks)
		api.GET("/books/popular", s.popularBooks)
		api.POST("/books", s.createBook)
		api.GET("/books/:id", s.getBook)
		api.PATCH("/books/:id", s.updateBook)
		api.DELETE("/books/:id", s.deleteBook)
		api.GET("/books/:id/similar", s.similarBooks)
		api.POST("/books/:id/like", s.toggleLike)
		api.GET("/likes", s.listLikes)

		// Library routes
		api.GET("/library", s.getLibrary)
		api.PUT("/library", s.updateLibrary)
		api.GET("/library/stats", s.getStats)
		api.POST("/library/share", s.shareLibrary)
		api.GET("/libraries", s.searchLibraries)
		api.GET("/libraries/:id", s.getLibraryEntry)
		api.GET("/libraries/:id/shared", s.getSharedLibrary)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)

		// Import routes
		api.POST("/import/page", s.importPage)
		api.POST("/import/csv", s.importCSV)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.ViewerHeader+", "+RequestIDHeader)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Backend:   s.library.Backend(),
		LibraryID: s.library.Owner(),
		Timestamp: time.Now().Unix(),
		Uptime:    int64(time.Since(s.started).Seconds()),
	}
	if s.degraded != nil {
		degraded, lastErr := s.degraded.Degraded()
		metrics.SetDegraded(degraded)
		if degraded {
			resp.Status = "degraded"
			if lastErr != nil {
				resp.Error = lastErr.Error()
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetDefaultServerConfig returns default server configuration
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Host:         "localhost",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
