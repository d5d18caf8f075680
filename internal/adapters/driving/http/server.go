// Package http exposes the research pipeline, ingest controls, and
// administration endpoints over a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService       driving.AuthService
	userService       driving.UserService
	researchService   driving.ResearchService
	catalogService    driving.CatalogService
	filingService     driving.FilingService
	ingestService     driving.IngestOrchestrator
	settingsService   driving.SettingsService
	vespaAdminService driving.VespaAdminService

	// Infrastructure
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Services bundles everything the server serves
type Services struct {
	Auth       driving.AuthService
	Users      driving.UserService
	Research   driving.ResearchService
	Catalog    driving.CatalogService
	Filings    driving.FilingService
	Ingest     driving.IngestOrchestrator
	Settings   driving.SettingsService
	VespaAdmin driving.VespaAdminService
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	svcs Services,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            slog.Default(),
		authService:       svcs.Auth,
		userService:       svcs.Users,
		researchService:   svcs.Research,
		catalogService:    svcs.Catalog,
		filingService:     svcs.Filings,
		ingestService:     svcs.Ingest,
		settingsService:   svcs.Settings,
		vespaAdminService: svcs.VespaAdmin,
		taskQueue:         taskQueue,
		db:                db,
		redisClient:       redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Answer synthesis can take a while
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogout)))

	// User endpoints
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))

	// Admin-only user management
	s.router.Handle("GET /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListUsers))))
	s.router.Handle("POST /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateUser))))
	s.router.Handle("PUT /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateUser))))
	s.router.Handle("DELETE /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteUser))))

	// Research endpoints (authenticated)
	s.router.Handle("POST /api/v1/research/answer",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleAnswer)))
	s.router.Handle("POST /api/v1/research/retrieve",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRetrieve)))
	s.router.Handle("GET /api/v1/research/taxonomy",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleTaxonomy)))
	s.router.Handle("GET /api/v1/research/taxonomy/{tag}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConcept)))

	// Company endpoints (authenticated)
	s.router.Handle("GET /api/v1/companies",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListCompanies)))
	s.router.Handle("GET /api/v1/companies/{ticker}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetCompany)))
	s.router.Handle("GET /api/v1/companies/{ticker}/filings",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListCompanyFilings)))

	// Filing endpoints (authenticated)
	s.router.Handle("GET /api/v1/filings/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetFiling)))
	s.router.Handle("GET /api/v1/filings/{id}/chunks",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetFilingChunks)))

	// Ingest endpoints (admin-only for triggers, analyst can sync one company)
	s.router.Handle("POST /api/v1/ingest/sync",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSyncCorpus))))
	s.router.Handle("POST /api/v1/ingest/sync/{ticker}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSyncCompany)))
	s.router.Handle("GET /api/v1/ingest/states",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListIngestStates)))
	s.router.Handle("GET /api/v1/ingest/states/{ticker}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetIngestState)))

	// Task endpoints (admin-only)
	s.router.Handle("GET /api/v1/tasks",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListTasks))))
	s.router.Handle("GET /api/v1/tasks/stats",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTaskStats))))
	s.router.Handle("GET /api/v1/tasks/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetTask))))
	s.router.Handle("POST /api/v1/tasks/{id}/cancel",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCancelTask))))

	// Settings endpoints (admin-only)
	s.router.Handle("GET /api/v1/settings",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetSettings))))
	s.router.Handle("PUT /api/v1/settings",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateSettings))))

	// AI settings endpoints (admin-only except status)
	s.router.Handle("GET /api/v1/settings/ai",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetAISettings))))
	s.router.Handle("PUT /api/v1/settings/ai",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateAISettings))))
	s.router.Handle("GET /api/v1/settings/ai/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetAIStatus)))
	s.router.Handle("POST /api/v1/settings/ai/test",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTestAIConnection))))

	// Vespa admin endpoints (admin-only)
	s.router.Handle("POST /api/v1/admin/vespa/connect",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleVespaConnect))))
	s.router.Handle("GET /api/v1/admin/vespa/status",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleVespaStatus))))
	s.router.Handle("GET /api/v1/admin/vespa/health",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleVespaHealth))))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler, wrapped with the standard
// middleware chain. Used by tests and by main.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = CORS([]string{"*"})(h)
	h = Logging(s.logger)(h)
	h = Recovery(s.logger)(h)
	return h
}
