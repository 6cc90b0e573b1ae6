// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides how the server starts and stops gracefully.
//
// DEPENDENCY INJECTION FLOW:
// The serve command creates:
//
//	sqlite.DB → SnippetStore ┐
//	Runner → Bridge ─────────┼→ server.New → handlers → routes
//	interpreter.Registry ────┘
//
// The server owns none of them; whoever built them closes them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/handler"
	"github.com/sakif/tinkers/internal/interpreter"
	"github.com/sakif/tinkers/internal/middleware"
	"github.com/sakif/tinkers/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish on shutdown.
const shutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Addr string
	// ExecTimeout bounds every execution started through the API.
	ExecTimeout time.Duration
}

// Server represents the HTTP server and its dependencies.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	store     *service.SnippetStore
	exec      executor.Executor
	languages *interpreter.Registry
}

// New creates a Server and registers all routes.
func New(cfg Config, store *service.SnippetStore, exec executor.Executor, languages *interpreter.Registry, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		store:     store,
		exec:      exec,
		languages: languages,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz               → liveness probe
// POST   /api/execute           → run ad-hoc code
// GET    /api/languages         → supported languages
// GET    /api/snippets          → whole collection + active id
// POST   /api/snippets          → add snippet (becomes active)
// GET    /api/snippets/{id}     → one snippet
// PATCH  /api/snippets/{id}     → partial update
// DELETE /api/snippets/{id}     → delete
// GET    /api/active            → active snippet
// PUT    /api/active            → select / clear active snippet
// POST   /api/active/run        → run the active snippet
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique id to each request (the logger reads it)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: turns a handler panic into a 500 instead of a crash
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	executeHandler := handler.NewExecuteHandler(s.exec, s.config.ExecTimeout, s.logger)
	languageHandler := handler.NewLanguageHandler(s.languages)
	snippetHandler := handler.NewSnippetHandler(s.store, s.languages, s.exec, s.config.ExecTimeout, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/languages", languageHandler.HandleList)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Patch("/{id}", snippetHandler.HandleUpdate)
			r.Delete("/{id}", snippetHandler.HandleDelete)
		})

		r.Get("/active", snippetHandler.HandleGetActive)
		r.Put("/active", snippetHandler.HandleSetActive)
		r.Post("/active/run", snippetHandler.HandleRunActive)
	})
}

// Start serves until ctx is canceled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
//
// The caller typically derives ctx from signal.NotifyContext.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.config.Addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Long enough for an execution that runs right up to its deadline.
		WriteTimeout: s.config.ExecTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr),
			slog.String("url", "http://"+s.config.Addr),
			slog.Duration("exec_timeout", s.config.ExecTimeout),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
