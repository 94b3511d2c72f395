// Package web exposes the attendance HTTP API.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/recognition"
	"github.com/kozaktomas/argus/internal/store"
	"github.com/kozaktomas/argus/internal/web/middleware"
)

// Deps are the services the API is built on.
type Deps struct {
	Recognition *recognition.Service
	Ledger      *ledger.Ledger
	Employees   store.EmployeeStore
	Punches     store.PunchStore
}

// Server represents the web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
}

// NewServer creates a new web server.
func NewServer(port int, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		deps:   deps,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // capture uploads can be slow on kiosk networks
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
