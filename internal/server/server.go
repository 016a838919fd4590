// Package server provides the HTTP read API over the persistence store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rhersen/trainwatch/internal/database"
	"github.com/rhersen/trainwatch/internal/store"
	"github.com/rhersen/trainwatch/internal/stream"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	Store         *store.Store
	DB            *database.DB
	DataDir       string
	Port          int
	Positions     *stream.Manager
	Announcements *stream.Manager
}

// Server represents the HTTP server
type Server struct {
	router        *chi.Mux
	server        *http.Server
	log           zerolog.Logger
	store         *store.Store
	db            *database.DB
	dataDir       string
	positions     *stream.Manager
	announcements *stream.Manager
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		log:           cfg.Log.With().Str("component", "server").Logger(),
		store:         cfg.Store,
		db:            cfg.DB,
		dataDir:       cfg.DataDir,
		positions:     cfg.Positions,
		announcements: cfg.Announcements,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/positions", s.handlePositions)
		r.Get("/positions/{train}", s.handlePositionsByTrain)
		r.Get("/announcements", s.handleAnnouncements)
		r.Get("/announcements/{train}", s.handleAnnouncementsByTrain)
		r.Get("/stats", s.handleStats)
		r.Get("/system", s.handleSystem)
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}

	return s
}

// Router returns the chi router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving HTTP requests; blocks until shutdown
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
