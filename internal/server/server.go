// Package server wires the HTTP surface: platform webhooks, the management
// API and the live feed WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/api/ws"
	"github.com/gosuda/courier/internal/bus"
	"github.com/gosuda/courier/internal/config"
	"github.com/gosuda/courier/internal/hub"
	"github.com/gosuda/courier/internal/server/middleware"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	manager    *hub.Manager
	feed       *bus.Bus
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the lifetime of
// background middleware state (rate limiter cleanup).
func New(ctx context.Context, cfg *config.Config, manager *hub.Manager, feed *bus.Bus, deps APIDeps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	wsHub := ws.NewHub(feed)
	if deps.FeedSource != nil {
		wsHub = ws.NewMirrorHub(deps.FeedSource)
	}

	s := &Server{
		router:  router,
		manager: manager,
		feed:    feed,
		wsHub:   wsHub,
		cfg:     cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Platform webhooks: unauthenticated inbound surface, rate limited per
	// source IP. Platforms retry on non-2xx, so handlers always answer 200
	// once the payload is read.
	router.Route("/webhook", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, 50, 100))
		s.registerWebhookRoutes(r)
	})

	// Management API.
	if cfg.Server.JWTSecret == "" {
		log.Warn().Msg("COURIER_API_JWT_SECRET not set, management API runs unauthenticated")
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Server.JWTSecret))
		s.registerAPIRoutes(r, deps)
	})

	// Live feed WebSocket.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Server.JWTSecret))
		r.Get("/feed", s.wsHub.ServeFeed)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
