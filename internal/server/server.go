// Package server provides the HTTP server and routing for sectorpilot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/sectorpilot/internal/di"
	"github.com/aristath/sectorpilot/internal/scheduler"
	audithandlers "github.com/aristath/sectorpilot/internal/modules/audit/handlers"
	portfoliohandlers "github.com/aristath/sectorpilot/internal/modules/portfolio/handlers"
	rebalancinghandlers "github.com/aristath/sectorpilot/internal/modules/rebalancing/handlers"
	scoringhandlers "github.com/aristath/sectorpilot/internal/modules/scoring/handlers"
	settingshandlers "github.com/aristath/sectorpilot/internal/modules/settings/handlers"
	universehandlers "github.com/aristath/sectorpilot/internal/modules/universe/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Container *di.Container
	Jobs      *di.JobInstances
	Scheduler *scheduler.Scheduler // optional; manual runs bypass it when nil
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.StockRepo,
			cfg.Container.HoldingRepo,
			cfg.Jobs,
			cfg.Container.UniverseDB,
			cfg.Container.PortfolioDB,
			cfg.Container.LedgerDB,
		).WithScheduler(cfg.Scheduler),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS is only needed when a dev frontend runs on another origin
	if devMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	} else {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", c.Metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/jobs", s.systemHandlers.HandleListJobs)
			r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
		})

		// Unified events stream (SSE)
		r.Get("/events/stream", NewEventsStreamHandler(c.EventBus, s.log).ServeHTTP)

		scoringhandlers.NewHandler(c.ScoringEngine, s.log).RegisterRoutes(r)
		universehandlers.NewHandler(c.UniverseService, s.log).RegisterRoutes(r)
		portfoliohandlers.NewHandler(c.PortfolioService, s.log).RegisterRoutes(r)
		settingshandlers.NewHandler(c.SettingsService, s.log).RegisterRoutes(r)
		rebalancinghandlers.NewHandler(c.RebalancingService, s.log).RegisterRoutes(r)
		audithandlers.NewHandler(c.AuditRepo, s.log).RegisterRoutes(r)
	})
}

// Router exposes the configured router (used by tests)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.container != nil && s.container.Metrics != nil {
			s.container.Metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		}

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
