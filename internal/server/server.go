package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frostlabs/frostgate/internal/config"
	"github.com/frostlabs/frostgate/internal/model"
	"github.com/frostlabs/frostgate/internal/ratelimit"
	"github.com/frostlabs/frostgate/internal/seed"
	"github.com/frostlabs/frostgate/internal/service"
	"github.com/frostlabs/frostgate/internal/storage"
)

// Server is the FrostGate HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// ServerConfig holds all dependencies for creating a Server.
type ServerConfig struct {
	Config   config.Config
	DB       *storage.DB
	Defender *service.Defender
	Seeder   *seed.Seeder
	Limiter  ratelimit.Limiter
	Logger   *slog.Logger
	Version  string
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Handlers returns the underlying handler set.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:       cfg.DB,
		Defender: cfg.Defender,
		Seeder:   cfg.Seeder,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
		Version:  cfg.Version,
	})

	defendRL := ratelimit.Middleware(cfg.Limiter,
		cfg.Config.RateLimitRPS, cfg.Config.RateLimitBurst, rateLimitKey)

	mux := http.NewServeMux()

	// Health (outside the auth boundary).
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /health/live", h.HandleHealthLive)
	mux.HandleFunc("GET /health/ready", h.HandleHealthReady)

	// Metadata.
	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("GET /v1/status", h.HandleStatus)

	// Decision endpoint (scoped, rate limited per tenant+route).
	defendWrite := requireScope(model.ScopeDefendWrite)
	mux.Handle("POST /defend", defendRL(defendWrite(http.HandlerFunc(h.HandleDefend))))
	mux.Handle("POST /v1/defend", defendRL(defendWrite(http.HandlerFunc(h.HandleDefend))))

	// Audit log queries.
	decisionsRead := requireScope(model.ScopeDecisionsRead)
	mux.Handle("GET /decisions", decisionsRead(http.HandlerFunc(h.HandleListDecisions)))
	mux.Handle("GET /decisions/{id}", decisionsRead(http.HandlerFunc(h.HandleGetDecision)))

	// Feed surface.
	feedRead := requireScope(model.ScopeFeedRead)
	mux.Handle("GET /feed/live", feedRead(http.HandlerFunc(h.HandleFeedLive)))
	mux.Handle("HEAD /feed/stream", feedRead(http.HandlerFunc(h.HandleFeedStreamHead)))
	mux.Handle("GET /feed/stream", feedRead(http.HandlerFunc(h.HandleFeedStream)))

	// Dev seed surface: mounted only when enabled, 404 otherwise.
	if cfg.Config.DevEventsEnabled {
		mux.HandleFunc("POST /dev/seed", h.HandleDevSeed)
		mux.HandleFunc("POST /dev/emit", h.HandleDevEmit)
	}

	for _, m := range enabledModules(cfg) {
		m.Mount(mux)
		cfg.Logger.Info("module mounted", "module", m.Name())
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.DB, cfg.Config.AuthEnabled, cfg.Config.APIKey, cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
			Handler:      handler,
			ReadTimeout:  cfg.Config.ReadTimeout,
			WriteTimeout: cfg.Config.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// enabledModules assembles the feature-flagged surfaces.
func enabledModules(cfg ServerConfig) []Module {
	var modules []Module
	if cfg.Config.MissionEnvelopeEnabled {
		modules = append(modules, newMissionModule())
	}
	if cfg.Config.RingRouterEnabled {
		modules = append(modules, ringModule{})
	}
	if cfg.Config.ROEEngineEnabled {
		modules = append(modules, roeModule{})
	}
	if cfg.Config.ForensicsEnabled {
		modules = append(modules, forensicsModule{db: cfg.DB})
	}
	if cfg.Config.GovernanceEnabled {
		modules = append(modules, governanceModule{db: cfg.DB})
	}
	return modules
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
