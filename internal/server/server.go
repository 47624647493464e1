package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"igproxy/internal/metrics"
	"igproxy/internal/server/handlers"
	servermw "igproxy/internal/server/middleware"
	"igproxy/pkg/auth"
	"igproxy/pkg/config"
	"igproxy/pkg/cors"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/ratelimit"
)

// Options carries the collaborators a Server is built from. Nil fields
// are constructed from configuration.
type Options struct {
	Logger  logger.Logger
	Fetcher instagram.Fetcher
	Limiter *ratelimit.FixedWindow
	Metrics *metrics.Metrics
	// APIKey is the shared secret. Empty accepts any bearer token.
	APIKey string
	// Clock is used for Retry-After. Defaults to time.Now.
	Clock ratelimit.Clock
}

// Server is the HTTP gateway
type Server struct {
	router   *chi.Mux
	server   *http.Server
	cfg      *config.Config
	logger   logger.Logger
	limiter  *ratelimit.FixedWindow
	metrics  *metrics.Metrics
	policy   *cors.Policy
	upstream string
}

// New wires the gateway pipeline
func New(cfg *config.Config, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "server")

	m := opts.Metrics
	if m == nil && cfg.Metrics.Enabled {
		m = metrics.New(true)
	}

	upstream := "custom"
	fetcher := opts.Fetcher
	if fetcher == nil {
		var clientOpts []instagram.ClientOption
		if m != nil {
			clientOpts = append(clientOpts, instagram.WithObserver(m.ObserveUpstream))
		}
		client := instagram.NewClient(&cfg.Upstream, log.WithField("component", "upstream"), clientOpts...)
		upstream = client.Endpoint()
		fetcher = client
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewFixedWindow(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	}

	policy := cors.NewPolicy(cfg.CORS.AllowedOrigins, cfg.CORS.EnforceOrigin)

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   log,
		limiter:  limiter,
		metrics:  m,
		policy:   policy,
		upstream: upstream,
	}

	gate := auth.NewGate(opts.APIKey)

	// RealIP → RequestID → AccessLog → Recovery → CORS, then per-route auth and limiting
	s.router.Use(chimw.RealIP)
	s.router.Use(servermw.RequestID)
	s.router.Use(servermw.AccessLog(log, m))
	s.router.Use(servermw.Recovery(log))
	s.router.Use(servermw.CORS(policy))

	s.router.NotFound(handlers.NotFoundHandler)
	s.router.MethodNotAllowed(handlers.MethodNotAllowedHandler)

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	s.registerRoutes(routeDeps{
		gate:     gate,
		fetcher:  fetcher,
		clock:    opts.Clock,
		maxBytes: cfg.Server.MaxBodyBytes,
	})

	return s
}

// Start listens on the configured address and blocks until the server stops
func (s *Server) Start() error {
	s.logger.InfoWithFields("starting HTTP server", map[string]interface{}{
		"addr":            s.server.Addr,
		"allowed_origins": s.policy.Origins(),
		"enforce_origin":  s.cfg.CORS.EnforceOrigin,
		"rate_limit":      fmt.Sprintf("%d/%s", s.limiter.Limit(), s.limiter.Window()),
		"upstream":        s.upstream,
		"metrics":         s.metrics != nil,
	})

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within the configured
// shutdown timeout. The limiter janitor runs for the lifetime of the call.
func (s *Server) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.limiter.Run(janitorCtx, s.cfg.RateLimit.CleanupInterval, s.onPrune)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) onPrune(removed int) {
	remaining := s.limiter.Len()
	if s.metrics != nil {
		s.metrics.ObservePrune(removed, remaining)
	}
	if removed > 0 {
		s.logger.DebugWithFields("pruned rate limit entries", map[string]interface{}{
			"removed":   removed,
			"remaining": remaining,
		})
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Limiter returns the rate limiter in use
func (s *Server) Limiter() *ratelimit.FixedWindow {
	return s.limiter
}
