package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"igproxy/internal/server/handlers"
	servermw "igproxy/internal/server/middleware"
	"igproxy/pkg/auth"
	"igproxy/pkg/instagram"
	"igproxy/pkg/ratelimit"
)

type routeDeps struct {
	gate     *auth.Gate
	fetcher  instagram.Fetcher
	clock    ratelimit.Clock
	maxBytes int64
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(d routeDeps) {
	s.router.Get("/health", handlers.HealthHandler)

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(servermw.Authenticate(d.gate))
		r.Use(servermw.RateLimit(s.limiter, s.logger, s.metrics, d.clock))
		r.Method(http.MethodPost, "/", handlers.NewDownloadHandler(d.fetcher, d.maxBytes))
	})
}
