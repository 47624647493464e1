package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"igproxy/internal/metrics"
	"igproxy/internal/server/respond"
	"igproxy/pkg/logger"
)

// AccessLog writes one log line per request and records request metrics.
// m may be nil when metrics are disabled.
func AccessLog(log logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, state := respond.NewContext(r.Context())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			entry := log
			if state.Err != nil {
				entry = log.WithError(state.Err)
			}
			logger.LogRequest(entry, logger.RequestFields{
				RequestID:  GetRequestID(r.Context()),
				Method:     r.Method,
				Path:       r.URL.Path,
				RemoteAddr: r.RemoteAddr,
				Status:     status,
				ErrorCode:  string(state.ErrorCode),
				Identity:   state.Identity,
				Duration:   duration,
			})

			if m != nil {
				m.ObserveRequest(routePattern(r), status, string(state.ErrorCode), duration)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
