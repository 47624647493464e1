package middleware

import (
	"net/http"
	"strconv"
	"time"

	"igproxy/internal/metrics"
	"igproxy/internal/server/respond"
	"igproxy/pkg/auth"
	"igproxy/pkg/errors"
	"igproxy/pkg/logger"
	"igproxy/pkg/ratelimit"
)

// RateLimit counts each request against its identity and rejects it with
// 429 once the window's allowance is used up. m may be nil.
func RateLimit(limiter *ratelimit.FixedWindow, log logger.Logger, m *metrics.Metrics, now ratelimit.Clock) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromContext(r.Context())
			identity := ratelimit.ClientIdentity(r, token)

			logIdentity := identity
			if token != "" {
				logIdentity = auth.Fingerprint(token)
			}
			if s := respond.FromContext(r.Context()); s != nil {
				s.Identity = logIdentity
			}

			d := limiter.Allow(identity)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retryAfter := d.RetryAfter(now())
				h.Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))

				logger.LogRateLimited(log, logIdentity, d.Count, d.Limit, d.ResetAt)
				if m != nil {
					m.IncRateLimited()
				}

				respond.Error(w, r, errors.New(errors.CodeRateLimited, "Too many requests, please try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
