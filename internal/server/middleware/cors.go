package middleware

import (
	"net/http"

	"igproxy/internal/server/respond"
	"igproxy/pkg/cors"
	"igproxy/pkg/errors"
)

// CORS attaches the policy's headers to every response, answers every
// preflight with an empty 204, and refuses disallowed origins when the
// policy enforces them
func CORS(policy *cors.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			policy.Apply(w.Header(), origin)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if policy.Reject(origin) {
				respond.Error(w, r, errors.New(errors.CodeUnauthorizedOrigin, "Origin not allowed"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
