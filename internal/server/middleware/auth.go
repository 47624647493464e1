package middleware

import (
	"context"
	"net/http"

	"igproxy/internal/server/respond"
	"igproxy/pkg/auth"
)

type tokenKey struct{}

// Authenticate requires a valid bearer token and stores it in the request
// context
func Authenticate(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := gate.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), tokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext returns the authenticated bearer token, if any
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
