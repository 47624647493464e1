package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"igproxy/internal/server/respond"
	"igproxy/pkg/errors"
	"igproxy/pkg/logger"
)

// Recovery turns a panic in any later handler into an INTERNAL_ERROR
// envelope. If the response was already started the panic is only logged.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(chimw.WrapResponseWriter)
			if !ok {
				ww = chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			}

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					log.ErrorWithFields("panic recovered", map[string]interface{}{
						"request_id":       GetRequestID(r.Context()),
						"panic":            fmt.Sprintf("%v", rec),
						"stack_trace":      string(debug.Stack()),
						"response_started": ww.Status() != 0,
					})

					if ww.Status() != 0 {
						return
					}
					respond.Error(ww, r, errors.Wrap(errors.CodeInternal, "An unexpected error occurred",
						fmt.Errorf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
