// Package respond writes the gateway's JSON envelopes and records the
// outcome of each request for the access log.
package respond

import (
	"context"
	"encoding/json"
	"net/http"

	"igproxy/pkg/errors"
	"igproxy/pkg/models"
)

type stateKey struct{}

// State collects per-request details written by handlers and read by the
// access log once the response is complete
type State struct {
	ErrorCode errors.Code
	Err       error
	Identity  string
}

// NewContext attaches a fresh State to ctx
func NewContext(ctx context.Context) (context.Context, *State) {
	s := &State{}
	return context.WithValue(ctx, stateKey{}, s), s
}

// FromContext returns the State attached to ctx, or nil
func FromContext(ctx context.Context) *State {
	s, _ := ctx.Value(stateKey{}).(*State)
	return s
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a 200 envelope carrying result
func Success(w http.ResponseWriter, result *models.MediaResult) {
	JSON(w, http.StatusOK, models.Success(result))
}

// Error converts err to a failure envelope with the matching status.
// Unclassified errors become INTERNAL_ERROR.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.From(err)

	if s := FromContext(r.Context()); s != nil {
		s.ErrorCode = appErr.Code
		if appErr.Err != nil {
			s.Err = appErr.Err
		}
	}

	JSON(w, appErr.Status, models.Failure(appErr.Code, appErr.Message))
}
