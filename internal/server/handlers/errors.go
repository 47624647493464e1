package handlers

import (
	"net/http"

	"igproxy/internal/server/respond"
	"igproxy/pkg/errors"
)

// NotFoundHandler answers unknown paths with a NOT_FOUND envelope
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, errors.New(errors.CodeNotFound, "The requested resource was not found"))
}

// MethodNotAllowedHandler answers known paths hit with the wrong method
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, errors.New(errors.CodeMethodNotAllowed, "The requested method is not allowed for this resource"))
}
