package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"igproxy/internal/server/respond"
	"igproxy/pkg/errors"
	"igproxy/pkg/instagram"
)

// DefaultMaxBodyBytes caps the request body when no limit is configured
const DefaultMaxBodyBytes = 64 << 10

// DownloadHandler resolves an Instagram URL to its download options
type DownloadHandler struct {
	fetcher      instagram.Fetcher
	maxBodyBytes int64
}

// NewDownloadHandler creates the handler. maxBodyBytes <= 0 uses the default.
func NewDownloadHandler(fetcher instagram.Fetcher, maxBodyBytes int64) *DownloadHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &DownloadHandler{fetcher: fetcher, maxBodyBytes: maxBodyBytes}
}

func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	postURL, err := h.readURL(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := instagram.ValidateURL(postURL); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.fetcher.Fetch(r.Context(), postURL)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.Success(w, result)
}

// readURL extracts the url field. A body that is not valid JSON, or is
// JSON null, is an internal error. A missing or falsy url (null, "",
// false, 0) is URL_REQUIRED and any other non-string url is
// INVALID_INSTAGRAM_URL.
func (h *DownloadHandler) readURL(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "An unexpected error occurred",
			fmt.Errorf("failed to read request body: %w", err))
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "An unexpected error occurred",
			fmt.Errorf("failed to parse request body: %w", err))
	}

	switch p := payload.(type) {
	case nil:
		return "", errors.Wrap(errors.CodeInternal, "An unexpected error occurred",
			fmt.Errorf("request body is null"))
	case map[string]interface{}:
		switch v := p["url"].(type) {
		case nil:
			return "", errors.New(errors.CodeURLRequired, "URL is required")
		case string:
			return v, nil
		case bool:
			if !v {
				return "", errors.New(errors.CodeURLRequired, "URL is required")
			}
			return "", errors.New(errors.CodeInvalidInstagramURL, "Invalid Instagram URL")
		case float64:
			if v == 0 {
				return "", errors.New(errors.CodeURLRequired, "URL is required")
			}
			return "", errors.New(errors.CodeInvalidInstagramURL, "Invalid Instagram URL")
		default:
			return "", errors.New(errors.CodeInvalidInstagramURL, "Invalid Instagram URL")
		}
	default:
		return "", errors.New(errors.CodeURLRequired, "URL is required")
	}
}
