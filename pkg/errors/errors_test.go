package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthorizedOrigin, http.StatusForbidden},
		{CodeAuthRequired, http.StatusUnauthorized},
		{CodeInvalidAPIKey, http.StatusUnauthorized},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeURLRequired, http.StatusBadRequest},
		{CodeInvalidInstagramURL, http.StatusBadRequest},
		{CodeNoMediaFound, http.StatusNotFound},
		{CodeFetchFailed, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
			assert.Equal(t, tt.want, New(tt.code, "msg").Status)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(CodeFetchFailed, "upstream unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "FETCH_FAILED")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("classified error survives wrapping", func(t *testing.T) {
		original := New(CodeRateLimited, "slow down")
		wrapped := fmt.Errorf("limiter: %w", original)

		got := From(wrapped)
		require.NotNil(t, got)
		assert.Equal(t, CodeRateLimited, got.Code)
		assert.Equal(t, http.StatusTooManyRequests, got.Status)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := From(stderrors.New("boom"))
		require.NotNil(t, got)
		assert.Equal(t, CodeInternal, got.Code)
		assert.Equal(t, http.StatusInternalServerError, got.Status)
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeNoMediaFound, "nothing"))
	assert.True(t, Is(err, CodeNoMediaFound))
	assert.False(t, Is(err, CodeFetchFailed))
	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
}
