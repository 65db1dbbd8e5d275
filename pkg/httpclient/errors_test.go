package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// structuredError builds an enveloped JSON error body.
func structuredError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestParseResponseError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"not found", http.StatusNotFound, apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, apperrors.ErrInvalidInput},
		{"conflict", http.StatusConflict, apperrors.ErrConflict},
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, apperrors.ErrForbidden},
		{"internal", http.StatusInternalServerError, apperrors.ErrServiceUnavail},
		{"bad gateway", http.StatusBadGateway, apperrors.ErrServiceUnavail},
		{"unavailable", http.StatusServiceUnavailable, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, structuredError("X", "boom")), "backend")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestParseResponseError_EnvelopedMessagePreserved(t *testing.T) {
	resp := makeResponse(http.StatusConflict, structuredError("CONFLICT", "game already in cart"))
	err := ParseResponseError(resp, "backend")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "game already in cart", appErr.Message)
}

func TestParseResponseError_FlatMessageBody(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":"Game already in wishlist"}`)
	err := ParseResponseError(resp, "backend")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Equal(t, "Game already in wishlist", appErr.Message)
}

func TestParseResponseError_ServerErrorKeepsCodeAndMessage(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, structuredError("INTERNAL_ERROR", "database offline"))
	err := ParseResponseError(resp, "backend")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	assert.Equal(t, "database offline", appErr.Message)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestParseResponseError_UnstructuredBodyUsesStatusText(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "backend")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), appErr.Message)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusUnauthorized, ""), "backend")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, http.StatusText(http.StatusUnauthorized), apperrors.Message(err))
}

func TestParseResponseError_NotFoundQualifiedWithService(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusNotFound, `{"message":"no such game"}`), "wishlist")
	assert.Equal(t, "wishlist: no such game", apperrors.Message(err))
}

func TestParseResponseError_UnhandledStatusKeepsStatus(t *testing.T) {
	resp := makeResponse(http.StatusTooManyRequests, `{"message":"slow down"}`)
	err := ParseResponseError(resp, "backend")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, "HTTP_429", appErr.Code)
}
