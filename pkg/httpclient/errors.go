package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// DownstreamErrorResponse covers the two error bodies the storefront backend
// produces: the enveloped {"error":{"code","message"}} form and the flat
// {"message":"..."} form.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The upstream message is preserved when the body carries
// one; otherwise a generic message is used.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return mapDownstreamError(resp.StatusCode, "", "", serviceName)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil {
		switch {
		case downstream.Error != nil:
			return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
		case downstream.Message != "":
			return mapDownstreamError(resp.StatusCode, "", downstream.Message, serviceName)
		}
	}

	return mapDownstreamError(resp.StatusCode, "", "", serviceName)
}

// mapDownstreamError translates a downstream status code and message into an
// AppError that preserves the error semantics.
func mapDownstreamError(status int, code, message, serviceName string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
		if message == "" {
			message = apperrors.FallbackMessage
		}
	}

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("%s: %s", serviceName, message),
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status >= 500:
		appErr := apperrors.ServiceError(message)
		if code != "" {
			appErr.Code = code
		}
		return appErr
	default:
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", status)
		}
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  status,
		}
	}
}
