package types

import (
	"net/http"

	"github.com/taakra/engine/internal/api/validators"
	appErr "github.com/taakra/engine/pkg/errors"
)

const genericServerError = "Server error"

// StatusFor maps an error code onto its HTTP status.
func StatusFor(code appErr.Code) int {
	switch code {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized, appErr.CodeTokenExpired:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FromAppError renders err for clients. Server-side failures keep a generic
// message; debug adds the underlying cause as details.
func FromAppError(err error, debug bool) (int, *APIError) {
	if err == nil {
		return http.StatusOK, nil
	}
	if fields := validators.Fields(err); fields != nil {
		return http.StatusBadRequest, &APIError{Code: string(appErr.CodeInvalid), Message: "Validation failed", Details: fields}
	}

	e, ok := appErr.As(err)
	if !ok {
		out := &APIError{Code: string(appErr.CodeInternal), Message: genericServerError}
		if debug {
			out.Details = err.Error()
		}
		return http.StatusInternalServerError, out
	}

	status := StatusFor(e.Code)
	out := &APIError{Code: string(e.Code), Message: e.Message}
	if status >= http.StatusInternalServerError {
		out.Message = genericServerError
		if debug {
			out.Details = e.Error()
		}
	} else if details, ok := e.Meta["details"]; ok {
		out.Details = details
	}
	return status, out
}
