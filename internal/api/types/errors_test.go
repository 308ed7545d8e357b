package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taakra/engine/internal/api/validators"
	appErr "github.com/taakra/engine/pkg/errors"
)

func TestFromAppErrorStatuses(t *testing.T) {
	cases := []struct {
		code   appErr.Code
		status int
	}{
		{appErr.CodeInvalid, http.StatusBadRequest},
		{appErr.CodeUnauthorized, http.StatusUnauthorized},
		{appErr.CodeTokenExpired, http.StatusUnauthorized},
		{appErr.CodeForbidden, http.StatusForbidden},
		{appErr.CodeNotFound, http.StatusNotFound},
		{appErr.CodeConflict, http.StatusConflict},
		{appErr.CodeUnavailable, http.StatusServiceUnavailable},
		{appErr.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, body := FromAppError(appErr.New(tc.code, "msg"), false)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, string(tc.code), body.Code)
	}
}

func TestFromAppErrorHidesInternals(t *testing.T) {
	err := appErr.Wrap(errors.New("pq: relation missing"), appErr.CodeInternal, "list users failed")

	status, body := FromAppError(err, false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", body.Message)
	assert.Nil(t, body.Details)

	_, body = FromAppError(err, true)
	assert.Contains(t, body.Details, "relation missing")

	status, body = FromAppError(errors.New("boom"), false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body.Code)
	assert.Equal(t, "Server error", body.Message)
}

func TestFromAppErrorValidation(t *testing.T) {
	err := validators.New().Struct(LoginRequest{})

	status, body := FromAppError(err, false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Len(t, body.Details, 2)
}
