package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taakra/engine/internal/api/middleware"
	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/api/validators"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the error envelope. debug exposes causes of server errors.
func writeError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	status, apiErr := types.FromAppError(err, debug)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: true, Message: msg})
}

// decodeJSON reads a JSON body into dst and validates it. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return appErr.Wrap(err, appErr.CodeInvalid, "Invalid JSON body")
	}
	return validators.New().Struct(dst)
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeInvalid, "Invalid "+name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s, field string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErr.New(appErr.CodeInvalid, "Invalid "+field).
		WithMeta("details", []validators.FieldError{{Field: field, Message: "must be a valid date"}})
}

func optionalDate(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// mustUser returns the user stored by the auth middleware.
func mustUser(r *http.Request) *models.User {
	u := middleware.CurrentUser(r.Context())
	if u == nil {
		panic("handler mounted without auth middleware")
	}
	return u
}
