package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/taakra/engine/internal/api/types"
	appErr "github.com/taakra/engine/pkg/errors"
)

// writeError renders err with the same envelope the handlers use.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := types.FromAppError(err, false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}

func writeCode(w http.ResponseWriter, r *http.Request, code appErr.Code, msg string) {
	writeError(w, r, appErr.New(code, msg))
}
