package middleware

import (
	"net/http"
	"runtime/debug"

	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

// Recovery logs panics and answers 500 with the generic error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.L().Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				writeCode(w, r, appErr.CodeInternal, "panic")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
