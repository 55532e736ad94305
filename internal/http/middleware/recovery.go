package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/integrateisp/ops-api/internal/domain"
	"go.uber.org/zap"
)

// Recoverer turns a handler panic into a 500 problem response and logs the stack
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic while handling request",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get(RequestIDHeader)),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(domain.NewAPIError(http.StatusInternalServerError, "An internal error occurred"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
