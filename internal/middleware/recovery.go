package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/errors"
	"github.com/FlashpointBV/prerender/internal/logging"
)

// Recovery creates a panic recovery middleware that logs the panic and
// responds with a JSON 500.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logging.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)

					he := errors.ErrInternalServer.WithDetails(fmt.Sprintf("panic: %v", err))
					if reqID := GetRequestID(r); reqID != "" {
						he = he.WithRequestID(reqID)
					}
					he.WriteJSON(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
