package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID honors a caller-provided request id so the merchant backend can
// correlate its own request logs with the bridge's, minting one otherwise.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
