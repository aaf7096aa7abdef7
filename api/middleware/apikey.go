package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rangolink/merchant-bridge/api/responses"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// APIKey guards the tenant-facing routes with the shared inbound key.
func APIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(apiKeyHeader)
			if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
