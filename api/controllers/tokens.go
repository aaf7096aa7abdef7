package controllers

import (
	"context"
	"net/http"

	"github.com/rangolink/merchant-bridge/api/middleware"
	"github.com/rangolink/merchant-bridge/api/responses"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// TokenService hands out a valid marketplace bearer token for a tenant.
type TokenService interface {
	EnsureValidToken(ctx context.Context, tenantID string) (string, error)
}

// IssueToken returns the tenant's current marketplace token, exchanging
// credentials upstream first when the cached one is stale.
func IssueToken(svc TokenService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		token, err := svc.EnsureValidToken(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"access_token": token,
			"type":         "bearer",
		})
	}
}
