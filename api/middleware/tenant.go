package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rangolink/merchant-bridge/api/responses"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

const tenantHeader = "Tenant-Id"

type tenantCtxKey struct{}

// Tenant requires the Tenant-Id header on every request it wraps and stows
// the value in the request context.
func Tenant(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(tenantHeader))
			if tenantID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "tenant-id header is required"))
				return
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tenantID)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantID returns the tenant stored by Tenant, or empty when absent.
func TenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(tenantCtxKey{}).(string)
	return tenantID
}
