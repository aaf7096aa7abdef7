package controllers

import (
	"context"
	"net/http"

	"github.com/rangolink/merchant-bridge/api/middleware"
	"github.com/rangolink/merchant-bridge/api/responses"
	"github.com/rangolink/merchant-bridge/api/validators"
	"github.com/rangolink/merchant-bridge/internal/polling"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// PollService runs poll cycles and acknowledgments on demand.
type PollService interface {
	Poll(ctx context.Context, tenantID string) (*polling.Summary, error)
	Acknowledge(ctx context.Context, tenantID string, eventIDs []string) (int, error)
}

// PollNow runs one poll cycle for the tenant and returns its summary.
func PollNow(svc PollService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		summary, err := svc.Poll(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type acknowledgeRequest struct {
	EventIDs []string `json:"event_ids" validate:"required,min=1,dive,required"`
}

// AcknowledgeEvents confirms the given event ids with the marketplace.
func AcknowledgeEvents(svc PollService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		var req acknowledgeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.Acknowledge(r.Context(), tenantID, req.EventIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"acknowledged": count})
	}
}
