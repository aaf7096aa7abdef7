package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rangolink/merchant-bridge/api/middleware"
	"github.com/rangolink/merchant-bridge/api/responses"
	"github.com/rangolink/merchant-bridge/api/validators"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// MerchantService proxies merchant reads and the availability toggle.
type MerchantService interface {
	List(ctx context.Context, tenantID string) (json.RawMessage, error)
	Get(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error)
	Status(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error)
	DeliveryStatus(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error)
	UpdateStatus(ctx context.Context, tenantID, merchantID, status string) (json.RawMessage, error)
}

func ListMerchants(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		body, err := svc.List(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func GetMerchant(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return merchantRead(svc.Get, logg)
}

func GetMerchantStatus(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return merchantRead(svc.Status, logg)
}

func GetMerchantDeliveryStatus(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return merchantRead(svc.DeliveryStatus, logg)
}

type merchantStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateMerchantStatus(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())
		merchantID := chi.URLParam(r, "merchantID")

		var req merchantStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body, err := svc.UpdateStatus(r.Context(), tenantID, merchantID, req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func merchantRead(call func(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())
		merchantID := chi.URLParam(r, "merchantID")

		body, err := call(r.Context(), tenantID, merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}
