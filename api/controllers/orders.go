package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/api/middleware"
	"github.com/rangolink/merchant-bridge/api/responses"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// OrderService exposes the local order projection and the upstream
// lifecycle actions.
type OrderService interface {
	List(ctx context.Context, tenantID string) ([]models.Order, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error)
	History(ctx context.Context, tenantID string, id uuid.UUID) ([]models.OrderStatusHistory, error)
	Detail(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error)
	Confirm(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error)
	Dispatch(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error)
	ReadyToPickup(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error)
}

func ListOrders(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		result, err := svc.List(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		id, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), tenantID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func GetOrderHistory(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())

		id, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), tenantID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// GetOrderDetail proxies the marketplace's full order payload.
func GetOrderDetail(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())
		upstreamID := chi.URLParam(r, "upstreamID")

		body, err := svc.Detail(r.Context(), tenantID, upstreamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func ConfirmOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.Confirm, logg)
}

func DispatchOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.Dispatch, logg)
}

func ReadyToPickupOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.ReadyToPickup, logg)
}

func orderAction(call func(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantID(r.Context())
		upstreamID := chi.URLParam(r, "upstreamID")

		body, err := call(r.Context(), tenantID, upstreamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
