package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// actionGateway is the slice of the marketplace client used to drive an
// order through its lifecycle upstream. The resulting status change comes
// back through polling, not through these calls.
type actionGateway interface {
	GetOrder(ctx context.Context, token, tenantID, orderID string) (*marketplace.OrderDetail, error)
	ConfirmOrder(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error)
	DispatchOrder(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error)
	ReadyToPickup(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error)
}

type tokenSource interface {
	EnsureValidToken(ctx context.Context, tenantID string) (string, error)
}

// Service exposes the local order projection and the upstream lifecycle
// actions for one tenant at a time.
type Service struct {
	repo     Repository
	tokens   tokenSource
	upstream actionGateway
	logg     *logger.Logger
}

// NewService builds the orders service.
func NewService(repo Repository, tokens tokenSource, upstream actionGateway, logg *logger.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, upstream: upstream, logg: logg}
}

// Get loads an order by local id, scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// GetByUpstreamID loads an order by the marketplace's identifier.
func (s *Service) GetByUpstreamID(ctx context.Context, tenantID, upstreamID string) (*models.Order, error) {
	return s.repo.FindByUpstreamID(ctx, tenantID, upstreamID)
}

// List returns the tenant's orders, newest first.
func (s *Service) List(ctx context.Context, tenantID string) ([]models.Order, error) {
	return s.repo.List(ctx, tenantID)
}

// History returns the append-only status trail for an order.
func (s *Service) History(ctx context.Context, tenantID string, id uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.repo.HistoryForOrder(ctx, id)
}

// Detail fetches the full order payload from the marketplace.
func (s *Service) Detail(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error) {
	token, err := s.tokens.EnsureValidToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	detail, err := s.upstream.GetOrder(ctx, token, tenantID, upstreamID)
	if err != nil {
		return nil, err
	}
	if !detail.OK() {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, marketplace.UpstreamMessage(detail.Body)).
			WithUpstream(detail.HTTPStatus, string(detail.Body))
	}
	return detail.Body, nil
}

// Confirm accepts the order upstream.
func (s *Service) Confirm(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error) {
	return s.action(ctx, tenantID, upstreamID, s.upstream.ConfirmOrder)
}

// Dispatch marks the order as out for delivery upstream.
func (s *Service) Dispatch(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error) {
	return s.action(ctx, tenantID, upstreamID, s.upstream.DispatchOrder)
}

// ReadyToPickup marks the order as ready for customer pickup upstream.
func (s *Service) ReadyToPickup(ctx context.Context, tenantID, upstreamID string) (json.RawMessage, error) {
	return s.action(ctx, tenantID, upstreamID, s.upstream.ReadyToPickup)
}

func (s *Service) action(ctx context.Context, tenantID, upstreamID string, call func(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error)) (json.RawMessage, error) {
	token, err := s.tokens.EnsureValidToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return call(s.logg.WithTenantID(ctx, tenantID), token, tenantID, upstreamID)
}
