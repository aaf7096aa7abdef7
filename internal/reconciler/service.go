package reconciler

import (
	"context"

	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/internal/orders"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	"github.com/rangolink/merchant-bridge/pkg/enums"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// orderStore is the slice of the orders repository the reconciler needs.
type orderStore interface {
	UpsertByUpstreamID(ctx context.Context, up orders.Upsert) (*models.Order, *enums.OrderStatus, error)
	AppendHistory(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

// OrderSummary is the per-event outcome for a successfully applied event.
type OrderSummary struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UpstreamID string            `json:"upstream_id"`
	DisplayID  string            `json:"display_id"`
	Status     enums.OrderStatus `json:"status"`
	Created    bool              `json:"created"`
}

// EventFailure records an event that could not be applied. The event stays
// unacknowledged upstream and will be redelivered on a later sweep.
type EventFailure struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

// Result summarizes one batch of events. AcknowledgedIDs holds the event ids
// safe to acknowledge: exactly those whose order row and history entry both
// landed.
type Result struct {
	AcknowledgedIDs []string       `json:"acknowledged_ids"`
	Orders          []OrderSummary `json:"orders"`
	Failures        []EventFailure `json:"failures"`
}

// Service applies marketplace events to the local order store. Processing is
// idempotent per upstream order id and isolated per event: one bad event
// never blocks the rest of the batch.
type Service struct {
	store orderStore
	logg  *logger.Logger
}

// NewService builds the reconciler.
func NewService(store orderStore, logg *logger.Logger) *Service {
	return &Service{store: store, logg: logg}
}

// Apply walks the batch in delivery order and upserts one order row per
// event, appending a history entry for every applied event so redeliveries
// remain visible in the trail.
func (s *Service) Apply(ctx context.Context, tenantID string, events []marketplace.Event) Result {
	result := Result{
		AcknowledgedIDs: make([]string, 0, len(events)),
		Orders:          make([]OrderSummary, 0, len(events)),
	}

	for _, event := range events {
		summary, err := s.applyEvent(ctx, tenantID, event)
		if err != nil {
			lctx := s.logg.WithFields(ctx, map[string]any{
				"event_id":          event.ID,
				"upstream_order_id": event.OrderID,
				"code":              event.Code,
			})
			s.logg.Error(lctx, "applying marketplace event", err)
			result.Failures = append(result.Failures, EventFailure{
				EventID: event.ID,
				Reason:  err.Error(),
			})
			continue
		}
		result.AcknowledgedIDs = append(result.AcknowledgedIDs, event.ID)
		result.Orders = append(result.Orders, summary)
	}

	return result
}

func (s *Service) applyEvent(ctx context.Context, tenantID string, event marketplace.Event) (OrderSummary, error) {
	status := orders.MapEventCode(event.Code)

	order, previous, err := s.store.UpsertByUpstreamID(ctx, orders.Upsert{
		TenantID:   tenantID,
		UpstreamID: event.OrderID,
		DisplayID:  orders.DisplayID(event.OrderID),
		Status:     status,
		EventTime:  event.CreatedAt,
	})
	if err != nil {
		return OrderSummary{}, err
	}
	if previous != nil && previous.IsTerminal() && status != *previous {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"upstream_order_id": event.OrderID,
			"from":              previous.String(),
			"to":                status.String(),
		})
		s.logg.Warn(lctx, "status transition out of a terminal state")
	}

	if err := s.store.AppendHistory(ctx, order.ID, status); err != nil {
		return OrderSummary{}, err
	}

	return OrderSummary{
		OrderID:    order.ID,
		UpstreamID: order.UpstreamID,
		DisplayID:  order.DisplayID,
		Status:     order.Status,
		Created:    previous == nil,
	}, nil
}
