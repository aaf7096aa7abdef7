package polling

import (
	"context"
	"encoding/json"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/internal/reconciler"
	"github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// upstream is the slice of the marketplace client the orchestrator uses.
type upstream interface {
	PollEvents(ctx context.Context, token string) ([]marketplace.Event, error)
	AcknowledgeEvents(ctx context.Context, token string, eventIDs []string) error
	GetOrder(ctx context.Context, token, tenantID, orderID string) (*marketplace.OrderDetail, error)
}

// tokenSource hands out a valid bearer token for a tenant, renewing as needed.
type tokenSource interface {
	EnsureValidToken(ctx context.Context, tenantID string) (string, error)
}

// applier persists a batch of events and reports what is safe to acknowledge.
type applier interface {
	Apply(ctx context.Context, tenantID string, events []marketplace.Event) reconciler.Result
}

// Summary is the outcome of one poll cycle for one tenant.
type Summary struct {
	Received     int                        `json:"received"`
	Processed    int                        `json:"processed"`
	Acknowledged int                        `json:"acknowledged"`
	Orders       []reconciler.OrderSummary  `json:"orders,omitempty"`
	Failures     []reconciler.EventFailure  `json:"failures,omitempty"`
	Details      map[string]json.RawMessage `json:"details,omitempty"`
}

// Service drives one tenant through a full poll cycle: token, events,
// reconciliation, acknowledgment.
type Service struct {
	tokens        tokenSource
	upstream      upstream
	reconciler    applier
	logg          *logger.Logger
	enrichDetails bool
}

// NewService builds the polling orchestrator. When enrichDetails is set, each
// applied order is enriched with the upstream order detail payload.
func NewService(tokens tokenSource, up upstream, rec applier, logg *logger.Logger, enrichDetails bool) *Service {
	return &Service{
		tokens:        tokens,
		upstream:      up,
		reconciler:    rec,
		logg:          logg,
		enrichDetails: enrichDetails,
	}
}

// Token returns a currently valid bearer token for the tenant.
func (s *Service) Token(ctx context.Context, tenantID string) (string, error) {
	return s.tokens.EnsureValidToken(ctx, tenantID)
}

// Acknowledge confirms the given event ids upstream and returns how many were
// confirmed. An empty batch is confirmed trivially without a network call.
func (s *Service) Acknowledge(ctx context.Context, tenantID string, eventIDs []string) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	token, err := s.tokens.EnsureValidToken(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if err := s.upstream.AcknowledgeEvents(ctx, token, eventIDs); err != nil {
		return 0, err
	}
	return len(eventIDs), nil
}

// Poll runs one cycle for the tenant. A cycle that sees no pending events
// returns a zero summary and never calls the acknowledgment endpoint. Events
// that failed to persist are left unacknowledged so the marketplace
// redelivers them.
func (s *Service) Poll(ctx context.Context, tenantID string) (*Summary, error) {
	ctx = s.logg.WithTenantID(ctx, tenantID)

	token, err := s.tokens.EnsureValidToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	events, err := s.upstream.PollEvents(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		s.logg.Debug(ctx, "no pending events")
		return &Summary{}, nil
	}

	result := s.reconciler.Apply(ctx, tenantID, events)

	summary := &Summary{
		Received:  len(events),
		Processed: len(result.AcknowledgedIDs),
		Orders:    result.Orders,
		Failures:  result.Failures,
	}
	if s.enrichDetails {
		summary.Details = s.fetchDetails(ctx, token, tenantID, result.Orders)
	}

	if len(result.AcknowledgedIDs) > 0 {
		if err := s.upstream.AcknowledgeEvents(ctx, token, result.AcknowledgedIDs); err != nil {
			// Orders are already persisted; the unacked events come back on
			// the next sweep and the upsert absorbs the redelivery.
			return summary, errors.Wrap(errors.CodeUpstream, err, "acknowledging events")
		}
		summary.Acknowledged = len(result.AcknowledgedIDs)
	}

	return summary, nil
}

func (s *Service) fetchDetails(ctx context.Context, token, tenantID string, applied []reconciler.OrderSummary) map[string]json.RawMessage {
	details := make(map[string]json.RawMessage, len(applied))
	for _, order := range applied {
		detail, err := s.upstream.GetOrder(ctx, token, tenantID, order.UpstreamID)
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "upstream_order_id", order.UpstreamID), "fetching order detail", err)
			continue
		}
		if !detail.OK() {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"upstream_order_id": order.UpstreamID,
				"upstream_status":   detail.HTTPStatus,
			}), "order detail lookup rejected upstream")
			continue
		}
		details[order.UpstreamID] = detail.Body
	}
	return details
}
