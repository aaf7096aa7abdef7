package merchants

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// gateway is the slice of the marketplace client the merchant passthrough
// uses. Every call is proxied verbatim: the marketplace owns the payloads.
type gateway interface {
	ListMerchants(ctx context.Context, token, tenantID string) (json.RawMessage, error)
	GetMerchant(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error)
	GetMerchantStatus(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error)
	GetDeliveryStatus(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error)
	UpdateMerchantStatus(ctx context.Context, token, tenantID, merchantID, status string) (json.RawMessage, error)
}

type tokenSource interface {
	EnsureValidToken(ctx context.Context, tenantID string) (string, error)
}

// Service proxies merchant reads and the availability toggle to the
// marketplace on behalf of a tenant.
type Service struct {
	tokens   tokenSource
	upstream gateway
	logg     *logger.Logger
}

// NewService builds the merchant passthrough service.
func NewService(tokens tokenSource, upstream gateway, logg *logger.Logger) *Service {
	return &Service{tokens: tokens, upstream: upstream, logg: logg}
}

func (s *Service) List(ctx context.Context, tenantID string) (json.RawMessage, error) {
	return s.proxy(ctx, tenantID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.ListMerchants(ctx, token, tenantID)
	})
}

func (s *Service) Get(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error) {
	if err := requireMerchantID(merchantID); err != nil {
		return nil, err
	}
	return s.proxy(ctx, tenantID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.GetMerchant(ctx, token, tenantID, merchantID)
	})
}

func (s *Service) Status(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error) {
	if err := requireMerchantID(merchantID); err != nil {
		return nil, err
	}
	return s.proxy(ctx, tenantID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.GetMerchantStatus(ctx, token, tenantID, merchantID)
	})
}

func (s *Service) DeliveryStatus(ctx context.Context, tenantID, merchantID string) (json.RawMessage, error) {
	if err := requireMerchantID(merchantID); err != nil {
		return nil, err
	}
	return s.proxy(ctx, tenantID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.GetDeliveryStatus(ctx, token, tenantID, merchantID)
	})
}

// UpdateStatus toggles merchant availability upstream. The accepted values
// are the marketplace's, not ours, so only blankness is rejected locally.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, merchantID, status string) (json.RawMessage, error) {
	if err := requireMerchantID(merchantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(status) == "" {
		return nil, errors.New(errors.CodeValidation, "merchant status is required")
	}
	return s.proxy(ctx, tenantID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.UpdateMerchantStatus(ctx, token, tenantID, merchantID, status)
	})
}

func (s *Service) proxy(ctx context.Context, tenantID string, call func(ctx context.Context, token string) (json.RawMessage, error)) (json.RawMessage, error) {
	token, err := s.tokens.EnsureValidToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return call(s.logg.WithTenantID(ctx, tenantID), token)
}

func requireMerchantID(merchantID string) error {
	if strings.TrimSpace(merchantID) == "" {
		return errors.New(errors.CodeValidation, "merchant id is required")
	}
	return nil
}
