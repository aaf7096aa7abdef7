package tokens

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// expiryMargin keeps a token from being handed out right before it expires;
// an in-flight upstream call must not race the expiry.
const expiryMargin = time.Minute

// defaultExpirySeconds applies when the exchange response omits expiresIn.
const defaultExpirySeconds = 3600

type exchanger interface {
	Authenticate(ctx context.Context, clientID, clientSecret string) (*marketplace.AuthResponse, error)
}

type credentialStore interface {
	FindByTenantID(ctx context.Context, tenantID string) (*models.Company, error)
	UpdateToken(ctx context.Context, companyID uuid.UUID, accessToken string, expiresAt time.Time) error
}

// Service keeps each tenant's bearer token fresh: cached token when still
// valid, client-credentials exchange plus persistence when not.
type Service struct {
	creds    credentialStore
	upstream exchanger
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a token manager with the required dependencies.
func NewService(creds credentialStore, upstream exchanger, logg *logger.Logger) (*Service, error) {
	if creds == nil {
		return nil, fmt.Errorf("credential store required")
	}
	if upstream == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	return &Service{
		creds:    creds,
		upstream: upstream,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// EnsureValidToken resolves the tenant and returns a usable bearer token.
func (s *Service) EnsureValidToken(ctx context.Context, tenantID string) (string, error) {
	company, err := s.creds.FindByTenantID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return s.EnsureForCompany(ctx, company)
}

// EnsureForCompany returns the cached token when it is still valid, or
// performs the exchange and persists the renewed pair. A failed exchange
// leaves the stored credential untouched.
func (s *Service) EnsureForCompany(ctx context.Context, company *models.Company) (string, error) {
	if company == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}

	if token, ok := s.cachedToken(company); ok {
		return token, nil
	}

	clientID := strings.TrimSpace(company.ClientID)
	clientSecret := strings.TrimSpace(company.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfig, "client_id or client_secret missing for tenant").
			WithDetails(map[string]any{"tenant_id": company.TenantID})
	}

	auth, err := s.upstream.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		return "", err
	}

	expiresIn := auth.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}
	expiresAt := s.now().Add(time.Duration(expiresIn) * time.Second)

	if err := s.creds.UpdateToken(ctx, company.ID, auth.AccessToken, expiresAt); err != nil {
		return "", err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithTenantID(ctx, company.TenantID), "bearer token renewed")
	}
	return auth.AccessToken, nil
}

// cachedToken applies the validity rule: token present, expiry present, and
// now still before expiry minus the safety margin.
func (s *Service) cachedToken(company *models.Company) (string, bool) {
	if company.AccessToken == nil || *company.AccessToken == "" {
		return "", false
	}
	if company.TokenExpiresAt == nil {
		return "", false
	}
	if !s.now().Before(company.TokenExpiresAt.Add(-expiryMargin)) {
		return "", false
	}
	return *company.AccessToken, true
}
