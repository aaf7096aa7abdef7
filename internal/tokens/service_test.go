package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

type stubCredStore struct {
	company *models.Company
	findErr error

	updatedID        uuid.UUID
	updatedToken     string
	updatedExpiresAt time.Time
	updateCalls      int
	updateErr        error
}

func (s *stubCredStore) FindByTenantID(ctx context.Context, tenantID string) (*models.Company, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.company, nil
}

func (s *stubCredStore) UpdateToken(ctx context.Context, companyID uuid.UUID, accessToken string, expiresAt time.Time) error {
	s.updateCalls++
	s.updatedID = companyID
	s.updatedToken = accessToken
	s.updatedExpiresAt = expiresAt
	return s.updateErr
}

type stubExchanger struct {
	resp  *marketplace.AuthResponse
	err   error
	calls int
}

func (s *stubExchanger) Authenticate(ctx context.Context, clientID, clientSecret string) (*marketplace.AuthResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, store *stubCredStore, upstream *stubExchanger) *Service {
	t.Helper()
	svc, err := NewService(store, upstream, nil)
	require.NoError(t, err)
	svc.now = fixedNow
	return svc
}

func companyWithToken(token string, expiresAt time.Time) *models.Company {
	return &models.Company{
		ID:             uuid.New(),
		TenantID:       "tenant-1",
		ClientID:       "cid",
		ClientSecret:   "secret",
		AccessToken:    &token,
		TokenExpiresAt: &expiresAt,
	}
}

func TestEnsureValidTokenReturnsCachedWithoutExchange(t *testing.T) {
	store := &stubCredStore{company: companyWithToken("cached", fixedNow().Add(30*time.Minute))}
	upstream := &stubExchanger{}
	svc := newTestService(t, store, upstream)

	token, err := svc.EnsureValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	assert.Zero(t, upstream.calls, "no exchange expected for a valid cached token")
	assert.Zero(t, store.updateCalls)
}

func TestEnsureValidTokenRenewsWhenInsideMargin(t *testing.T) {
	// 30s from expiry: inside the one-minute safety margin.
	store := &stubCredStore{company: companyWithToken("stale", fixedNow().Add(30*time.Second))}
	upstream := &stubExchanger{resp: &marketplace.AuthResponse{AccessToken: "fresh", ExpiresIn: 1800}}
	svc := newTestService(t, store, upstream)

	token, err := svc.EnsureValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 1, store.updateCalls)
	assert.Equal(t, "fresh", store.updatedToken)
	assert.Equal(t, fixedNow().Add(30*time.Minute), store.updatedExpiresAt)
}

func TestEnsureValidTokenRenewsWhenPairAbsent(t *testing.T) {
	store := &stubCredStore{company: &models.Company{
		ID:           uuid.New(),
		TenantID:     "tenant-1",
		ClientID:     "cid",
		ClientSecret: "secret",
	}}
	upstream := &stubExchanger{resp: &marketplace.AuthResponse{AccessToken: "fresh"}}
	svc := newTestService(t, store, upstream)

	token, err := svc.EnsureValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, upstream.calls)
	// expiresIn omitted: default one hour applies
	assert.Equal(t, fixedNow().Add(time.Hour), store.updatedExpiresAt)
}

func TestEnsureValidTokenBlankClientIDFailsBeforeExchange(t *testing.T) {
	store := &stubCredStore{company: &models.Company{
		ID:           uuid.New(),
		TenantID:     "tenant-1",
		ClientID:     "   ",
		ClientSecret: "secret",
	}}
	upstream := &stubExchanger{}
	svc := newTestService(t, store, upstream)

	_, err := svc.EnsureValidToken(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfig))
	assert.Zero(t, upstream.calls, "no network call expected for blank client_id")
}

func TestEnsureValidTokenFailedExchangeDoesNotPersist(t *testing.T) {
	store := &stubCredStore{company: companyWithToken("expired", fixedNow().Add(-time.Minute))}
	upstream := &stubExchanger{err: pkgerrors.New(pkgerrors.CodeUpstreamAuth, "rejected").WithUpstream(401, "nope")}
	svc := newTestService(t, store, upstream)

	_, err := svc.EnsureValidToken(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstreamAuth))
	assert.Zero(t, store.updateCalls, "failed exchange must leave the credential untouched")
}

func TestEnsureValidTokenUnknownTenantPropagatesNotFound(t *testing.T) {
	store := &stubCredStore{findErr: pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")}
	svc := newTestService(t, store, &stubExchanger{})

	_, err := svc.EnsureValidToken(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
