package merchants

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

type stubTokens struct {
	token string
	err   error
}

func (s *stubTokens) EnsureValidToken(context.Context, string) (string, error) {
	return s.token, s.err
}

type stubGateway struct {
	lastToken  string
	lastStatus string
	payload    json.RawMessage
	err        error
	calls      int
}

func (s *stubGateway) respond(token string) (json.RawMessage, error) {
	s.calls++
	s.lastToken = token
	return s.payload, s.err
}

func (s *stubGateway) ListMerchants(_ context.Context, token, _ string) (json.RawMessage, error) {
	return s.respond(token)
}

func (s *stubGateway) GetMerchant(_ context.Context, token, _, _ string) (json.RawMessage, error) {
	return s.respond(token)
}

func (s *stubGateway) GetMerchantStatus(_ context.Context, token, _, _ string) (json.RawMessage, error) {
	return s.respond(token)
}

func (s *stubGateway) GetDeliveryStatus(_ context.Context, token, _, _ string) (json.RawMessage, error) {
	return s.respond(token)
}

func (s *stubGateway) UpdateMerchantStatus(_ context.Context, token, _, _, status string) (json.RawMessage, error) {
	s.lastStatus = status
	return s.respond(token)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestListProxiesWithToken(t *testing.T) {
	gw := &stubGateway{payload: json.RawMessage(`[{"id":"m-1"}]`)}
	svc := NewService(&stubTokens{token: "tok"}, gw, testLogger())

	payload, err := svc.List(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"m-1"}]`, string(payload))
	assert.Equal(t, "tok", gw.lastToken)
}

func TestGetRequiresMerchantID(t *testing.T) {
	gw := &stubGateway{}
	svc := NewService(&stubTokens{token: "tok"}, gw, testLogger())

	_, err := svc.Get(context.Background(), "tenant-1", "  ")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, gw.calls)
}

func TestUpdateStatusRequiresStatus(t *testing.T) {
	gw := &stubGateway{}
	svc := NewService(&stubTokens{token: "tok"}, gw, testLogger())

	_, err := svc.UpdateStatus(context.Background(), "tenant-1", "m-1", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, gw.calls)
}

func TestUpdateStatusForwardsValue(t *testing.T) {
	gw := &stubGateway{payload: json.RawMessage(`{"status":"CLOSED"}`)}
	svc := NewService(&stubTokens{token: "tok"}, gw, testLogger())

	payload, err := svc.UpdateStatus(context.Background(), "tenant-1", "m-1", "CLOSED")
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", gw.lastStatus)
	assert.JSONEq(t, `{"status":"CLOSED"}`, string(payload))
}

func TestTokenFailureShortCircuits(t *testing.T) {
	gw := &stubGateway{}
	svc := NewService(&stubTokens{err: pkgerrors.New(pkgerrors.CodeConfig, "empty marketplace credentials")}, gw, testLogger())

	_, err := svc.Status(context.Background(), "tenant-1", "m-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfig))
	assert.Zero(t, gw.calls)
}
