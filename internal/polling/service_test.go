package polling

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/internal/reconciler"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

type stubTokens struct {
	token string
	err   error
	calls int
}

func (s *stubTokens) EnsureValidToken(context.Context, string) (string, error) {
	s.calls++
	return s.token, s.err
}

type stubUpstream struct {
	events    []marketplace.Event
	pollErr   error
	ackErr    error
	ackCalls  int
	ackedIDs  []string
	orderErr  error
	detail    *marketplace.OrderDetail
	getCalls  int
	pollCalls int
}

func (s *stubUpstream) PollEvents(context.Context, string) ([]marketplace.Event, error) {
	s.pollCalls++
	return s.events, s.pollErr
}

func (s *stubUpstream) AcknowledgeEvents(_ context.Context, _ string, ids []string) error {
	s.ackCalls++
	s.ackedIDs = ids
	return s.ackErr
}

func (s *stubUpstream) GetOrder(context.Context, string, string, string) (*marketplace.OrderDetail, error) {
	s.getCalls++
	return s.detail, s.orderErr
}

type stubApplier struct {
	result reconciler.Result
	events []marketplace.Event
}

func (s *stubApplier) Apply(_ context.Context, _ string, events []marketplace.Event) reconciler.Result {
	s.events = events
	return s.result
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestPollNoEventsSkipsAcknowledgment(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{}
	svc := NewService(tokens, up, &stubApplier{}, testLogger(), false)

	summary, err := svc.Poll(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Received)
	assert.Equal(t, 0, summary.Processed)
	assert.Zero(t, up.ackCalls)
}

func TestPollAcknowledgesOnlySuccessfulEvents(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{events: []marketplace.Event{
		{ID: "evt-1", OrderID: "ord-1", Code: "PLC"},
		{ID: "evt-2", OrderID: "ord-2", Code: "CFM"},
		{ID: "evt-3", OrderID: "ord-3", Code: "DSP"},
	}}
	applier := &stubApplier{result: reconciler.Result{
		AcknowledgedIDs: []string{"evt-1", "evt-3"},
		Orders: []reconciler.OrderSummary{
			{OrderID: uuid.New(), UpstreamID: "ord-1"},
			{OrderID: uuid.New(), UpstreamID: "ord-3"},
		},
		Failures: []reconciler.EventFailure{{EventID: "evt-2", Reason: "insert failed"}},
	}}
	svc := NewService(tokens, up, applier, testLogger(), false)

	summary, err := svc.Poll(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Received)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Acknowledged)
	assert.Equal(t, 1, up.ackCalls)
	assert.Equal(t, []string{"evt-1", "evt-3"}, up.ackedIDs)
	assert.Len(t, summary.Failures, 1)
}

func TestPollAllEventsFailedSkipsAcknowledgment(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{events: []marketplace.Event{{ID: "evt-1", OrderID: "ord-1", Code: "PLC"}}}
	applier := &stubApplier{result: reconciler.Result{
		Failures: []reconciler.EventFailure{{EventID: "evt-1", Reason: "insert failed"}},
	}}
	svc := NewService(tokens, up, applier, testLogger(), false)

	summary, err := svc.Poll(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Received)
	assert.Equal(t, 0, summary.Processed)
	assert.Zero(t, up.ackCalls)
}

func TestPollTokenFailurePropagates(t *testing.T) {
	tokens := &stubTokens{err: pkgerrors.New(pkgerrors.CodeConfig, "empty marketplace credentials")}
	up := &stubUpstream{}
	svc := NewService(tokens, up, &stubApplier{}, testLogger(), false)

	_, err := svc.Poll(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfig))
	assert.Zero(t, up.pollCalls)
}

func TestPollAckFailureReturnsSummaryAndError(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{
		events: []marketplace.Event{{ID: "evt-1", OrderID: "ord-1", Code: "PLC"}},
		ackErr: pkgerrors.New(pkgerrors.CodeUpstream, "acknowledgment rejected"),
	}
	applier := &stubApplier{result: reconciler.Result{
		AcknowledgedIDs: []string{"evt-1"},
		Orders:          []reconciler.OrderSummary{{OrderID: uuid.New(), UpstreamID: "ord-1"}},
	}}
	svc := NewService(tokens, up, applier, testLogger(), false)

	summary, err := svc.Poll(context.Background(), "tenant-1")
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Acknowledged)
}

func TestPollEnrichesOrderDetails(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{
		events: []marketplace.Event{{ID: "evt-1", OrderID: "ord-1", Code: "PLC"}},
		detail: &marketplace.OrderDetail{
			HTTPStatus: http.StatusOK,
			Body:       json.RawMessage(`{"id":"ord-1","total":42.5}`),
		},
	}
	applier := &stubApplier{result: reconciler.Result{
		AcknowledgedIDs: []string{"evt-1"},
		Orders:          []reconciler.OrderSummary{{OrderID: uuid.New(), UpstreamID: "ord-1"}},
	}}
	svc := NewService(tokens, up, applier, testLogger(), true)

	summary, err := svc.Poll(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, up.getCalls)
	assert.JSONEq(t, `{"id":"ord-1","total":42.5}`, string(summary.Details["ord-1"]))
}

func TestTokenDelegatesToManager(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	svc := NewService(tokens, &stubUpstream{}, &stubApplier{}, testLogger(), false)

	token, err := svc.Token(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, 1, tokens.calls)
}

func TestAcknowledgeEmptyBatch(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{}
	svc := NewService(tokens, up, &stubApplier{}, testLogger(), false)

	count, err := svc.Acknowledge(context.Background(), "tenant-1", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, up.ackCalls)
	assert.Zero(t, tokens.calls)
}

func TestAcknowledgeForwardsIDs(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	up := &stubUpstream{}
	svc := NewService(tokens, up, &stubApplier{}, testLogger(), false)

	count, err := svc.Acknowledge(context.Background(), "tenant-1", []string{"evt-1", "evt-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"evt-1", "evt-2"}, up.ackedIDs)
}
