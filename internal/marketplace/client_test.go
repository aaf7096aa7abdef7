package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangolink/merchant-bridge/pkg/config"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.MarketplaceConfig{
		BaseURL:     server.URL,
		APIKey:      "portal-key",
		Env:         "development",
		HTTPTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client, server
}

func TestAuthenticateSendsFormCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, authPath, r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.Equal(t, "development", r.Header.Get("x-env"))
		require.Equal(t, "portal-key", r.Header.Get("x-api-key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grantType"))
		assert.Equal(t, "cid", r.PostForm.Get("clientId"))
		assert.Equal(t, "secret", r.PostForm.Get("clientSecret"))

		json.NewEncoder(w).Encode(AuthResponse{AccessToken: "tok-1", ExpiresIn: 3600, Type: "Bearer"})
	}))

	auth, err := client.Authenticate(context.Background(), "cid", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", auth.AccessToken)
	assert.Equal(t, int64(3600), auth.ExpiresIn)
}

func TestAuthenticateSurfacesUpstreamStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid client"}`))
	}))

	_, err := client.Authenticate(context.Background(), "cid", "secret")
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstreamAuth, typed.Code())
	assert.Equal(t, http.StatusUnauthorized, typed.UpstreamStatus())
	assert.Contains(t, typed.UpstreamBody(), "invalid client")
}

func TestPollEventsBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pollingPath, r.URL.Path)
		assert.Equal(t, "PLC,CFM,RTP,DSP,CAN", r.URL.Query().Get("types"))
		assert.Equal(t, "ORDER_STATUS", r.URL.Query().Get("groups"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Write([]byte(`[{"id":"ev-1","orderId":"abc1234567","code":"PLC","createdAt":"2026-01-10T12:00:00Z"}]`))
	}))

	events, err := client.PollEvents(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.Equal(t, "PLC", events[0].Code)
}

func TestPollEventsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[{"id":"ev-2","orderId":"o-2","code":"CFM","createdAt":"2026-01-10T12:00:00Z"}]}`))
	}))

	events, err := client.PollEvents(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "CFM", events[0].Code)
}

func TestPollEventsEmptyShapes(t *testing.T) {
	cases := map[string]string{
		"empty body":       "",
		"null":             "null",
		"empty array":      "[]",
		"missing envelope": `{"page":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))

			events, err := client.PollEvents(context.Background(), "tok")
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestAcknowledgeEventsPostsIDObjects(t *testing.T) {
	var received []map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ackPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.AcknowledgeEvents(context.Background(), "tok", []string{"ev-1", "ev-2"})
	require.NoError(t, err)
	require.Equal(t, []map[string]string{{"id": "ev-1"}, {"id": "ev-2"}}, received)
}

func TestAcknowledgeEventsSkipsEmptyBatch(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	require.NoError(t, client.AcknowledgeEvents(context.Background(), "tok", nil))
	assert.False(t, called, "no request expected for an empty batch")
}

func TestGetOrderReturnsErrorBodyWithoutFailing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, orderPath+"/ord-9", r.URL.Path)
		require.Equal(t, "tenant-1", r.Header.Get("tenant-id"))
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"order not found"}`))
	}))

	detail, err := client.GetOrder(context.Background(), "tok", "tenant-1", "ord-9")
	require.NoError(t, err)
	assert.False(t, detail.OK())
	assert.Equal(t, http.StatusNotFound, detail.HTTPStatus)
	assert.Contains(t, string(detail.Body), "order not found")
}

func TestOrderActionReportsUpstreamMessageVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, orderPath+"/ord-1/confirm", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"order already confirmed"}`))
	}))

	_, err := client.ConfirmOrder(context.Background(), "tok", "tenant-1", "ord-1")
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstream, typed.Code())
	assert.Equal(t, "order already confirmed", typed.Message())
}

func TestOrderActionsHitExpectedEndpoints(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))

	ctx := context.Background()
	_, err := client.DispatchOrder(ctx, "tok", "tenant-1", "ord-1")
	require.NoError(t, err)
	_, err = client.ReadyToPickup(ctx, "tok", "tenant-1", "ord-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		orderPath + "/ord-1/dispatch",
		orderPath + "/ord-1/readyToPickup",
	}, paths)
}

func TestMerchantEndpoints(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		if r.Body != nil {
			gotBody, _ = json.Marshal(decodeBody(t, r))
		}
		w.Write([]byte(`{"id":"m-1"}`))
	}))

	ctx := context.Background()

	_, err := client.ListMerchants(ctx, "tok", "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, merchantPath, gotPath)

	_, err = client.GetDeliveryStatus(ctx, "tok", "tenant-1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, merchantPath+"/m-1/deliveryStatus", gotPath)

	_, err = client.UpdateMerchantStatus(ctx, "tok", "tenant-1", "m-1", "UNAVAILABLE")
	require.NoError(t, err)
	assert.Equal(t, merchantPath+"/m-1/status", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.JSONEq(t, `{"status":"UNAVAILABLE"}`, string(gotBody))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var parsed map[string]any
	if err := json.NewDecoder(r.Body).Decode(&parsed); err != nil {
		return nil
	}
	return parsed
}
