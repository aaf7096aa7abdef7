package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rangolink/merchant-bridge/pkg/config"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

const (
	authPath     = "/authentication/v1.0/oauth/token"
	pollingPath  = "/events/v1.0/events:polling"
	ackPath      = "/events/v1.0/events/acknowledgment"
	orderPath    = "/order/v1.0/orders"
	merchantPath = "/merchant/v1.0/merchants"

	pollingTypes  = "PLC,CFM,RTP,DSP,CAN"
	pollingGroups = "ORDER_STATUS"

	headerEnv    = "x-env"
	headerAPIKey = "x-api-key"
	headerTenant = "tenant-id"
)

var errBaseURLRequired = errors.New("marketplace base url is required")
var errAPIKeyRequired = errors.New("marketplace api key is required")

// Client is a thin stateless wrapper over the marketplace Merchant API.
// Every call carries the environment marker and portal API key; bearer
// tokens are supplied per call by the token manager.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	env        string
	logg       *logger.Logger
}

// NewClient validates the configuration and builds the wrapper.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		env:        cfg.Environment(),
		logg:       logg,
	}, nil
}

// Authenticate performs the client-credentials exchange. Any transport
// failure or non-2xx answer surfaces as an UPSTREAM_AUTH_FAILED error
// carrying the upstream status and body.
func (c *Client) Authenticate(ctx context.Context, clientID, clientSecret string) (*AuthResponse, error) {
	form := url.Values{}
	form.Set("grantType", "client_credentials")
	form.Set("clientId", clientID)
	form.Set("clientSecret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	c.setPortalHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "credential exchange failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamAuth, "marketplace rejected the credential exchange").
			WithUpstream(resp.StatusCode, string(body))
	}

	var auth AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "decoding token response")
	}
	if auth.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamAuth, "token response missing accessToken").
			WithUpstream(resp.StatusCode, string(body))
	}
	return &auth, nil
}

// PollEvents fetches the pending order-lifecycle events. The endpoint
// answers either a bare array or an envelope object with an "events" field;
// both are normalized, and an absent payload yields an empty slice.
func (c *Client) PollEvents(ctx context.Context, token string) ([]Event, error) {
	endpoint := fmt.Sprintf("%s%s?types=%s&groups=%s", c.baseURL, pollingPath, pollingTypes, pollingGroups)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "building polling request")
	}
	c.setBearerHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "polling events failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "polling events failed").
			WithUpstream(resp.StatusCode, string(body))
	}

	return decodeEvents(body)
}

func decodeEvents(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decoding event array")
		}
		return events, nil
	}
	var envelope eventEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decoding event envelope")
	}
	return envelope.Events, nil
}

// AcknowledgeEvents confirms receipt of the given event ids so the
// marketplace stops re-delivering them. All-or-nothing: any failure leaves
// the whole batch unacknowledged.
func (c *Client) AcknowledgeEvents(ctx context.Context, token string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	entries := make([]ackEntry, 0, len(eventIDs))
	for _, id := range eventIDs {
		entries = append(entries, ackEntry{ID: id})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding acknowledgment batch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ackPath, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "building acknowledgment request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.setBearerHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "acknowledging events failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.New(pkgerrors.CodeUpstream, "acknowledging events failed").
			WithUpstream(resp.StatusCode, string(body))
	}
	return nil
}

// GetOrder fetches a single order. Upstream failures are returned inside the
// detail (status + error body) instead of as an error, so the caller decides
// whether missing detail is fatal. Only transport failures error out.
func (c *Client) GetOrder(ctx context.Context, token, tenantID, orderID string) (*OrderDetail, error) {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, orderPath, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "building order detail request")
	}
	c.setBearerHeaders(req, token)
	req.Header.Set(headerTenant, tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "order detail request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return &OrderDetail{HTTPStatus: resp.StatusCode, Body: body}, nil
}

// ConfirmOrder accepts the order on the marketplace side.
func (c *Client) ConfirmOrder(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error) {
	return c.orderAction(ctx, token, tenantID, orderID, "confirm")
}

// DispatchOrder marks the order as out for delivery.
func (c *Client) DispatchOrder(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error) {
	return c.orderAction(ctx, token, tenantID, orderID, "dispatch")
}

// ReadyToPickup marks the order as ready for customer pickup.
func (c *Client) ReadyToPickup(ctx context.Context, token, tenantID, orderID string) (json.RawMessage, error) {
	return c.orderAction(ctx, token, tenantID, orderID, "readyToPickup")
}

func (c *Client) orderAction(ctx context.Context, token, tenantID, orderID, action string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s%s/%s/%s", c.baseURL, orderPath, url.PathEscape(orderID), action)
	raw, err := c.postJSON(ctx, endpoint, token, tenantID, []byte("{}"))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			c.log(ctx, "order action failed", map[string]any{
				"action":   action,
				"order_id": orderID,
				"status":   typed.UpstreamStatus(),
			})
		}
		return nil, err
	}
	return raw, nil
}

// ListMerchants returns the stores linked to the tenant's marketplace account.
func (c *Client) ListMerchants(ctx context.Context, token, tenantID string) (json.RawMessage, error) {
	return c.getJSON(ctx, c.baseURL+merchantPath, token, tenantID)
}

// GetMerchant returns one linked store.
func (c *Client) GetMerchant(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error) {
	return c.getJSON(ctx, c.merchantURL(merchantID, ""), token, tenantID)
}

// GetMerchantStatus returns the store's availability state.
func (c *Client) GetMerchantStatus(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error) {
	return c.getJSON(ctx, c.merchantURL(merchantID, "status"), token, tenantID)
}

// GetDeliveryStatus returns the store's delivery availability state.
func (c *Client) GetDeliveryStatus(ctx context.Context, token, tenantID, merchantID string) (json.RawMessage, error) {
	return c.getJSON(ctx, c.merchantURL(merchantID, "deliveryStatus"), token, tenantID)
}

// UpdateMerchantStatus switches the store between AVAILABLE and UNAVAILABLE.
func (c *Client) UpdateMerchantStatus(ctx context.Context, token, tenantID, merchantID, status string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding status update")
	}
	return c.putJSON(ctx, c.merchantURL(merchantID, "status"), token, tenantID, payload)
}

func (c *Client) merchantURL(merchantID, suffix string) string {
	u := fmt.Sprintf("%s%s/%s", c.baseURL, merchantPath, url.PathEscape(merchantID))
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Client) getJSON(ctx context.Context, endpoint, token, tenantID string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodGet, endpoint, token, tenantID, nil)
}

func (c *Client) postJSON(ctx context.Context, endpoint, token, tenantID string, payload []byte) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, endpoint, token, tenantID, payload)
}

func (c *Client) putJSON(ctx context.Context, endpoint, token, tenantID string, payload []byte) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, endpoint, token, tenantID, payload)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, token, tenantID string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "building marketplace request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setBearerHeaders(req, token)
	req.Header.Set(headerTenant, tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "marketplace request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, UpstreamMessage(body)).
			WithUpstream(resp.StatusCode, string(body))
	}
	return body, nil
}

// UpstreamMessage extracts the marketplace-provided message so failures are
// reported verbatim, falling back to a generic description.
func UpstreamMessage(body []byte) string {
	var parsed upstreamErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return "marketplace request failed"
}

func (c *Client) setPortalHeaders(req *http.Request) {
	req.Header.Set(headerEnv, c.env)
	req.Header.Set(headerAPIKey, c.apiKey)
}

func (c *Client) setBearerHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	c.setPortalHeaders(req)
}

func (c *Client) log(ctx context.Context, msg string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithFields(ctx, fields), msg)
}
