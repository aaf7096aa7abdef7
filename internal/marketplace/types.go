package marketplace

import (
	"encoding/json"
	"net/http"
	"time"
)

// AuthResponse is the payload of a successful client-credentials exchange.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	Type        string `json:"type"`
}

// Event is one pending order-lifecycle event returned by the polling
// endpoint. Events are transient: consumed, acknowledged, discarded.
type Event struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// eventEnvelope is the alternative polling response shape; the API sometimes
// wraps the array in an object.
type eventEnvelope struct {
	Events []Event `json:"events"`
}

// OrderDetail carries the raw order payload together with the upstream HTTP
// status. Failed lookups return the upstream error body here instead of an
// error so the caller decides whether absence of detail is fatal.
type OrderDetail struct {
	HTTPStatus int
	Body       json.RawMessage
}

// OK reports whether the upstream answered with a 2xx.
func (d *OrderDetail) OK() bool {
	return d != nil && d.HTTPStatus >= http.StatusOK && d.HTTPStatus < http.StatusMultipleChoices
}

type ackEntry struct {
	ID string `json:"id"`
}

type upstreamErrorBody struct {
	Message string `json:"message"`
}
