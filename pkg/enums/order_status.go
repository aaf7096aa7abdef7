package enums

import "fmt"

// OrderStatus tracks the normalized lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusReceived      OrderStatus = "RECEIVED"
	OrderStatusConfirmed     OrderStatus = "CONFIRMED"
	OrderStatusDispatched    OrderStatus = "DISPATCHED"
	OrderStatusReadyToPickup OrderStatus = "READY_TO_PICKUP"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusReceived,
	OrderStatusConfirmed,
	OrderStatusDispatched,
	OrderStatusReadyToPickup,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
