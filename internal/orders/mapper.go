package orders

import (
	"strings"

	"github.com/rangolink/merchant-bridge/pkg/enums"
)

// displayIDLength is how much of the upstream id ends up in the short
// human-readable code shown to operators.
const displayIDLength = 5

// eventCodeToStatus is the full mapping from marketplace event codes to the
// normalized order status.
var eventCodeToStatus = map[string]enums.OrderStatus{
	"PLC": enums.OrderStatusReceived,
	"CFM": enums.OrderStatusConfirmed,
	"DSP": enums.OrderStatusDispatched,
	"CAN": enums.OrderStatusCancelled,
	"RTP": enums.OrderStatusReadyToPickup,
}

// MapEventCode translates a marketplace event code into an order status.
// Total over all inputs: unknown codes fall back to RECEIVED rather than
// failing, since the marketplace may add codes the bridge has not learned.
func MapEventCode(code string) enums.OrderStatus {
	if status, ok := eventCodeToStatus[code]; ok {
		return status
	}
	return enums.OrderStatusReceived
}

// DisplayID derives the short code from the upstream order id: first five
// characters, uppercased. Shorter ids are used whole.
func DisplayID(upstreamID string) string {
	display := upstreamID
	if len(display) > displayIDLength {
		display = display[:displayIDLength]
	}
	return strings.ToUpper(display)
}
