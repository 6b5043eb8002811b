package cloud

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// CommandKind is the closed set of command types the gateway can replay.
// Adding a kind means adding a constant here, a case in ParseCommandKind,
// and a case in route; the compiler and TestRouteTableCoversAllKinds keep
// the three in step.
type CommandKind int

const (
	KindOrder CommandKind = iota
	KindOrderItem
	KindPayment
	KindKDSBump
	KindInventoryAdjustment
)

// allKinds drives exhaustiveness checks in tests.
var allKinds = []CommandKind{
	KindOrder,
	KindOrderItem,
	KindPayment,
	KindKDSBump,
	KindInventoryAdjustment,
}

// ParseCommandKind maps a queued command's type tag to its kind.
// Returns ErrUnknownCommandType for anything outside the closed set.
func ParseCommandKind(tag string) (CommandKind, error) {
	switch tag {
	case "order":
		return KindOrder, nil
	case "orderItem":
		return KindOrderItem, nil
	case "payment":
		return KindPayment, nil
	case "kdsBump":
		return KindKDSBump, nil
	case "inventoryAdjustment":
		return KindInventoryAdjustment, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommandType, tag)
	}
}

// String returns the wire tag for the kind.
func (k CommandKind) String() string {
	switch k {
	case KindOrder:
		return "order"
	case KindOrderItem:
		return "orderItem"
	case KindPayment:
		return "payment"
	case KindKDSBump:
		return "kdsBump"
	case KindInventoryAdjustment:
		return "inventoryAdjustment"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// routeSpec describes the concrete cloud request for one command kind.
type routeSpec struct {
	method string

	// path builds the request path from the command payload. Payloads are
	// opaque to the queue; only the fields a path embeds are decoded here.
	path func(payload json.RawMessage) (string, error)

	// emptyBody suppresses the payload as the request body.
	emptyBody bool
}

// pathIDs holds the payload fields any route path can embed.
type pathIDs struct {
	OrderID    string `json:"order_id"`
	StationKey string `json:"station_key"`
	TicketID   string `json:"ticket_id"`
}

// decodePathIDs extracts path identifiers from a payload, failing with
// ErrInvalidPayload when any of the named fields is absent or empty.
func decodePathIDs(payload json.RawMessage, fields ...string) (pathIDs, error) {
	var ids pathIDs
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ids); err != nil {
			return ids, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}
	for _, f := range fields {
		var v string
		switch f {
		case "order_id":
			v = ids.OrderID
		case "station_key":
			v = ids.StationKey
		case "ticket_id":
			v = ids.TicketID
		}
		if v == "" {
			return ids, fmt.Errorf("%w: missing %s", ErrInvalidPayload, f)
		}
	}
	return ids, nil
}

// route returns the route descriptor for a kind. The mapping is static;
// every kind in the closed set has exactly one route.
func route(kind CommandKind) (routeSpec, error) {
	switch kind {
	case KindOrder:
		return routeSpec{
			method: http.MethodPost,
			path: func(json.RawMessage) (string, error) {
				return "/api/pos/orders", nil
			},
		}, nil
	case KindOrderItem:
		return routeSpec{
			method: http.MethodPost,
			path: func(payload json.RawMessage) (string, error) {
				ids, err := decodePathIDs(payload, "order_id")
				if err != nil {
					return "", err
				}
				return "/api/pos/orders/" + ids.OrderID + "/items", nil
			},
		}, nil
	case KindPayment:
		return routeSpec{
			method: http.MethodPost,
			path: func(payload json.RawMessage) (string, error) {
				ids, err := decodePathIDs(payload, "order_id")
				if err != nil {
					return "", err
				}
				return "/api/pos/orders/" + ids.OrderID + "/payments", nil
			},
		}, nil
	case KindKDSBump:
		return routeSpec{
			method: http.MethodPost,
			path: func(payload json.RawMessage) (string, error) {
				ids, err := decodePathIDs(payload, "station_key", "ticket_id")
				if err != nil {
					return "", err
				}
				return "/api/kds/runtime/" + ids.StationKey + "/tickets/" + ids.TicketID + "/bump", nil
			},
			emptyBody: true,
		}, nil
	case KindInventoryAdjustment:
		return routeSpec{
			method: http.MethodPost,
			path: func(json.RawMessage) (string, error) {
				return "/api/inventory/adjustments", nil
			},
		}, nil
	default:
		return routeSpec{}, fmt.Errorf("%w: %s", ErrUnknownCommandType, kind)
	}
}
