package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of a branch oil request.
type OrderStatus int

const (
	StatusPendingApproval OrderStatus = iota
	StatusApproved
	StatusInTransit
	StatusDelivered
	StatusCancelled
)

var orderStatusLabels = map[OrderStatus]string{
	StatusPendingApproval: "pending_approval",
	StatusApproved:        "approved",
	StatusInTransit:       "in_transit",
	StatusDelivered:       "delivered",
	StatusCancelled:       "cancelled",
}

var orderStatusCodes = map[string]OrderStatus{
	"pending_approval": StatusPendingApproval,
	"approved":         StatusApproved,
	"in_transit":       StatusInTransit,
	"delivered":        StatusDelivered,
	"cancelled":        StatusCancelled,
}

// AllOrderStatuses lists every status in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPendingApproval, StatusApproved, StatusInTransit, StatusDelivered, StatusCancelled}
}

func (s OrderStatus) String() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Terminal reports whether no further transition can leave s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled:
		return true
	case StatusPendingApproval, StatusApproved, StatusInTransit:
		return false
	default:
		return false
	}
}

// ParseOrderStatus returns the status for a given label (case-insensitive).
func ParseOrderStatus(label string) (OrderStatus, bool) {
	code, ok := orderStatusCodes[strings.ToLower(strings.TrimSpace(label))]
	return code, ok
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("order status must be a string: %w", err)
	}
	parsed, ok := ParseOrderStatus(label)
	if !ok {
		return fmt.Errorf("unknown order status %q", label)
	}
	*s = parsed
	return nil
}

// DeliveryStatus tracks a physical truck run between branches.
type DeliveryStatus string

const (
	DeliveryDispatched DeliveryStatus = "dispatched"
	DeliveryArrived    DeliveryStatus = "arrived"
)

// OriginKind identifies which supply class a SourceRecord comes from.
type OriginKind int

const (
	OriginRemainingOnTruck OriginKind = iota + 1
	OriginInTransit
	OriginReclaimed
)

func (k OriginKind) String() string {
	switch k {
	case OriginRemainingOnTruck:
		return "remaining_on_truck"
	case OriginInTransit:
		return "in_transit"
	case OriginReclaimed:
		return "reclaimed"
	default:
		return ""
	}
}

// DeliverySource returns how oil from this origin reaches the requester.
func (k OriginKind) DeliverySource() DeliverySource {
	switch k {
	case OriginReclaimed:
		return DeliverySuction
	case OriginRemainingOnTruck, OriginInTransit:
		return DeliveryTruck
	default:
		return DeliveryNone
	}
}

func (k OriginKind) MarshalJSON() ([]byte, error) {
	if k == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(k.String())
}

func (k *OriginKind) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = 0
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	switch label {
	case "":
		*k = 0
	case "remaining_on_truck":
		*k = OriginRemainingOnTruck
	case "in_transit":
		*k = OriginInTransit
	case "reclaimed":
		*k = OriginReclaimed
	default:
		return fmt.Errorf("unknown origin kind %q", label)
	}
	return nil
}

// DeliverySource is how an approved line is fulfilled.
type DeliverySource string

const (
	DeliveryNone    DeliverySource = "none"
	DeliveryTruck   DeliverySource = "truck"
	DeliverySuction DeliverySource = "suction"
)

// Valid reports whether s is a declared delivery source.
func (s DeliverySource) Valid() bool {
	switch s {
	case DeliveryNone, DeliveryTruck, DeliverySuction:
		return true
	default:
		return false
	}
}
