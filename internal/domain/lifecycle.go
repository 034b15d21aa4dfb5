package domain

import (
	"strings"
	"time"
)

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case StatusPendingApproval:
		return to == StatusApproved || to == StatusCancelled
	case StatusApproved:
		return to == StatusInTransit || to == StatusCancelled
	case StatusInTransit:
		return to == StatusDelivered
	case StatusDelivered, StatusCancelled:
		return false
	default:
		return false
	}
}

// TransitionTo moves the order to status, appending to its audit trail.
// Cancellation requires a reason.
func (o *Order) TransitionTo(to OrderStatus, actor, reason string, at time.Time) error {
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{Current: o.Status, Requested: to}
	}
	reason = strings.TrimSpace(reason)
	if to == StatusCancelled {
		if reason == "" {
			return &InvalidTransitionError{Current: o.Status, Requested: to, Detail: "cancellation requires a reason"}
		}
		o.CancelReason = &reason
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = at
	o.History = append(o.History, StatusChange{
		From:   &from,
		To:     to,
		By:     actor,
		Reason: reason,
		At:     at,
	})
	return nil
}
