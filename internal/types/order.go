package types

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an order.
// Pending -> Processing -> Completed | Failed. Completed orders stay
// trackable for delivery updates from the marketplace; Failed is final.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// Post-completion delivery states reported by the seller APIs.
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further local transition is allowed.
// Completed is terminal for execution but still trackable by the reconciler;
// only delivery states may replace it.
func (s Status) Terminal() bool {
	switch s {
	case StatusFailed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Trackable reports whether the reconciler should still poll this order.
func (s Status) Trackable() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusShipped:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal, forward
// move. Terminal states accept nothing; Completed accepts only delivery
// states coming back from the marketplace.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted:
		return next == StatusShipped || next == StatusDelivered || next == StatusCancelled
	case StatusShipped:
		return next == StatusDelivered || next == StatusCancelled
	}
	return false
}

// Order is a purchase executed on a user's behalf. MarketplaceOrderID is
// empty until the order completes on the marketplace side; it is the join
// key the reconciler uses for status polling.
type Order struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"user_id"`
	Marketplace        Marketplace `json:"marketplace"`
	Status             Status      `json:"status"`
	MarketplaceOrderID string      `json:"marketplace_order_id,omitempty"`
	Items              []CartItem  `json:"items"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Transition moves the order to next, enforcing monotonicity.
func (o *Order) Transition(next Status) error {
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("illegal order transition %s -> %s", o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return nil
}
