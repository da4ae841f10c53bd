package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusSent       OrderStatus = "sent"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusVoided     OrderStatus = "voided"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusInProgress,
	OrderStatusSent,
	OrderStatusPaid,
	OrderStatusVoided,
}

// ActiveOrderStatuses are the statuses that hold a table claim. The partial
// unique index on orders filters to exactly this set.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusInProgress,
	OrderStatusSent,
}

// IsValid reports whether the value matches the canonical order_status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the status holds a table claim.
func (s OrderStatus) IsActive() bool {
	for _, candidate := range ActiveOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsMutable reports whether items can still be added to an order in this status.
func (s OrderStatus) IsMutable() bool {
	switch s {
	case OrderStatusDraft, OrderStatusInProgress, OrderStatusSent:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
