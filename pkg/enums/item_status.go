package enums

import "fmt"

// ItemStatus maps to the order_item_status enum in Postgres.
type ItemStatus string

const (
	ItemStatusQueued     ItemStatus = "queued"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusReady      ItemStatus = "ready"
	ItemStatusServed     ItemStatus = "served"
	ItemStatusBumped     ItemStatus = "bumped"
	ItemStatusVoided     ItemStatus = "voided"
)

var validItemStatuses = []ItemStatus{
	ItemStatusQueued,
	ItemStatusInProgress,
	ItemStatusReady,
	ItemStatusServed,
	ItemStatusBumped,
	ItemStatusVoided,
}

// IsValid reports whether the value matches the canonical order_item_status enum.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
