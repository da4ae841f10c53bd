package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateStation OutboxAggregateType = "station"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateStation,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderTotalsUpdated OutboxEventType = "order_totals_updated"
	EventOrderSent          OutboxEventType = "order_sent"
	EventPaymentProcessed   OutboxEventType = "payment_processed"
	EventOrderVoided        OutboxEventType = "order_voided"
	EventOrderReopened      OutboxEventType = "order_reopened"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderTotalsUpdated,
	EventOrderSent,
	EventPaymentProcessed,
	EventOrderVoided,
	EventOrderReopened,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// IsRemovalEvent reports whether subscribers should drop the aggregate from
// local state instead of refetching. Paid and voided orders leave the
// active floor view with no extra network call.
func (e OutboxEventType) IsRemovalEvent() bool {
	switch e {
	case EventPaymentProcessed, EventOrderVoided:
		return true
	default:
		return false
	}
}
