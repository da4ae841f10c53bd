package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/outbox"
	"github.com/tapline/tapline-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, the topics it
// fans out to, and its payload schema. Attributes, when set, derives
// per-event message attributes from the decoded payload.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topics         []string
	PayloadFactory func() any
	Attributes     func(payload any) map[string]string
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// Attributes builds the full attribute set for the published message,
// merging the row-level attributes with the descriptor's extras.
func (r *ResolvedEvent) Attributes(event models.OutboxEvent) map[string]string {
	attrs := map[string]string{
		"event_id":       r.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
	}
	if event.EventType.IsRemovalEvent() {
		attrs["removal"] = "true"
	}
	if r.Descriptor.Attributes != nil {
		for k, v := range r.Descriptor.Attributes(r.Payload) {
			attrs[k] = v
		}
	}
	return attrs
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
// Every order event lands on the orders topic; a send additionally fans
// out to the station feed so prep displays see it without a refetch.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.StationTopic == "" {
		return nil, fmt.Errorf("station topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	ordersTopic := cfg.OrdersTopic
	stationTopic := cfg.StationTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderCreated,
			AggregateType:  enums.AggregateOrder,
			Topics:         []string{ordersTopic},
			PayloadFactory: func() any { return &payloads.OrderCreatedEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.OrderCreatedEvent)
				return venueAttrs(p.VenueID, p.Version)
			},
		},
		{
			EventType:      enums.EventOrderTotalsUpdated,
			AggregateType:  enums.AggregateOrder,
			Topics:         []string{ordersTopic},
			PayloadFactory: func() any { return &payloads.OrderTotalsUpdatedEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.OrderTotalsUpdatedEvent)
				return venueAttrs(p.VenueID, p.Version)
			},
		},
		{
			EventType:      enums.EventOrderSent,
			AggregateType:  enums.AggregateOrder,
			Topics:         []string{ordersTopic, stationTopic},
			PayloadFactory: func() any { return &payloads.OrderSentEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.OrderSentEvent)
				attrs := venueAttrs(p.VenueID, p.Version)
				ids := make([]string, 0, len(p.Tickets))
				for _, ticket := range p.Tickets {
					ids = append(ids, ticket.StationID.String())
				}
				attrs["station_ids"] = strings.Join(ids, ",")
				return attrs
			},
		},
		{
			EventType:      enums.EventPaymentProcessed,
			AggregateType:  enums.AggregatePayment,
			Topics:         []string{ordersTopic},
			PayloadFactory: func() any { return &payloads.PaymentProcessedEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.PaymentProcessedEvent)
				attrs := venueAttrs(p.VenueID, p.Version)
				attrs["order_id"] = p.OrderID.String()
				return attrs
			},
		},
		{
			EventType:      enums.EventOrderVoided,
			AggregateType:  enums.AggregateOrder,
			Topics:         []string{ordersTopic},
			PayloadFactory: func() any { return &payloads.OrderVoidedEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.OrderVoidedEvent)
				attrs := venueAttrs(p.VenueID, p.Version)
				attrs["scope"] = p.Scope
				return attrs
			},
		},
		{
			EventType:      enums.EventOrderReopened,
			AggregateType:  enums.AggregateOrder,
			Topics:         []string{ordersTopic},
			PayloadFactory: func() any { return &payloads.OrderReopenedEvent{} },
			Attributes: func(payload any) map[string]string {
				p := payload.(*payloads.OrderReopenedEvent)
				return venueAttrs(p.VenueID, p.Version)
			},
		},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func venueAttrs(venueID uuid.UUID, version int) map[string]string {
	return map[string]string{
		"venue_id": venueID.String(),
		"version":  fmt.Sprintf("%d", version),
	}
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
