package dispatch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/outbox"
	"github.com/tapline/tapline-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic:  "order-events",
		StationTopic: "station-feed",
	})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func encodeEnvelope(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return envelope
}

func TestResolveOrderSentFansOutToStations(t *testing.T) {
	reg := testRegistry(t)
	stationID := uuid.New()
	venueID := uuid.New()
	payload := payloads.OrderSentEvent{
		OrderID: uuid.New(),
		VenueID: venueID,
		Version: 3,
		Tickets: []payloads.RoutedTicket{{StationID: stationID, StationName: "Kitchen"}},
		SentAt:  time.Now().UTC(),
	}

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderSent,
		AggregateType: enums.AggregateOrder,
		AggregateID:   payload.OrderID,
		Payload:       encodeEnvelope(t, payload),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved.Descriptor.Topics) != 2 {
		t.Fatalf("expected fanout to orders and station topics, got %v", resolved.Descriptor.Topics)
	}
	attrs := resolved.Attributes(event)
	if attrs["venue_id"] != venueID.String() {
		t.Fatalf("expected venue attribute, got %v", attrs)
	}
	if attrs["station_ids"] != stationID.String() {
		t.Fatalf("expected station_ids attribute, got %v", attrs)
	}
	if attrs["version"] != "3" {
		t.Fatalf("expected version attribute, got %v", attrs)
	}
}

func TestResolveMarksRemovalEvents(t *testing.T) {
	reg := testRegistry(t)
	payload := payloads.PaymentProcessedEvent{
		OrderID:   uuid.New(),
		PaymentID: uuid.New(),
		VenueID:   uuid.New(),
		Version:   4,
	}
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentProcessed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payload.PaymentID,
		Payload:       encodeEnvelope(t, payload),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	attrs := resolved.Attributes(event)
	if attrs["removal"] != "true" {
		t.Fatalf("payment_processed should carry the removal attribute, got %v", attrs)
	}
	if attrs["order_id"] != payload.OrderID.String() {
		t.Fatalf("expected order_id attribute, got %v", attrs)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := testRegistry(t)
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       encodeEnvelope(t, payloads.OrderCreatedEvent{OrderID: uuid.New()}),
	}
	_, err := reg.Resolve(event)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg := testRegistry(t)
	envelope, _ := json.Marshal(outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage("null"),
	})
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
	_, err := reg.Resolve(event)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
