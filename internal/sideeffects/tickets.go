package sideeffects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/tapline/tapline-backend/internal/routing"
)

var centsPerUnit = decimal.NewFromInt(100)

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// TicketLine is one prep line on a rendered station ticket.
type TicketLine struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Seat      *int      `json:"seat,omitempty"`
	Course    *int      `json:"course,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Reference bool      `json:"reference"`
}

// StationTicketMessage is the station feed payload for one ticket.
type StationTicketMessage struct {
	StationID   uuid.UUID    `json:"station_id"`
	StationName string       `json:"station_name"`
	Lines       []TicketLine `json:"lines"`
	EmittedAt   time.Time    `json:"emitted_at"`
}

// Emitter pushes rendered tickets onto the station feed topic.
type Emitter struct {
	publisher messagePublisher
}

// NewEmitter builds the ticket hook.
func NewEmitter(publisher messagePublisher) (*Emitter, error) {
	if publisher == nil {
		return nil, fmt.Errorf("station publisher required")
	}
	return &Emitter{publisher: publisher}, nil
}

// Emit publishes one message per ticket in the manifest. Publish
// failures are aggregated per station.
func (e *Emitter) Emit(ctx context.Context, manifest routing.Manifest) error {
	now := time.Now().UTC()
	var errs error
	for _, ticket := range manifest.Tickets {
		msg := StationTicketMessage{
			StationID:   ticket.Station.ID,
			StationName: ticket.Station.Name,
			EmittedAt:   now,
		}
		for _, item := range ticket.Items {
			msg.Lines = append(msg.Lines, TicketLine{
				ItemID:   item.ID,
				Name:     item.Name,
				Quantity: item.Quantity,
				Seat:     item.Seat,
				Course:   item.Course,
				Notes:    item.Notes,
			})
		}
		for _, item := range ticket.ReferenceItems {
			msg.Lines = append(msg.Lines, TicketLine{
				ItemID:    item.ID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Seat:      item.Seat,
				Reference: true,
			})
		}

		body, err := json.Marshal(msg)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode ticket for %s: %w", ticket.Station.Name, err))
			continue
		}
		result := e.publisher.Publish(ctx, &pubsub.Message{
			Data: body,
			Attributes: map[string]string{
				"station_id": ticket.Station.ID.String(),
				"kind":       "station_ticket",
			},
		})
		if _, err := result.Get(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish ticket for %s: %w", ticket.Station.Name, err))
		}
	}
	return errs
}
