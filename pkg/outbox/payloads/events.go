package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order opened against a table or tab.
type OrderCreatedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	VenueID  uuid.UUID `json:"venue_id"`
	TableRef *string   `json:"table_ref,omitempty"`
	Version  int       `json:"version"`
}

// OrderTotalsUpdatedEvent is emitted whenever the item set changes and
// totals are recomputed.
type OrderTotalsUpdatedEvent struct {
	OrderID  uuid.UUID       `json:"order_id"`
	VenueID  uuid.UUID       `json:"venue_id"`
	Version  int             `json:"version"`
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"tax_total"`
	Total    decimal.Decimal `json:"total"`
}

// RoutedTicket is one station's slice of a send.
type RoutedTicket struct {
	StationID        uuid.UUID   `json:"station_id"`
	StationName      string      `json:"station_name"`
	StationTags      []string    `json:"station_tags,omitempty"`
	ItemIDs          []uuid.UUID `json:"item_ids"`
	ReferenceItemIDs []uuid.UUID `json:"reference_item_ids,omitempty"`
}

// OrderSentEvent carries the resolved routing manifest for a send.
type OrderSentEvent struct {
	OrderID         uuid.UUID      `json:"order_id"`
	VenueID         uuid.UUID      `json:"venue_id"`
	Version         int            `json:"version"`
	Tickets         []RoutedTicket `json:"tickets"`
	UnroutedItemIDs []uuid.UUID    `json:"unrouted_item_ids,omitempty"`
	SentAt          time.Time      `json:"sent_at"`
}

// PaymentProcessedEvent is emitted exactly once per captured payment;
// idempotent replays map back to the original emission.
type PaymentProcessedEvent struct {
	OrderID   uuid.UUID           `json:"order_id"`
	PaymentID uuid.UUID           `json:"payment_id"`
	VenueID   uuid.UUID           `json:"venue_id"`
	Method    enums.PaymentMethod `json:"method"`
	Amount    decimal.Decimal     `json:"amount"`
	Tip       decimal.Decimal     `json:"tip"`
	Version   int                 `json:"version"`
	PaidAt    time.Time           `json:"paid_at"`
}

// OrderVoidedEvent covers both whole-order and single-item voids; Scope
// distinguishes the two.
type OrderVoidedEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	VenueID    uuid.UUID  `json:"venue_id"`
	Scope      string     `json:"scope"`
	ItemID     *uuid.UUID `json:"item_id,omitempty"`
	Reason     string     `json:"reason"`
	ApproverID *uuid.UUID `json:"approver_id,omitempty"`
	Version    int        `json:"version"`
	VoidedAt   time.Time  `json:"voided_at"`
}

// OrderReopenedEvent records a paid order being pulled back for correction.
type OrderReopenedEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	VenueID    uuid.UUID  `json:"venue_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Reason     string     `json:"reason"`
	Version    int        `json:"version"`
	ReopenedAt time.Time  `json:"reopened_at"`
}

// Void scopes.
const (
	VoidScopeOrder = "order"
	VoidScopeItem  = "item"
)
