package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/internal/routing"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/types"
)

// CreateOrderInput opens an order against a table, or a bar tab when
// TableRef is nil.
type CreateOrderInput struct {
	VenueID    uuid.UUID
	TableRef   *string
	TerminalID uuid.UUID
}

// NewItemInput is one line requested by AddItems. Price, tags and class are
// snapshotted from the catalog server-side; client-sent money is ignored.
type NewItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Modifiers  types.Modifiers
	Seat       *int
	Course     *int
	Notes      *string
}

// AddItemsInput appends items to an order. ExpectedVersion, when set,
// enables the optimistic check on top of the row lock.
type AddItemsInput struct {
	OrderID         uuid.UUID
	ExpectedVersion *int
	Items           []NewItemInput
	TerminalID      uuid.UUID
}

// SendInput fires a send. ItemIDs narrows the send to a subset of the
// currently unsent items; empty means all of them.
type SendInput struct {
	OrderID    uuid.UUID
	ItemIDs    []uuid.UUID
	TerminalID uuid.UUID
}

// PayInput captures a payment attempt keyed by the client idempotency key.
type PayInput struct {
	OrderID        uuid.UUID
	IdempotencyKey string
	Method         enums.PaymentMethod
	Amount         decimal.Decimal
	Tip            decimal.Decimal
	TerminalID     uuid.UUID
}

// VoidItemInput voids one line with a manager approval trail.
type VoidItemInput struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	Reason     string
	ApproverID uuid.UUID
	TerminalID uuid.UUID
}

// VoidOrderInput voids the whole order.
type VoidOrderInput struct {
	OrderID    uuid.UUID
	Reason     string
	ApproverID uuid.UUID
	TerminalID uuid.UUID
}

// ReopenInput pulls a paid order back into the mutable lifecycle.
type ReopenInput struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	Reason     string
	TerminalID uuid.UUID
}

// ActiveOrderSummary is the floor-view row returned by ListActive.
type ActiveOrderSummary struct {
	ID        uuid.UUID         `json:"id"`
	TableRef  *string           `json:"table_ref,omitempty"`
	Status    enums.OrderStatus `json:"status"`
	Version   int               `json:"version"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
	CreatedAt time.Time         `json:"created_at"`
}

// ActiveOrderList wraps the paginated active orders plus the next cursor.
type ActiveOrderList struct {
	Orders     []ActiveOrderSummary `json:"orders"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// SendResult pairs the mutated order with the manifest resolved for the
// delta of this send.
type SendResult struct {
	Order    *models.Order
	Manifest routing.Manifest
}
