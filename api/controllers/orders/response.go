package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/tapline/tapline-backend/internal/orders"
	"github.com/tapline/tapline-backend/internal/routing"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/types"
)

type itemResponse struct {
	ID          uuid.UUID        `json:"id"`
	MenuItemID  uuid.UUID        `json:"menu_item_id"`
	Name        string           `json:"name"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	LineTotal   decimal.Decimal  `json:"line_total"`
	Modifiers   types.Modifiers  `json:"modifiers,omitempty"`
	Seat        *int             `json:"seat,omitempty"`
	Course      *int             `json:"course,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Status      enums.ItemStatus `json:"status"`
	Sent        bool             `json:"sent"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	Voided      bool             `json:"voided"`
	VoidReason  *string          `json:"void_reason,omitempty"`
	IsReference bool             `json:"is_reference,omitempty"`
}

type orderResponse struct {
	ID         uuid.UUID         `json:"id"`
	VenueID    uuid.UUID         `json:"venue_id"`
	TableRef   *string           `json:"table_ref,omitempty"`
	Status     enums.OrderStatus `json:"status"`
	Version    int               `json:"version"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	TaxTotal   decimal.Decimal   `json:"tax_total"`
	TipTotal   decimal.Decimal   `json:"tip_total"`
	Total      decimal.Decimal   `json:"total"`
	Items      []itemResponse    `json:"items"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	PaidAt     *time.Time        `json:"paid_at,omitempty"`
	VoidedAt   *time.Time        `json:"voided_at,omitempty"`
	ReopenedAt *time.Time        `json:"reopened_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type paymentResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	IdempotencyKey string              `json:"idempotency_key"`
	Method         enums.PaymentMethod `json:"method"`
	Amount         decimal.Decimal     `json:"amount"`
	Tip            decimal.Decimal     `json:"tip"`
	Status         enums.PaymentStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
}

type ticketResponse struct {
	StationID      uuid.UUID      `json:"station_id"`
	StationName    string         `json:"station_name"`
	Items          []itemResponse `json:"items"`
	ReferenceItems []itemResponse `json:"reference_items,omitempty"`
}

type manifestResponse struct {
	Tickets         []ticketResponse `json:"tickets"`
	UnroutedItemIDs []uuid.UUID      `json:"unrouted_item_ids,omitempty"`
}

type sendResponse struct {
	Order    orderResponse    `json:"order"`
	Manifest manifestResponse `json:"manifest"`
}

func toItemResponse(item models.OrderItem) itemResponse {
	return itemResponse{
		ID:          item.ID,
		MenuItemID:  item.MenuItemID,
		Name:        item.Name,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal(),
		Modifiers:   item.Modifiers,
		Seat:        item.Seat,
		Course:      item.Course,
		Notes:       item.Notes,
		Tags:        []string(item.Tags),
		Status:      item.Status,
		Sent:        item.Sent,
		SentAt:      item.SentAt,
		Voided:      item.Voided,
		VoidReason:  item.VoidReason,
		IsReference: item.IsReference,
	}
}

func toOrderResponse(order *models.Order) orderResponse {
	items := make([]itemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, toItemResponse(item))
	}
	return orderResponse{
		ID:         order.ID,
		VenueID:    order.VenueID,
		TableRef:   order.TableRef,
		Status:     order.Status,
		Version:    order.Version,
		Subtotal:   order.Subtotal,
		TaxTotal:   order.TaxTotal,
		TipTotal:   order.TipTotal,
		Total:      order.Total,
		Items:      items,
		SentAt:     order.SentAt,
		PaidAt:     order.PaidAt,
		VoidedAt:   order.VoidedAt,
		ReopenedAt: order.ReopenedAt,
		CreatedAt:  order.CreatedAt,
	}
}

func toPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		IdempotencyKey: payment.IdempotencyKey,
		Method:         payment.Method,
		Amount:         payment.Amount,
		Tip:            payment.Tip,
		Status:         payment.Status,
		CreatedAt:      payment.CreatedAt,
	}
}

func toManifestResponse(manifest routing.Manifest) manifestResponse {
	resp := manifestResponse{Tickets: make([]ticketResponse, 0, len(manifest.Tickets))}
	for _, ticket := range manifest.Tickets {
		tr := ticketResponse{
			StationID:   ticket.Station.ID,
			StationName: ticket.Station.Name,
			Items:       make([]itemResponse, 0, len(ticket.Items)),
		}
		for _, item := range ticket.Items {
			tr.Items = append(tr.Items, toItemResponse(item))
		}
		for _, item := range ticket.ReferenceItems {
			ref := toItemResponse(item)
			ref.IsReference = true
			tr.ReferenceItems = append(tr.ReferenceItems, ref)
		}
		resp.Tickets = append(resp.Tickets, tr)
	}
	for _, item := range manifest.Unrouted {
		resp.UnroutedItemIDs = append(resp.UnroutedItemIDs, item.ID)
	}
	return resp
}

func toSendResponse(result *internalorders.SendResult) sendResponse {
	return sendResponse{
		Order:    toOrderResponse(result.Order),
		Manifest: toManifestResponse(result.Manifest),
	}
}
