package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/api/middleware"
	internalorders "github.com/tapline/tapline-backend/internal/orders"
	"github.com/tapline/tapline-backend/pkg/enums"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/types"
)

type createOrderRequest struct {
	TableRef *string `json:"table_ref,omitempty"`
}

type modifierRequest struct {
	Name       string          `json:"name" validate:"required"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type newItemRequest struct {
	MenuItemID string            `json:"menu_item_id" validate:"required,uuid4"`
	Quantity   int               `json:"quantity" validate:"required,min=1,max=99"`
	Modifiers  []modifierRequest `json:"modifiers,omitempty" validate:"omitempty,dive"`
	Seat       *int              `json:"seat,omitempty"`
	Course     *int              `json:"course,omitempty"`
	Notes      *string           `json:"notes,omitempty"`
}

type addItemsRequest struct {
	ExpectedVersion *int             `json:"expected_version,omitempty"`
	Items           []newItemRequest `json:"items" validate:"required,min=1,dive"`
}

type sendRequest struct {
	ItemIDs []string `json:"item_ids,omitempty" validate:"omitempty,dive,uuid4"`
}

type payRequest struct {
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	Method         string          `json:"method" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Tip            decimal.Decimal `json:"tip"`
}

type voidItemRequest struct {
	Reason     string `json:"reason" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required,uuid4"`
}

type voidOrderRequest struct {
	Reason     string `json:"reason" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required,uuid4"`
}

type reopenRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (r addItemsRequest) toInputs() ([]internalorders.NewItemInput, error) {
	inputs := make([]internalorders.NewItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		menuItemID, err := uuid.Parse(strings.TrimSpace(item.MenuItemID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu item id")
		}
		modifiers := make(types.Modifiers, 0, len(item.Modifiers))
		for _, mod := range item.Modifiers {
			modifiers = append(modifiers, types.Modifier{
				Name:       mod.Name,
				PriceDelta: mod.PriceDelta,
			})
		}
		inputs = append(inputs, internalorders.NewItemInput{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			Modifiers:  modifiers,
			Seat:       item.Seat,
			Course:     item.Course,
			Notes:      item.Notes,
		})
	}
	return inputs, nil
}

func (r sendRequest) itemIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.ItemIDs))
	for _, raw := range r.ItemIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r payRequest) method() (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(r.Method)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

func parseTerminalID(r *http.Request) (uuid.UUID, error) {
	terminalID := middleware.TerminalIDFromContext(r.Context())
	if terminalID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "terminal context missing")
	}
	parsed, err := uuid.Parse(terminalID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid terminal id")
	}
	return parsed, nil
}

func parseVenueID(r *http.Request) (uuid.UUID, error) {
	venueID := middleware.VenueIDFromContext(r.Context())
	if venueID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "venue context missing")
	}
	parsed, err := uuid.Parse(venueID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid venue id")
	}
	return parsed, nil
}

func parseURLID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}

func parseApproverID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid approver id")
	}
	return id, nil
}
