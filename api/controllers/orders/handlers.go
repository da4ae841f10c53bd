package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/tapline/tapline-backend/api/responses"
	"github.com/tapline/tapline-backend/api/validators"
	internalorders "github.com/tapline/tapline-backend/internal/orders"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/metrics"
	"github.com/tapline/tapline-backend/pkg/pagination"
)

func observeMutation(m *metrics.OrderMetrics, operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
		if typed := pkgerrors.As(err); typed != nil {
			result = strings.ToLower(string(typed.Code()))
		}
	}
	m.ObserveMutation(operation, result, time.Since(start))
}

// Create opens an order, claiming the table when one is given.
func Create(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		venueID, err := parseVenueID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			VenueID:    venueID,
			TableRef:   payload.TableRef,
			TerminalID: terminalID,
		})
		observeMutation(m, "create", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

// Get returns the full order aggregate.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// ListActive returns the floor view of open orders for the venue.
func ListActive(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		venueID, err := parseVenueID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListActive(r.Context(), venueID, pagination.Params{
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AddItems appends lines to an order.
func AddItems(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := payload.toInputs()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		order, err := svc.AddItems(r.Context(), internalorders.AddItemsInput{
			OrderID:         orderID,
			ExpectedVersion: payload.ExpectedVersion,
			Items:           items,
			TerminalID:      terminalID,
		})
		observeMutation(m, "add_items", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// Send fires the unsent delta to the kitchen and returns the manifest.
func Send(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemIDs, err := payload.itemIDs()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		result, err := svc.SendToKitchen(r.Context(), internalorders.SendInput{
			OrderID:    orderID,
			ItemIDs:    itemIDs,
			TerminalID: terminalID,
		})
		observeMutation(m, "send", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSendResponse(result))
	}
}

// Pay captures a payment. A replayed idempotency key returns the
// original payment with the same 200.
func Pay(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := payload.method()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		payment, err := svc.Pay(r.Context(), internalorders.PayInput{
			OrderID:        orderID,
			IdempotencyKey: payload.IdempotencyKey,
			Method:         method,
			Amount:         payload.Amount,
			Tip:            payload.Tip,
			TerminalID:     terminalID,
		})
		observeMutation(m, "pay", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPaymentResponse(payment))
	}
}

// VoidItem voids one line with a manager approval trail.
func VoidItem(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseURLID(r, "itemId", "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voidItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approverID, err := parseApproverID(payload.ApproverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		order, err := svc.VoidItem(r.Context(), internalorders.VoidItemInput{
			OrderID:    orderID,
			ItemID:     itemID,
			Reason:     payload.Reason,
			ApproverID: approverID,
			TerminalID: terminalID,
		})
		observeMutation(m, "void_item", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// VoidOrder voids the whole order.
func VoidOrder(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voidOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approverID, err := parseApproverID(payload.ApproverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		order, err := svc.VoidOrder(r.Context(), internalorders.VoidOrderInput{
			OrderID:    orderID,
			Reason:     payload.Reason,
			ApproverID: approverID,
			TerminalID: terminalID,
		})
		observeMutation(m, "void_order", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// Reopen pulls a paid order back into the mutable lifecycle.
func Reopen(svc internalorders.Service, m *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		terminalID, err := parseTerminalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseURLID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reopenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		order, err := svc.Reopen(r.Context(), internalorders.ReopenInput{
			OrderID:    orderID,
			ActorID:    terminalID,
			Reason:     payload.Reason,
			TerminalID: terminalID,
		})
		observeMutation(m, "reopen", start, err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}
