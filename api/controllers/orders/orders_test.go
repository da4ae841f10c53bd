package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/api/middleware"
	internalorders "github.com/tapline/tapline-backend/internal/orders"
	"github.com/tapline/tapline-backend/internal/routing"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/pagination"
)

type stubOrdersService struct {
	create     func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	addItems   func(ctx context.Context, input internalorders.AddItemsInput) (*models.Order, error)
	send       func(ctx context.Context, input internalorders.SendInput) (*internalorders.SendResult, error)
	pay        func(ctx context.Context, input internalorders.PayInput) (*models.Payment, error)
	voidItem   func(ctx context.Context, input internalorders.VoidItemInput) (*models.Order, error)
	voidOrder  func(ctx context.Context, input internalorders.VoidOrderInput) (*models.Order, error)
	reopen     func(ctx context.Context, input internalorders.ReopenInput) (*models.Order, error)
	get        func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	listActive func(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*internalorders.ActiveOrderList, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) AddItems(ctx context.Context, input internalorders.AddItemsInput) (*models.Order, error) {
	if s.addItems != nil {
		return s.addItems(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) SendToKitchen(ctx context.Context, input internalorders.SendInput) (*internalorders.SendResult, error) {
	if s.send != nil {
		return s.send(ctx, input)
	}
	return &internalorders.SendResult{Order: &models.Order{}}, nil
}

func (s *stubOrdersService) Pay(ctx context.Context, input internalorders.PayInput) (*models.Payment, error) {
	if s.pay != nil {
		return s.pay(ctx, input)
	}
	return &models.Payment{}, nil
}

func (s *stubOrdersService) VoidItem(ctx context.Context, input internalorders.VoidItemInput) (*models.Order, error) {
	if s.voidItem != nil {
		return s.voidItem(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) VoidOrder(ctx context.Context, input internalorders.VoidOrderInput) (*models.Order, error) {
	if s.voidOrder != nil {
		return s.voidOrder(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) Reopen(ctx context.Context, input internalorders.ReopenInput) (*models.Order, error) {
	if s.reopen != nil {
		return s.reopen(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.get != nil {
		return s.get(ctx, orderID)
	}
	return &models.Order{}, nil
}

func (s *stubOrdersService) ListActive(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*internalorders.ActiveOrderList, error) {
	if s.listActive != nil {
		return s.listActive(ctx, venueID, params)
	}
	return &internalorders.ActiveOrderList{}, nil
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(middleware.WithTerminalID(req.Context(), uuid.NewString()))
	req = req.WithContext(middleware.WithVenueID(req.Context(), uuid.NewString()))
	return req
}

func withOrderParam(req *http.Request, orderID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestCreateReturnsCreated(t *testing.T) {
	venueID := uuid.New()
	table := "T12"
	svc := &stubOrdersService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			if input.VenueID != venueID {
				t.Fatalf("unexpected venue id %s", input.VenueID)
			}
			if input.TableRef == nil || *input.TableRef != table {
				t.Fatalf("table ref not passed through")
			}
			return &models.Order{ID: uuid.New(), VenueID: venueID, TableRef: input.TableRef, Status: enums.OrderStatusDraft, Version: 1}, nil
		},
	}

	handler := Create(svc, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"table_ref":"T12"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithTerminalID(req.Context(), uuid.NewString()))
	req = req.WithContext(middleware.WithVenueID(req.Context(), venueID.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusDraft {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestCreateWithoutTerminalContext(t *testing.T) {
	handler := Create(&stubOrdersService{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddItemsVersionConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		addItems: func(ctx context.Context, input internalorders.AddItemsInput) (*models.Order, error) {
			if input.ExpectedVersion == nil || *input.ExpectedVersion != 4 {
				t.Fatalf("expected version not passed through")
			}
			return nil, pkgerrors.VersionConflict(6)
		},
	}

	handler := AddItems(svc, nil, nil)
	body := `{"expected_version":4,"items":[{"menu_item_id":"` + uuid.NewString() + `","quantity":2}]}`
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/items", body), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeVersionConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["current_version"] != float64(6) {
		t.Fatalf("current version missing from details")
	}
}

func TestAddItemsRejectsZeroQuantity(t *testing.T) {
	orderID := uuid.New()
	called := false
	svc := &stubOrdersService{
		addItems: func(ctx context.Context, input internalorders.AddItemsInput) (*models.Order, error) {
			called = true
			return &models.Order{}, nil
		},
	}

	handler := AddItems(svc, nil, nil)
	body := `{"items":[{"menu_item_id":"` + uuid.NewString() + `","quantity":0}]}`
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/items", body), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatalf("service should not run on invalid payload")
	}
}

func TestSendReturnsManifest(t *testing.T) {
	orderID := uuid.New()
	stationID := uuid.New()
	svc := &stubOrdersService{
		send: func(ctx context.Context, input internalorders.SendInput) (*internalorders.SendResult, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			return &internalorders.SendResult{
				Order: &models.Order{ID: orderID, Status: enums.OrderStatusSent, Version: 3},
				Manifest: routing.Manifest{
					Tickets: []routing.StationTicket{
						{
							Station: models.Station{ID: stationID, Name: "Grill"},
							Items:   []models.OrderItem{{ID: uuid.New(), Name: "Burger", Quantity: 1}},
						},
					},
				},
			}, nil
		},
	}

	handler := Send(svc, nil, nil)
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/send", `{}`), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data sendResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.Status != enums.OrderStatusSent {
		t.Fatalf("unexpected order status %s", envelope.Data.Order.Status)
	}
	if len(envelope.Data.Manifest.Tickets) != 1 || envelope.Data.Manifest.Tickets[0].StationID != stationID {
		t.Fatalf("manifest ticket missing")
	}
}

func TestPayPassesIdempotencyKey(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		pay: func(ctx context.Context, input internalorders.PayInput) (*models.Payment, error) {
			if input.IdempotencyKey != "pay-abc-1" {
				t.Fatalf("unexpected idempotency key %q", input.IdempotencyKey)
			}
			if input.Method != enums.PaymentMethodCard {
				t.Fatalf("unexpected method %s", input.Method)
			}
			if !input.Amount.Equal(decimal.RequireFromString("41.50")) {
				t.Fatalf("unexpected amount %s", input.Amount)
			}
			return &models.Payment{ID: uuid.New(), OrderID: orderID, Method: input.Method, Amount: input.Amount, Status: enums.PaymentStatusCaptured}, nil
		},
	}

	handler := Pay(svc, nil, nil)
	body := `{"idempotency_key":"pay-abc-1","method":"card","amount":"41.50","tip":"5.00"}`
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", body), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data paymentResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID {
		t.Fatalf("unexpected order id in payment")
	}
}

func TestPayRejectsUnknownMethod(t *testing.T) {
	orderID := uuid.New()
	handler := Pay(&stubOrdersService{}, nil, nil)
	body := `{"idempotency_key":"pay-abc-2","method":"barter","amount":"10.00"}`
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", body), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVoidItemRequiresApprover(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	handler := VoidItem(&stubOrdersService{}, nil, nil)
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/items/"+itemID.String()+"/void", `{"reason":"spilled"}`)
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID.String())
	ctx.URLParams.Add("itemId", itemID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVoidOrderPassesApproval(t *testing.T) {
	orderID := uuid.New()
	approverID := uuid.New()
	svc := &stubOrdersService{
		voidOrder: func(ctx context.Context, input internalorders.VoidOrderInput) (*models.Order, error) {
			if input.Reason != "walkout" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			if input.ApproverID != approverID {
				t.Fatalf("unexpected approver %s", input.ApproverID)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusVoided}, nil
		},
	}

	handler := VoidOrder(svc, nil, nil)
	body := `{"reason":"walkout","approver_id":"` + approverID.String() + `"}`
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/void", body), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestReopenReturnsOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		reopen: func(ctx context.Context, input internalorders.ReopenInput) (*models.Order, error) {
			if input.Reason != "missed round" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusInProgress, Version: 5}, nil
		},
	}

	handler := Reopen(svc, nil, nil)
	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/reopen", `{"reason":"missed round"}`), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Version != 5 {
		t.Fatalf("unexpected version %d", envelope.Data.Version)
	}
}

func TestGetNotFound(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	handler := Get(svc, nil)
	req := withOrderParam(authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), ""), orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestListActivePassesPagination(t *testing.T) {
	venueID := uuid.New()
	svc := &stubOrdersService{
		listActive: func(ctx context.Context, incoming uuid.UUID, params pagination.Params) (*internalorders.ActiveOrderList, error) {
			if incoming != venueID {
				t.Fatalf("unexpected venue id %s", incoming)
			}
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.Cursor != "abc" {
				t.Fatalf("unexpected cursor %q", params.Cursor)
			}
			return &internalorders.ActiveOrderList{
				Orders: []internalorders.ActiveOrderSummary{{ID: uuid.New(), Status: enums.OrderStatusInProgress}},
			}, nil
		},
	}

	handler := ListActive(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc", nil)
	req = req.WithContext(middleware.WithTerminalID(req.Context(), uuid.NewString()))
	req = req.WithContext(middleware.WithVenueID(req.Context(), venueID.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data internalorders.ActiveOrderList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 {
		t.Fatalf("unexpected orders in response")
	}
}
