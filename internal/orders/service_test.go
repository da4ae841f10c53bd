package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/internal/routing"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/outbox"
	"github.com/tapline/tapline-backend/pkg/pagination"
)

type stubRepo struct {
	createFn            func(ctx context.Context, order *models.Order) (*models.Order, error)
	findByIDFn          func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	findForUpdateFn     func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	findActiveByTableFn func(ctx context.Context, venueID uuid.UUID, tableRef string) (*models.Order, error)
	createItemsFn       func(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error)
	updateItemFn        func(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	markItemsSentFn     func(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error
	updateOrderFn       func(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	createPaymentFn     func(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	findPaymentByKeyFn  func(ctx context.Context, orderID uuid.UUID, key string) (*models.Payment, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createFn == nil {
		order.ID = uuid.New()
		return order, nil
	}
	return s.createFn(ctx, order)
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findByIDFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findByIDFn(ctx, id)
}

func (s *stubRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findForUpdateFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findForUpdateFn(ctx, id)
}

func (s *stubRepo) FindActiveByTable(ctx context.Context, venueID uuid.UUID, tableRef string) (*models.Order, error) {
	if s.findActiveByTableFn == nil {
		return nil, nil
	}
	return s.findActiveByTableFn(ctx, venueID, tableRef)
}

func (s *stubRepo) CreateItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	if s.createItemsFn == nil {
		for i := range items {
			items[i].ID = uuid.New()
		}
		return items, nil
	}
	return s.createItemsFn(ctx, items)
}

func (s *stubRepo) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	if s.updateItemFn == nil {
		return nil
	}
	return s.updateItemFn(ctx, itemID, updates)
}

func (s *stubRepo) MarkItemsSent(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error {
	if s.markItemsSentFn == nil {
		return nil
	}
	return s.markItemsSentFn(ctx, itemIDs, at)
}

func (s *stubRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.updateOrderFn == nil {
		return nil
	}
	return s.updateOrderFn(ctx, orderID, updates)
}

func (s *stubRepo) UpdateOrderIf(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, version int, updates map[string]any) (int64, error) {
	return 1, nil
}

func (s *stubRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if s.createPaymentFn == nil {
		payment.ID = uuid.New()
		return payment, nil
	}
	return s.createPaymentFn(ctx, payment)
}

func (s *stubRepo) FindPaymentByKey(ctx context.Context, orderID uuid.UUID, key string) (*models.Payment, error) {
	if s.findPaymentByKeyFn == nil {
		return nil, nil
	}
	return s.findPaymentByKeyFn(ctx, orderID, key)
}

func (s *stubRepo) ListActive(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*ActiveOrderList, error) {
	return &ActiveOrderList{}, nil
}

func (s *stubRepo) FindEmptyDraftsBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubEffects struct {
	submitted []string
}

func (s *stubEffects) Submit(name string, fn func(context.Context) error) bool {
	s.submitted = append(s.submitted, name)
	return true
}

type stubCatalog struct {
	items []models.MenuItem
}

func (s *stubCatalog) GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]models.MenuItem, error) {
	return s.items, nil
}

type stubStations struct {
	stations []models.Station
}

func (s *stubStations) ListActiveByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Station, error) {
	return s.stations, nil
}

func (s *stubStations) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	return nil, gorm.ErrRecordNotFound
}

type noopInventory struct{}

func (noopInventory) DeductForSale(ctx context.Context, items []models.OrderItem) error { return nil }

type noopTips struct{}

func (noopTips) Allocate(ctx context.Context, paymentID uuid.UUID) error { return nil }

type noopTickets struct{}

func (noopTickets) Emit(ctx context.Context, manifest routing.Manifest) error { return nil }

type serviceFixture struct {
	repo    *stubRepo
	outbox  *stubOutbox
	effects *stubEffects
	catalog *stubCatalog
	venues  *stubStations
	svc     Service
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:    &stubRepo{},
		outbox:  &stubOutbox{},
		effects: &stubEffects{},
		catalog: &stubCatalog{},
		venues:  &stubStations{},
	}
	svc, err := NewService(ServiceParams{
		Repo:      f.repo,
		Catalog:   f.catalog,
		Stations:  f.venues,
		Tx:        stubTx{},
		Outbox:    f.outbox,
		Effects:   f.effects,
		Inventory: noopInventory{},
		Tips:      noopTips{},
		Tickets:   noopTickets{},
		Logger:    logger.New(logger.Options{Output: io.Discard}),
		TaxRate:   decimal.NewFromFloat(0.10),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateRejectsOccupiedTable(t *testing.T) {
	f := newFixture(t)
	existingID := uuid.New()
	f.repo.findActiveByTableFn = func(ctx context.Context, venueID uuid.UUID, tableRef string) (*models.Order, error) {
		return &models.Order{ID: existingID}, nil
	}
	created := false
	f.repo.createFn = func(ctx context.Context, order *models.Order) (*models.Order, error) {
		created = true
		return order, nil
	}

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		VenueID:    uuid.New(),
		TableRef:   strPtr("T7"),
		TerminalID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTableOccupied {
		t.Fatalf("expected TABLE_OCCUPIED, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["existing_order_id"] != existingID.String() {
		t.Fatalf("expected existing order id in details, got %v", typed.Details())
	}
	if created {
		t.Fatal("create should not run when the table is claimed")
	}
}

func TestCreateEmitsOrderCreated(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		VenueID:    uuid.New(),
		TerminalID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Version != 1 || order.Status != enums.OrderStatusDraft {
		t.Fatalf("expected fresh draft at version 1, got %s v%d", order.Status, order.Version)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order_created event, got %+v", f.outbox.events)
	}
}

func TestAddItemsVersionConflict(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, Status: enums.OrderStatusInProgress, Version: 5}, nil
	}

	_, err := f.svc.AddItems(context.Background(), AddItemsInput{
		OrderID:         orderID,
		ExpectedVersion: intPtr(3),
		Items:           []NewItemInput{{MenuItemID: uuid.New(), Quantity: 1}},
		TerminalID:      uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeVersionConflict {
		t.Fatalf("expected VERSION_CONFLICT, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["current_version"] != 5 {
		t.Fatalf("expected current_version 5, got %v", details["current_version"])
	}
}

func TestAddItemsSnapshotsCatalogAndBumpsVersion(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	menuID := uuid.New()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, Status: enums.OrderStatusDraft, Version: 1}, nil
	}
	f.catalog.items = []models.MenuItem{{
		ID:            menuID,
		Name:          "Smash Burger",
		Price:         decimal.NewFromFloat(14.50),
		RoutingTags:   []string{"grill"},
		CategoryClass: enums.CategoryClassFood,
	}}

	order, err := f.svc.AddItems(context.Background(), AddItemsInput{
		OrderID:    orderID,
		Items:      []NewItemInput{{MenuItemID: menuID, Quantity: 2}},
		TerminalID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if order.Version != 2 {
		t.Fatalf("expected version 2, got %d", order.Version)
	}
	if order.Status != enums.OrderStatusInProgress {
		t.Fatalf("expected in_progress, got %s", order.Status)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if !item.UnitPrice.Equal(decimal.NewFromFloat(14.50)) || item.Name != "Smash Burger" {
		t.Fatalf("expected snapshotted catalog data, got %+v", item)
	}
	// 2 x 14.50 = 29.00 subtotal, 10% tax.
	if !order.Subtotal.Equal(decimal.NewFromFloat(29.00)) {
		t.Fatalf("expected subtotal 29.00, got %s", order.Subtotal)
	}
	if !order.Total.Equal(decimal.NewFromFloat(31.90)) {
		t.Fatalf("expected total 31.90, got %s", order.Total)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderTotalsUpdated {
		t.Fatalf("expected order_totals_updated, got %+v", f.outbox.events)
	}
}

func TestAddItemsRejectsUnknownMenuItem(t *testing.T) {
	f := newFixture(t)
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: enums.OrderStatusDraft, Version: 1}, nil
	}
	_, err := f.svc.AddItems(context.Background(), AddItemsInput{
		OrderID:    uuid.New(),
		Items:      []NewItemInput{{MenuItemID: uuid.New(), Quantity: 1}},
		TerminalID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendToKitchenRoutesOnlyTheDelta(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	sentAt := time.Now().UTC().Add(-time.Minute)
	alreadySent := models.OrderItem{
		ID:      uuid.New(),
		Name:    "Old Fashioned",
		Tags:    []string{"bar"},
		Sent:    true,
		SentAt:  &sentAt,
		Status:  enums.ItemStatusInProgress,
		OrderID: orderID,
	}
	fresh := models.OrderItem{
		ID:      uuid.New(),
		Name:    "Wings",
		Tags:    []string{"kitchen"},
		Status:  enums.ItemStatusQueued,
		OrderID: orderID,
	}
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{
			ID:      orderID,
			Status:  enums.OrderStatusSent,
			Version: 3,
			SentAt:  &sentAt,
			Items:   []models.OrderItem{alreadySent, fresh},
		}, nil
	}
	f.venues.stations = []models.Station{{
		ID:   uuid.New(),
		Name: "Kitchen",
		Tags: []string{"kitchen"},
	}}

	var marked []uuid.UUID
	f.repo.markItemsSentFn = func(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error {
		marked = itemIDs
		return nil
	}

	result, err := f.svc.SendToKitchen(context.Background(), SendInput{OrderID: orderID, TerminalID: uuid.New()})
	if err != nil {
		t.Fatalf("SendToKitchen: %v", err)
	}
	if len(marked) != 1 || marked[0] != fresh.ID {
		t.Fatalf("expected only the fresh item marked sent, got %v", marked)
	}
	if len(result.Manifest.Tickets) != 1 || len(result.Manifest.Tickets[0].Items) != 1 {
		t.Fatalf("expected a one-item ticket, got %+v", result.Manifest.Tickets)
	}
	if result.Manifest.Tickets[0].Items[0].ID != fresh.ID {
		t.Fatal("manifest should contain only the delta")
	}
	if result.Order.Version != 4 {
		t.Fatalf("expected version 4, got %d", result.Order.Version)
	}
	if len(f.effects.submitted) != 2 {
		t.Fatalf("expected ticket and stock tasks submitted, got %v", f.effects.submitted)
	}
}

func TestSendToKitchenNoopWhenNothingUnsent(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	sentAt := time.Now().UTC()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{
			ID:      orderID,
			Status:  enums.OrderStatusSent,
			Version: 4,
			SentAt:  &sentAt,
			Items: []models.OrderItem{{
				ID:     uuid.New(),
				Sent:   true,
				SentAt: &sentAt,
				Status: enums.ItemStatusInProgress,
			}},
		}, nil
	}
	updated := false
	f.repo.updateOrderFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		updated = true
		return nil
	}

	result, err := f.svc.SendToKitchen(context.Background(), SendInput{OrderID: orderID, TerminalID: uuid.New()})
	if err != nil {
		t.Fatalf("SendToKitchen: %v", err)
	}
	if !result.Manifest.IsEmpty() {
		t.Fatalf("expected empty manifest, got %+v", result.Manifest)
	}
	if result.Order.Version != 4 {
		t.Fatalf("a no-op send must not bump the version, got %d", result.Order.Version)
	}
	if updated {
		t.Fatal("a no-op send must not write the order row")
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("a no-op send must not emit events, got %+v", f.outbox.events)
	}
	if len(f.effects.submitted) != 0 {
		t.Fatalf("a no-op send must not fire side effects, got %v", f.effects.submitted)
	}
}

func TestPayReplayReturnsStoredPayment(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	stored := &models.Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		IdempotencyKey: "789e1f",
		Amount:         decimal.NewFromFloat(42.00),
		Status:         enums.PaymentStatusCaptured,
	}
	f.repo.findPaymentByKeyFn = func(ctx context.Context, id uuid.UUID, key string) (*models.Payment, error) {
		if key == stored.IdempotencyKey {
			return stored, nil
		}
		return nil, nil
	}
	locked := false
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		locked = true
		return nil, gorm.ErrRecordNotFound
	}

	payment, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:        orderID,
		IdempotencyKey: "789e1f",
		Method:         enums.PaymentMethodCard,
		Amount:         decimal.NewFromFloat(42.00),
		TerminalID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("Pay replay: %v", err)
	}
	if payment.ID != stored.ID {
		t.Fatal("replay must return the stored payment")
	}
	if locked {
		t.Fatal("replay should resolve before taking the lock")
	}
	if len(f.outbox.events) != 0 || len(f.effects.submitted) != 0 {
		t.Fatal("replay must not re-fire events or side effects")
	}
}

func TestPayCapturesAndEmits(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{
			ID:       orderID,
			Status:   enums.OrderStatusSent,
			Version:  3,
			Subtotal: decimal.NewFromFloat(30.00),
			TaxTotal: decimal.NewFromFloat(3.00),
			Total:    decimal.NewFromFloat(33.00),
		}, nil
	}

	payment, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:        orderID,
		IdempotencyKey: "abc123",
		Method:         enums.PaymentMethodCard,
		Amount:         decimal.NewFromFloat(33.00),
		Tip:            decimal.NewFromFloat(6.00),
		TerminalID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if payment.Status != enums.PaymentStatusCaptured {
		t.Fatalf("expected captured, got %s", payment.Status)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventPaymentProcessed {
		t.Fatalf("expected payment_processed event, got %+v", f.outbox.events)
	}
	if len(f.effects.submitted) != 2 {
		t.Fatalf("expected inventory and tip tasks, got %v", f.effects.submitted)
	}
}

func TestPayRejectsPaidOrder(t *testing.T) {
	f := newFixture(t)
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: enums.OrderStatusPaid, Version: 4}, nil
	}
	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:        uuid.New(),
		IdempotencyKey: "k1",
		Method:         enums.PaymentMethodCash,
		Amount:         decimal.NewFromFloat(10),
		TerminalID:     uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAlreadyPaid {
		t.Fatalf("expected ALREADY_PAID, got %v", err)
	}
}

func TestPayRejectsDraftOrder(t *testing.T) {
	f := newFixture(t)
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: enums.OrderStatusDraft, Version: 1}, nil
	}
	f.repo.createPaymentFn = func(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
		t.Fatal("a draft must not reach payment capture")
		return nil, nil
	}
	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:        uuid.New(),
		IdempotencyKey: "k1",
		Method:         enums.PaymentMethodCash,
		Amount:         decimal.NewFromFloat(10),
		TerminalID:     uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestVoidLastItemVoidsOrder(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	itemID := uuid.New()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{
			ID:      orderID,
			Status:  enums.OrderStatusInProgress,
			Version: 2,
			Items: []models.OrderItem{{
				ID:        itemID,
				Quantity:  1,
				UnitPrice: decimal.NewFromFloat(9.00),
			}},
		}, nil
	}

	order, err := f.svc.VoidItem(context.Background(), VoidItemInput{
		OrderID:    orderID,
		ItemID:     itemID,
		Reason:     "dropped plate",
		ApproverID: uuid.New(),
		TerminalID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("VoidItem: %v", err)
	}
	if order.Status != enums.OrderStatusVoided {
		t.Fatalf("voiding the last line should void the order, got %s", order.Status)
	}
	if order.Version != 3 {
		t.Fatalf("expected version 3, got %d", order.Version)
	}
	if !order.Subtotal.IsZero() {
		t.Fatalf("expected zero subtotal, got %s", order.Subtotal)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderVoided {
		t.Fatalf("expected order_voided event, got %+v", f.outbox.events)
	}
}

func TestVoidOrderRequiresUnpaid(t *testing.T) {
	f := newFixture(t)
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: enums.OrderStatusPaid, Version: 5}, nil
	}
	_, err := f.svc.VoidOrder(context.Background(), VoidOrderInput{
		OrderID:    uuid.New(),
		Reason:     "walked out",
		ApproverID: uuid.New(),
		TerminalID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestReopenPaidOrder(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, Status: enums.OrderStatusPaid, Version: 6}, nil
	}

	order, err := f.svc.Reopen(context.Background(), ReopenInput{
		OrderID:    orderID,
		ActorID:    uuid.New(),
		Reason:     "wrong tip entered",
		TerminalID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if order.Status != enums.OrderStatusInProgress {
		t.Fatalf("expected in_progress, got %s", order.Status)
	}
	if order.Version != 7 {
		t.Fatalf("expected version 7, got %d", order.Version)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderReopened {
		t.Fatalf("expected order_reopened event, got %+v", f.outbox.events)
	}
}

func TestReopenRejectsUnpaidOrder(t *testing.T) {
	f := newFixture(t)
	f.repo.findForUpdateFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: enums.OrderStatusInProgress, Version: 2}, nil
	}
	_, err := f.svc.Reopen(context.Background(), ReopenInput{
		OrderID:    uuid.New(),
		ActorID:    uuid.New(),
		TerminalID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}
