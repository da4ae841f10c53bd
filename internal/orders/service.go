package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/internal/routing"
	"github.com/tapline/tapline-backend/internal/stations"
	dbpkg "github.com/tapline/tapline-backend/pkg/db"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/metrics"
	"github.com/tapline/tapline-backend/pkg/outbox"
	"github.com/tapline/tapline-backend/pkg/outbox/payloads"
	"github.com/tapline/tapline-backend/pkg/pagination"
)

const (
	tableClaimIndex     = "ux_orders_active_table"
	paymentIdemKeyIndex = "ux_payments_order_idem_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// effectSubmitter hands fire-and-forget work to the bounded task pool.
// Submit reports whether the task was accepted; a full queue drops it.
type effectSubmitter interface {
	Submit(name string, fn func(context.Context) error) bool
}

// catalogReader snapshots menu data at add-time.
type catalogReader interface {
	GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]models.MenuItem, error)
}

// InventoryDeductor adjusts stock counts after a sale or a send.
type InventoryDeductor interface {
	DeductForSale(ctx context.Context, items []models.OrderItem) error
}

// TipAllocator distributes a captured tip across staff.
type TipAllocator interface {
	Allocate(ctx context.Context, paymentID uuid.UUID) error
}

// TicketEmitter renders and delivers prep tickets for a send.
type TicketEmitter interface {
	Emit(ctx context.Context, manifest routing.Manifest) error
}

// Service is the order mutation pipeline: it enforces the state machine,
// the locking discipline, and payment idempotency.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	AddItems(ctx context.Context, input AddItemsInput) (*models.Order, error)
	SendToKitchen(ctx context.Context, input SendInput) (*SendResult, error)
	Pay(ctx context.Context, input PayInput) (*models.Payment, error)
	VoidItem(ctx context.Context, input VoidItemInput) (*models.Order, error)
	VoidOrder(ctx context.Context, input VoidOrderInput) (*models.Order, error)
	Reopen(ctx context.Context, input ReopenInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListActive(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*ActiveOrderList, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo      Repository
	Catalog   catalogReader
	Stations  stations.Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Effects   effectSubmitter
	Inventory InventoryDeductor
	Tips      TipAllocator
	Tickets   TicketEmitter
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
	TaxRate   decimal.Decimal
}

type service struct {
	repo      Repository
	catalog   catalogReader
	stations  stations.Repository
	tx        txRunner
	outbox    outboxPublisher
	effects   effectSubmitter
	inventory InventoryDeductor
	tips      TipAllocator
	tickets   TicketEmitter
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	taxRate   decimal.Decimal
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Stations == nil {
		return nil, fmt.Errorf("stations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Effects == nil {
		return nil, fmt.Errorf("effect submitter required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory deductor required")
	}
	if params.Tips == nil {
		return nil, fmt.Errorf("tip allocator required")
	}
	if params.Tickets == nil {
		return nil, fmt.Errorf("ticket emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		catalog:   params.Catalog,
		stations:  params.Stations,
		tx:        params.Tx,
		outbox:    params.Outbox,
		effects:   params.Effects,
		inventory: params.Inventory,
		tips:      params.Tips,
		tickets:   params.Tickets,
		metrics:   params.Metrics,
		logg:      params.Logger,
		taxRate:   params.TaxRate,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.VenueID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "venue id required")
	}
	if input.TerminalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "terminal identity missing")
	}

	// First line of defense; the partial unique index is the second.
	if input.TableRef != nil {
		existing, err := s.repo.FindActiveByTable(ctx, input.VenueID, *input.TableRef)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check table claim")
		}
		if existing != nil {
			s.metrics.IncTableConflict()
			return nil, pkgerrors.TableOccupied(existing.ID.String())
		}
	}

	terminal := input.TerminalID
	order := &models.Order{
		VenueID:    input.VenueID,
		TableRef:   input.TableRef,
		Status:     enums.OrderStatusDraft,
		Version:    1,
		TerminalID: &terminal,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, order)
		if err != nil {
			return err
		}
		order = created
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, input.VenueID),
			Data: payloads.OrderCreatedEvent{
				OrderID:  order.ID,
				VenueID:  order.VenueID,
				TableRef: order.TableRef,
				Version:  order.Version,
			},
		})
	})
	if err != nil {
		if input.TableRef != nil && dbpkg.IsUniqueViolation(err, tableClaimIndex) {
			// Lost the commit-time race; surface the winning order.
			s.metrics.IncTableConflict()
			existing, findErr := s.repo.FindActiveByTable(ctx, input.VenueID, *input.TableRef)
			if findErr == nil && existing != nil {
				return nil, pkgerrors.TableOccupied(existing.ID.String())
			}
			return nil, pkgerrors.TableOccupied("")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) AddItems(ctx context.Context, input AddItemsInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.MenuItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockMutable(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := s.checkVersion(order, input.ExpectedVersion); err != nil {
			return err
		}

		newItems, err := s.snapshotItems(ctx, order, input.Items)
		if err != nil {
			return err
		}
		created, err := repo.CreateItems(ctx, newItems)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = append(order.Items, created...)

		recomputeTotals(order, s.taxRate)
		order.Status = enums.OrderStatusInProgress
		order.Version++

		updates := map[string]any{
			"status":    order.Status,
			"version":   order.Version,
			"subtotal":  order.Subtotal,
			"tax_total": order.TaxTotal,
			"total":     order.Total,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderTotalsUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data: payloads.OrderTotalsUpdatedEvent{
				OrderID:  order.ID,
				VenueID:  order.VenueID,
				Version:  order.Version,
				Subtotal: order.Subtotal,
				TaxTotal: order.TaxTotal,
				Total:    order.Total,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) SendToKitchen(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *SendResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockMutable(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		delta := unsentItems(order.Items, input.ItemIDs)
		if len(delta) == 0 {
			// Nothing new since the last send; not a mutation.
			result = &SendResult{Order: order}
			return nil
		}

		stationList, err := s.stations.ListActiveByVenue(ctx, order.VenueID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stations")
		}
		manifest := routing.Resolve(delta, stationList)
		if len(manifest.Unrouted) > 0 {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":       order.ID.String(),
				"unrouted_count": len(manifest.Unrouted),
			})
			s.logg.Warn(logCtx, "items matched no station; check station tag config")
		}

		now := time.Now().UTC()
		deltaIDs := itemIDs(delta)
		if err := repo.MarkItemsSent(ctx, deltaIDs, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark items sent")
		}
		markSentInMemory(order.Items, deltaIDs, now)

		order.Status = enums.OrderStatusSent
		order.Version++
		updates := map[string]any{
			"status":  order.Status,
			"version": order.Version,
		}
		if order.SentAt == nil {
			order.SentAt = &now
			updates["sent_at"] = now
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		result = &SendResult{Order: order, Manifest: manifest}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSent,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data:          sentEventPayload(order, manifest, now),
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Manifest.IsEmpty() {
		s.submitSendEffects(ctx, result)
	}
	return result, nil
}

func (s *service) Pay(ctx context.Context, input PayInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Tip.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tip cannot be negative")
	}

	// Replay check before taking the lock: a seen key returns the stored
	// payment with no side effects re-fired.
	if existing, err := s.repo.FindPaymentByKey(ctx, input.OrderID, input.IdempotencyKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment key")
	} else if existing != nil {
		s.metrics.IncPaymentReplay()
		return existing, nil
	}

	var (
		payment *models.Payment
		order   *models.Order
		replay  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		order = locked

		// Re-check under the lock; a concurrent request may have won.
		if existing, err := repo.FindPaymentByKey(ctx, order.ID, input.IdempotencyKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment key")
		} else if existing != nil {
			payment = existing
			replay = true
			return nil
		}

		switch order.Status {
		case enums.OrderStatusPaid:
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid")
		case enums.OrderStatusVoided:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot pay a voided order")
		case enums.OrderStatusDraft:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot pay a draft order")
		}

		terminal := input.TerminalID
		created, err := repo.CreatePayment(ctx, &models.Payment{
			OrderID:        order.ID,
			IdempotencyKey: input.IdempotencyKey,
			Method:         input.Method,
			Amount:         input.Amount,
			Tip:            input.Tip,
			Status:         enums.PaymentStatusCaptured,
			TerminalID:     &terminal,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		payment = created

		now := time.Now().UTC()
		order.TipTotal = order.TipTotal.Add(input.Tip)
		recomputeTotals(order, s.taxRate)
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		order.Version++

		updates := map[string]any{
			"status":    order.Status,
			"version":   order.Version,
			"tip_total": order.TipTotal,
			"total":     order.Total,
			"paid_at":   now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentProcessed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data: payloads.PaymentProcessedEvent{
				OrderID:   order.ID,
				PaymentID: payment.ID,
				VenueID:   order.VenueID,
				Method:    payment.Method,
				Amount:    payment.Amount,
				Tip:       payment.Tip,
				Version:   order.Version,
				PaidAt:    now,
			},
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, paymentIdemKeyIndex) {
			if existing, findErr := s.repo.FindPaymentByKey(ctx, input.OrderID, input.IdempotencyKey); findErr == nil && existing != nil {
				s.metrics.IncPaymentReplay()
				return existing, nil
			}
		}
		return nil, err
	}
	if replay {
		s.metrics.IncPaymentReplay()
		return payment, nil
	}

	s.submitPaymentEffects(ctx, order, payment)
	return payment, nil
}

func (s *service) VoidItem(ctx context.Context, input VoidItemInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}
	if input.ApproverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "void requires manager approval")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockMutable(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		var target *models.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == input.ItemID {
				target = &order.Items[i]
				break
			}
		}
		if target == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found on order")
		}
		if target.Voided {
			result = order
			return nil
		}

		reason := input.Reason
		if err := repo.UpdateItem(ctx, target.ID, map[string]any{
			"voided":      true,
			"void_reason": reason,
			"status":      enums.ItemStatusVoided,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void item")
		}
		target.Voided = true
		target.VoidReason = &reason
		target.Status = enums.ItemStatusVoided

		recomputeTotals(order, s.taxRate)
		order.Version++
		now := time.Now().UTC()
		approver := input.ApproverID

		scope := payloads.VoidScopeItem
		updates := map[string]any{
			"version":   order.Version,
			"subtotal":  order.Subtotal,
			"tax_total": order.TaxTotal,
			"total":     order.Total,
		}
		if activeItemCount(order.Items) == 0 {
			// Voiding the last line voids the order itself.
			scope = payloads.VoidScopeOrder
			order.Status = enums.OrderStatusVoided
			order.VoidedAt = &now
			order.VoidReason = &reason
			order.VoidApproverID = &approver
			updates["status"] = order.Status
			updates["voided_at"] = now
			updates["void_reason"] = reason
			updates["void_approver_id"] = approver
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		result = order
		itemID := input.ItemID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderVoided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data: payloads.OrderVoidedEvent{
				OrderID:    order.ID,
				VenueID:    order.VenueID,
				Scope:      scope,
				ItemID:     &itemID,
				Reason:     reason,
				ApproverID: &approver,
				Version:    order.Version,
				VoidedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) VoidOrder(ctx context.Context, input VoidOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}
	if input.ApproverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "void requires manager approval")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusPaid:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "paid orders must be reopened before voiding")
		case enums.OrderStatusVoided:
			result = order
			return nil
		}

		now := time.Now().UTC()
		reason := input.Reason
		approver := input.ApproverID
		order.Status = enums.OrderStatusVoided
		order.VoidedAt = &now
		order.VoidReason = &reason
		order.VoidApproverID = &approver
		order.Version++

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":           order.Status,
			"version":          order.Version,
			"voided_at":        now,
			"void_reason":      reason,
			"void_approver_id": approver,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void order")
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderVoided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data: payloads.OrderVoidedEvent{
				OrderID:    order.ID,
				VenueID:    order.VenueID,
				Scope:      payloads.VoidScopeOrder,
				Reason:     reason,
				ApproverID: &approver,
				Version:    order.Version,
				VoidedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Reopen(ctx context.Context, input ReopenInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reopen requires manager approval")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only paid orders can be reopened")
		}

		now := time.Now().UTC()
		actor := input.ActorID
		reason := input.Reason
		order.Status = enums.OrderStatusInProgress
		order.ReopenedAt = &now
		order.ReopenActorID = &actor
		order.ReopenReason = &reason
		order.Version++

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":          order.Status,
			"version":         order.Version,
			"reopened_at":     now,
			"reopen_actor_id": actor,
			"reopen_reason":   reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen order")
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReopened,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.TerminalID, order.VenueID),
			Data: payloads.OrderReopenedEvent{
				OrderID:    order.ID,
				VenueID:    order.VenueID,
				ActorID:    &actor,
				Reason:     reason,
				Version:    order.Version,
				ReopenedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListActive(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*ActiveOrderList, error) {
	if venueID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "venue id required")
	}
	list, err := s.repo.ListActive(ctx, venueID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}
	return list, nil
}

// lockOrder loads the row under FOR UPDATE and maps not-found.
func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

// lockMutable additionally rejects paid and voided orders.
func (s *service) lockMutable(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.lockOrder(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusPaid:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order already paid; reopen it first")
	case enums.OrderStatusVoided:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is voided")
	}
	return order, nil
}

func (s *service) checkVersion(order *models.Order, expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected != order.Version {
		s.metrics.IncVersionConflict()
		return pkgerrors.VersionConflict(order.Version)
	}
	return nil
}

// snapshotItems resolves menu data and freezes price/tags/class onto the
// new lines.
func (s *service) snapshotItems(ctx context.Context, order *models.Order, inputs []NewItemInput) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		ids = append(ids, input.MenuItemID)
	}
	menuItems, err := s.catalog.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu items")
	}
	byID := make(map[uuid.UUID]models.MenuItem, len(menuItems))
	for _, item := range menuItems {
		byID[item.ID] = item
	}

	items := make([]models.OrderItem, 0, len(inputs))
	for _, input := range inputs {
		menu, ok := byID[input.MenuItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown menu item").
				WithDetails(map[string]any{"menu_item_id": input.MenuItemID.String()})
		}
		items = append(items, models.OrderItem{
			OrderID:       order.ID,
			MenuItemID:    menu.ID,
			Name:          menu.Name,
			Quantity:      input.Quantity,
			UnitPrice:     menu.Price,
			Modifiers:     input.Modifiers,
			Seat:          input.Seat,
			Notes:         input.Notes,
			Course:        input.Course,
			Tags:          menu.RoutingTags,
			CategoryTags:  menu.CategoryTags,
			CategoryClass: menu.CategoryClass,
			IsReference:   menu.IsReference,
			Status:        enums.ItemStatusQueued,
		})
	}
	return items, nil
}

func (s *service) submitSendEffects(ctx context.Context, result *SendResult) {
	manifest := result.Manifest
	sent := make([]models.OrderItem, 0)
	for _, ticket := range manifest.Tickets {
		sent = append(sent, ticket.Items...)
	}

	s.submit(ctx, "ticket_emission", func(taskCtx context.Context) error {
		return s.tickets.Emit(taskCtx, manifest)
	})
	s.submit(ctx, "stock_pre_deduction", func(taskCtx context.Context) error {
		return s.inventory.DeductForSale(taskCtx, sent)
	})
}

func (s *service) submitPaymentEffects(ctx context.Context, order *models.Order, payment *models.Payment) {
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	paymentID := payment.ID

	s.submit(ctx, "inventory_deduction", func(taskCtx context.Context) error {
		return s.inventory.DeductForSale(taskCtx, items)
	})
	s.submit(ctx, "tip_allocation", func(taskCtx context.Context) error {
		return s.tips.Allocate(taskCtx, paymentID)
	})
}

func (s *service) submit(ctx context.Context, name string, fn func(context.Context) error) {
	if s.effects.Submit(name, fn) {
		return
	}
	logCtx := s.logg.WithField(ctx, "task", name)
	s.logg.Warn(logCtx, "side-effect pool is full; task dropped")
}

func unsentItems(items []models.OrderItem, only []uuid.UUID) []models.OrderItem {
	requested := make(map[uuid.UUID]bool, len(only))
	for _, id := range only {
		requested[id] = true
	}
	var delta []models.OrderItem
	for _, item := range items {
		if item.Sent || item.Voided {
			continue
		}
		if len(only) > 0 && !requested[item.ID] {
			continue
		}
		delta = append(delta, item)
	}
	return delta
}

func itemIDs(items []models.OrderItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func markSentInMemory(items []models.OrderItem, ids []uuid.UUID, at time.Time) {
	sent := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		sent[id] = true
	}
	for i := range items {
		if sent[items[i].ID] {
			items[i].Sent = true
			at := at
			items[i].SentAt = &at
		}
	}
}

func sentEventPayload(order *models.Order, manifest routing.Manifest, at time.Time) payloads.OrderSentEvent {
	tickets := make([]payloads.RoutedTicket, 0, len(manifest.Tickets))
	for _, ticket := range manifest.Tickets {
		tickets = append(tickets, payloads.RoutedTicket{
			StationID:        ticket.Station.ID,
			StationName:      ticket.Station.Name,
			StationTags:      ticket.Station.Tags,
			ItemIDs:          itemIDs(ticket.Items),
			ReferenceItemIDs: itemIDs(ticket.ReferenceItems),
		})
	}
	return payloads.OrderSentEvent{
		OrderID:         order.ID,
		VenueID:         order.VenueID,
		Version:         order.Version,
		Tickets:         tickets,
		UnroutedItemIDs: itemIDs(manifest.Unrouted),
		SentAt:          at,
	}
}

func buildActor(terminalID, venueID uuid.UUID) *outbox.ActorRef {
	venue := venueID
	return &outbox.ActorRef{
		TerminalID: terminalID,
		VenueID:    &venue,
		Role:       "terminal",
	}
}
