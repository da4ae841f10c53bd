package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindForUpdate loads the order row under SELECT ... FOR UPDATE so
	// concurrent mutations serialize. Items are loaded after the lock.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindActiveByTable(ctx context.Context, venueID uuid.UUID, tableRef string) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	MarkItemsSent(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	// UpdateOrderIf applies updates only while the row still matches the
	// given status and version, reporting rows affected. Zero means a
	// concurrent mutation got there first.
	UpdateOrderIf(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, version int, updates map[string]any) (int64, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPaymentByKey(ctx context.Context, orderID uuid.UUID, idempotencyKey string) (*models.Payment, error)
	ListActive(ctx context.Context, venueID uuid.UUID, params pagination.Params) (*ActiveOrderList, error)
	FindEmptyDraftsBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}
