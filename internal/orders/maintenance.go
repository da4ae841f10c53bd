package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
)

// MaintenanceStore adapts the repository for background cleanup jobs,
// which update rows inside a transaction they manage themselves.
type MaintenanceStore struct {
	repo Repository
}

// NewMaintenanceStore wraps the repository.
func NewMaintenanceStore(repo Repository) *MaintenanceStore {
	return &MaintenanceStore{repo: repo}
}

func (m *MaintenanceStore) FindEmptyDraftsBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return m.repo.FindEmptyDraftsBefore(ctx, cutoff)
}

// VoidDraftTx applies the void only while the row is still a draft at
// the version the sweep observed. A terminal that added items in the
// meantime bumped the version, so the guard fails and the order is
// left alone. Reports whether the row was written.
func (m *MaintenanceStore) VoidDraftTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, version int, updates map[string]any) (bool, error) {
	affected, err := m.repo.WithTx(tx).UpdateOrderIf(ctx, orderID, enums.OrderStatusDraft, version, updates)
	return affected > 0, err
}
