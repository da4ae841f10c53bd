package sideeffects

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/tapline/tapline-backend/pkg/db/models"
)

type counterStore interface {
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	CounterKey(name string) string
}

// Deductor tracks depletion counters per menu item as lines are sold.
// Counts feed the low-stock report; they are advisory, not a ledger.
type Deductor struct {
	counters counterStore
}

// NewDeductor builds the inventory hook.
func NewDeductor(counters counterStore) (*Deductor, error) {
	if counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	return &Deductor{counters: counters}, nil
}

// DeductForSale bumps the sold counter for every non-voided,
// non-reference line. Per-item failures are aggregated so one bad key
// does not mask the rest.
func (d *Deductor) DeductForSale(ctx context.Context, items []models.OrderItem) error {
	var errs error
	for _, item := range items {
		if item.Voided || item.IsReference {
			continue
		}
		key := d.counters.CounterKey("sold:" + item.MenuItemID.String())
		if _, err := d.counters.IncrBy(ctx, key, int64(item.Quantity)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deduct %s: %w", item.MenuItemID, err))
		}
	}
	return errs
}
