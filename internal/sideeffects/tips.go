package sideeffects

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/pkg/db/models"
)

// Allocator rolls captured tips into a per-terminal daily bucket so the
// close-of-day report can split the pool.
type Allocator struct {
	db       *gorm.DB
	counters counterStore
}

// NewAllocator builds the tip hook.
func NewAllocator(db *gorm.DB, counters counterStore) (*Allocator, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	return &Allocator{db: db, counters: counters}, nil
}

// Allocate adds the payment's tip, in cents, to the owning terminal's
// bucket for the capture day.
func (a *Allocator) Allocate(ctx context.Context, paymentID uuid.UUID) error {
	var payment models.Payment
	err := a.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("payment %s not found", paymentID)
		}
		return fmt.Errorf("load payment: %w", err)
	}
	if payment.Tip.IsZero() {
		return nil
	}

	bucket := "house"
	if payment.TerminalID != nil {
		bucket = payment.TerminalID.String()
	}
	day := payment.CreatedAt.UTC().Format("2006-01-02")
	key := a.counters.CounterKey(fmt.Sprintf("tips:%s:%s", bucket, day))
	cents := payment.Tip.Mul(centsPerUnit).IntPart()
	if _, err := a.counters.IncrBy(ctx, key, cents); err != nil {
		return fmt.Errorf("allocate tip: %w", err)
	}
	return nil
}
