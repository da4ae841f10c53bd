package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/outbox"
	"github.com/tapline/tapline-backend/pkg/outbox/payloads"
)

const (
	defaultStaleDraftAge = 12 * time.Hour
	staleDraftReason     = "abandoned empty draft"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type staleDraftRepo interface {
	FindEmptyDraftsBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	// VoidDraftTx writes the void only if the order is still a draft at
	// the given version; false means a live mutation won the race.
	VoidDraftTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, version int, updates map[string]any) (bool, error)
}

// StaleDraftJobParams configure the draft cleanup job.
type StaleDraftJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository staleDraftRepo
	Outbox     outboxPublisher
	MaxAge     time.Duration
}

// NewStaleDraftJob voids drafts that sat empty past the age threshold,
// releasing their table claims. Drafts with items are left alone; a
// server is still working those.
func NewStaleDraftJob(params StaleDraftJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleDraftAge
	}
	return &staleDraftJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type staleDraftJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   staleDraftRepo
	outbox outboxPublisher
	maxAge time.Duration
	now    func() time.Time
}

func (j *staleDraftJob) Name() string { return "stale-draft-cleanup" }

func (j *staleDraftJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	drafts, err := j.repo.FindEmptyDraftsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale drafts: %w", err)
	}
	if len(drafts) == 0 {
		return nil
	}

	var errs error
	voided := 0
	skipped := 0
	for _, draft := range drafts {
		ok, err := j.voidDraft(ctx, draft)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("void draft %s: %w", draft.ID, err))
			continue
		}
		if !ok {
			skipped++
			continue
		}
		voided++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(drafts),
		"voided":  voided,
		"skipped": skipped,
	})
	j.logg.Info(logCtx, "stale draft cleanup complete")
	return errs
}

// voidDraft voids one draft from the scan snapshot. The write is
// guarded on the snapshot's status and version so a draft a terminal
// touched between the scan and this transaction is skipped, never
// overwritten.
func (j *staleDraftJob) voidDraft(ctx context.Context, draft models.Order) (bool, error) {
	now := j.now().UTC()
	version := draft.Version + 1
	voided := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.repo.VoidDraftTx(ctx, tx, draft.ID, draft.Version, map[string]any{
			"status":      enums.OrderStatusVoided,
			"version":     version,
			"voided_at":   now,
			"void_reason": staleDraftReason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		voided = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderVoided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   draft.ID,
			Version:       1,
			Data: payloads.OrderVoidedEvent{
				OrderID:  draft.ID,
				VenueID:  draft.VenueID,
				Scope:    payloads.VoidScopeOrder,
				Reason:   staleDraftReason,
				Version:  version,
				VoidedAt: now,
			},
		})
	})
	return voided, err
}
