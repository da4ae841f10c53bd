package stations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapline/tapline-backend/pkg/db/models"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
)

// Repository exposes station configuration reads for routing and dispatch.
type Repository interface {
	ListActiveByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActiveByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Station, error) {
	var rows []models.Station
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	var station models.Station
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "station not found")
		}
		return nil, err
	}
	return &station, nil
}
