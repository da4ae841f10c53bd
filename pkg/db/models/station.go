package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Station is a prep display destination (kitchen, bar, expo). Routing reads
// it as static config; backups are only consulted at delivery time.
type Station struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID            uuid.UUID      `gorm:"column:venue_id;type:uuid;not null"`
	Name               string         `gorm:"column:name;not null"`
	Tags               pq.StringArray `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	IsExpo             bool           `gorm:"column:is_expo;not null;default:false"`
	ShowReferenceItems bool           `gorm:"column:show_reference_items;not null;default:false"`
	BackupStationID    *uuid.UUID     `gorm:"column:backup_station_id;type:uuid"`
	FailoverTimeout    int            `gorm:"column:failover_timeout_seconds;not null;default:60"`
	IsActive           bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
