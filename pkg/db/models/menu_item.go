package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/types"
)

// MenuItem is the catalog entry orders snapshot from. This core treats it
// as read-only; menu management lives elsewhere.
type MenuItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID        uuid.UUID           `gorm:"column:venue_id;type:uuid;not null"`
	Name           string              `gorm:"column:name;not null"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Category       string              `gorm:"column:category;not null"`
	CategoryTags   pq.StringArray      `gorm:"column:category_tags;type:text[];not null;default:ARRAY[]::text[]"`
	CategoryClass  enums.CategoryClass `gorm:"column:category_class;type:category_class_enum;not null;default:'other'"`
	RoutingTags    pq.StringArray      `gorm:"column:routing_tags;type:text[];not null;default:ARRAY[]::text[]"`
	ModifierGroups *types.JSONMap      `gorm:"column:modifier_groups;type:jsonb;serializer:json"`
	IsReference    bool                `gorm:"column:is_reference;not null;default:false"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
