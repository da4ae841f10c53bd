package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/types"
)

// OrderItem is a line on an order. Name, unit price, routing tags and
// category class are snapshotted from the catalog at add time and never
// re-read afterward.
type OrderItem struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	MenuItemID    uuid.UUID           `gorm:"column:menu_item_id;type:uuid;not null"`
	Name          string              `gorm:"column:name;not null"`
	Quantity      int                 `gorm:"column:quantity;not null;default:1"`
	UnitPrice     decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Modifiers     types.Modifiers     `gorm:"column:modifiers;type:jsonb;serializer:json"`
	Seat          *int                `gorm:"column:seat"`
	Notes         *string             `gorm:"column:notes"`
	Course        *int                `gorm:"column:course"`
	Tags          pq.StringArray      `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	CategoryTags  pq.StringArray      `gorm:"column:category_tags;type:text[];not null;default:ARRAY[]::text[]"`
	CategoryClass enums.CategoryClass `gorm:"column:category_class;type:category_class_enum;not null;default:'other'"`
	IsReference   bool                `gorm:"column:is_reference;not null;default:false"`
	Status        enums.ItemStatus    `gorm:"column:status;type:item_status_enum;not null;default:'queued'"`
	Sent          bool                `gorm:"column:sent;not null;default:false"`
	SentAt        *time.Time          `gorm:"column:sent_at"`
	Voided        bool                `gorm:"column:voided;not null;default:false"`
	VoidReason    *string             `gorm:"column:void_reason"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal is the extended price for the line including modifier deltas.
func (i OrderItem) LineTotal() decimal.Decimal {
	unit := i.UnitPrice.Add(i.Modifiers.PriceDeltaTotal())
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
