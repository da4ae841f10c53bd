package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/enums"
)

// Order is the transactional aggregate root. Every mutation bumps Version
// by exactly one inside the same transaction that commits the change.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID        uuid.UUID         `gorm:"column:venue_id;type:uuid;not null"`
	TableRef       *string           `gorm:"column:table_ref"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'draft'"`
	Version        int               `gorm:"column:version;not null;default:1"`
	Subtotal       decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	TaxTotal       decimal.Decimal   `gorm:"column:tax_total;type:numeric(12,2);not null;default:0"`
	TipTotal       decimal.Decimal   `gorm:"column:tip_total;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	TerminalID     *uuid.UUID        `gorm:"column:terminal_id;type:uuid"`
	ParentOrderID  *uuid.UUID        `gorm:"column:parent_order_id;type:uuid"`
	SentAt         *time.Time        `gorm:"column:sent_at"`
	PaidAt         *time.Time        `gorm:"column:paid_at"`
	VoidedAt       *time.Time        `gorm:"column:voided_at"`
	VoidReason     *string           `gorm:"column:void_reason"`
	VoidApproverID *uuid.UUID        `gorm:"column:void_approver_id;type:uuid"`
	ReopenedAt     *time.Time        `gorm:"column:reopened_at"`
	ReopenActorID  *uuid.UUID        `gorm:"column:reopen_actor_id;type:uuid"`
	ReopenReason   *string           `gorm:"column:reopen_reason"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments       []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
