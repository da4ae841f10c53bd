package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/enums"
)

// Payment records a capture against an order. The (order_id,
// idempotency_key) pair is unique so a replayed request maps back to the
// original row instead of charging twice.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order_idem_key"`
	IdempotencyKey string              `gorm:"column:idempotency_key;not null;uniqueIndex:ux_payments_order_idem_key"`
	Method         enums.PaymentMethod `gorm:"column:method;type:payment_method_enum;not null"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Tip            decimal.Decimal     `gorm:"column:tip;type:numeric(12,2);not null;default:0"`
	Status         enums.PaymentStatus `gorm:"column:status;type:payment_status_enum;not null;default:'captured'"`
	TerminalID     *uuid.UUID          `gorm:"column:terminal_id;type:uuid"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
