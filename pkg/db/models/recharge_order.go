package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// RechargeOrder is a pending request to add funds, settled by an external
// payment confirmation or cancelled when its TTL lapses. Terminal rows are
// only ever touched again to append remark text for the audit trail.
type RechargeOrder struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNo       string              `gorm:"column:order_no;type:text;not null;uniqueIndex"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:decimal(20,2);not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status_enum;not null;default:'pending';index"`
	OrderExpireAt *time.Time          `gorm:"column:order_expire_at;index"`
	Remark        string              `gorm:"column:remark;type:text"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
