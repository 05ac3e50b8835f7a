package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// LedgerEntry records one immutable balance change. Rows are created inside
// the same transaction as the balance mutation they document and are never
// updated or deleted afterwards.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:decimal(20,2);not null"`
	BeforeBalance decimal.Decimal       `gorm:"column:before_balance;type:decimal(20,2);not null"`
	AfterBalance  decimal.Decimal       `gorm:"column:after_balance;type:decimal(20,2);not null"`
	Remark        string                `gorm:"column:remark;type:text"`
	OrderID       *uuid.UUID            `gorm:"column:order_id;type:uuid;index"`
	TaskID        *string               `gorm:"column:task_id;type:text;index"`
	OperatorID    *uuid.UUID            `gorm:"column:operator_id;type:uuid"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
