package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// AdminOperationLog is the append-only record of an administrative mutation.
// OperationDetail stores the typed before/after snapshot serialized to JSON.
type AdminOperationLog struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AdminUserID     uuid.UUID                `gorm:"column:admin_user_id;type:uuid;not null;index"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	OperationType   enums.AdminOperationType `gorm:"column:operation_type;type:admin_operation_type_enum;not null"`
	OperationDetail json.RawMessage          `gorm:"column:operation_detail;type:jsonb"`
	Remark          string                   `gorm:"column:remark;type:text"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}
