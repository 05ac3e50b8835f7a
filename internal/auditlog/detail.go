package auditlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// OperationDetail is the typed before/after snapshot attached to an admin
// operation log row. Each operation type has its own variant; the variant is
// serialized to the operation_detail column and recovered by DecodeDetail
// using the row's operation_type.
type OperationDetail interface {
	OperationType() enums.AdminOperationType
}

// RechargeDetail documents an admin-triggered balance credit.
type RechargeDetail struct {
	Amount        decimal.Decimal `json:"amount"`
	BeforeBalance decimal.Decimal `json:"before_balance"`
	AfterBalance  decimal.Decimal `json:"after_balance"`
}

func (RechargeDetail) OperationType() enums.AdminOperationType {
	return enums.AdminOperationTypeRecharge
}

// DeductDetail documents an admin-triggered balance debit.
type DeductDetail struct {
	Amount        decimal.Decimal `json:"amount"`
	BeforeBalance decimal.Decimal `json:"before_balance"`
	AfterBalance  decimal.Decimal `json:"after_balance"`
}

func (DeductDetail) OperationType() enums.AdminOperationType {
	return enums.AdminOperationTypeDeduct
}

// ChangeLevelDetail documents a tier change, including what the downgrade
// forfeited.
type ChangeLevelDetail struct {
	BeforeLevel             enums.UserLevel `json:"before_level"`
	AfterLevel              enums.UserLevel `json:"after_level"`
	BeforeVIPExpireDate     *time.Time      `json:"before_vip_expire_date,omitempty"`
	PartnerBalanceForfeited decimal.Decimal `json:"partner_balance_forfeited"`
}

func (ChangeLevelDetail) OperationType() enums.AdminOperationType {
	return enums.AdminOperationTypeChangeLevel
}

// ChangeStatusDetail documents an account enable/disable.
type ChangeStatusDetail struct {
	BeforeActive bool `json:"before_active"`
	AfterActive  bool `json:"after_active"`
}

func (ChangeStatusDetail) OperationType() enums.AdminOperationType {
	return enums.AdminOperationTypeChangeStatus
}

// ResetPasswordDetail documents a credential reset. The credential itself is
// never logged.
type ResetPasswordDetail struct {
	Forced bool `json:"forced"`
}

func (ResetPasswordDetail) OperationType() enums.AdminOperationType {
	return enums.AdminOperationTypeResetPassword
}

// EncodeDetail serializes a detail variant for storage.
func EncodeDetail(detail OperationDetail) (json.RawMessage, error) {
	if detail == nil {
		return nil, fmt.Errorf("operation detail is required")
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("encoding %s detail: %w", detail.OperationType(), err)
	}
	return raw, nil
}

// DecodeDetail recovers the typed variant for a stored row.
func DecodeDetail(opType enums.AdminOperationType, raw json.RawMessage) (OperationDetail, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("operation detail is empty")
	}
	var detail OperationDetail
	switch opType {
	case enums.AdminOperationTypeRecharge:
		detail = &RechargeDetail{}
	case enums.AdminOperationTypeDeduct:
		detail = &DeductDetail{}
	case enums.AdminOperationTypeChangeLevel:
		detail = &ChangeLevelDetail{}
	case enums.AdminOperationTypeChangeStatus:
		detail = &ChangeStatusDetail{}
	case enums.AdminOperationTypeResetPassword:
		detail = &ResetPasswordDetail{}
	default:
		return nil, fmt.Errorf("unknown operation type %q", opType)
	}
	if err := json.Unmarshal(raw, detail); err != nil {
		return nil, fmt.Errorf("decoding %s detail: %w", opType, err)
	}
	return detail, nil
}
