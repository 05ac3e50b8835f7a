package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeRecharge    LedgerEntryType = "recharge"
	LedgerEntryTypeConsume     LedgerEntryType = "consume"
	LedgerEntryTypeRefund      LedgerEntryType = "refund"
	LedgerEntryTypeReward      LedgerEntryType = "reward"
	LedgerEntryTypeFreeze      LedgerEntryType = "freeze"
	LedgerEntryTypeUnfreeze    LedgerEntryType = "unfreeze"
	LedgerEntryTypeTransferIn  LedgerEntryType = "transfer_in"
	LedgerEntryTypeTransferOut LedgerEntryType = "transfer_out"
	LedgerEntryTypeCommission  LedgerEntryType = "commission"
	LedgerEntryTypeAdjustment  LedgerEntryType = "adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeRecharge,
	LedgerEntryTypeConsume,
	LedgerEntryTypeRefund,
	LedgerEntryTypeReward,
	LedgerEntryTypeFreeze,
	LedgerEntryTypeUnfreeze,
	LedgerEntryTypeTransferIn,
	LedgerEntryTypeTransferOut,
	LedgerEntryTypeCommission,
	LedgerEntryTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether the type spends from the main balance and therefore
// must not drive it negative.
func (t LedgerEntryType) IsDebit() bool {
	switch t {
	case LedgerEntryTypeConsume, LedgerEntryTypeFreeze, LedgerEntryTypeTransferOut:
		return true
	}
	return false
}

// IsCredit reports whether the type adds to the main balance.
func (t LedgerEntryType) IsCredit() bool {
	switch t {
	case LedgerEntryTypeRecharge, LedgerEntryTypeRefund, LedgerEntryTypeReward,
		LedgerEntryTypeUnfreeze, LedgerEntryTypeTransferIn, LedgerEntryTypeCommission:
		return true
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
