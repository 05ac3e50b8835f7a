package enums

import "fmt"

// AdminOperationType maps to the admin_operation_type_enum enum in Postgres.
type AdminOperationType string

const (
	AdminOperationTypeRecharge      AdminOperationType = "recharge"
	AdminOperationTypeDeduct        AdminOperationType = "deduct"
	AdminOperationTypeChangeLevel   AdminOperationType = "change_level"
	AdminOperationTypeChangeStatus  AdminOperationType = "change_status"
	AdminOperationTypeResetPassword AdminOperationType = "reset_password"
)

var validAdminOperationTypes = []AdminOperationType{
	AdminOperationTypeRecharge,
	AdminOperationTypeDeduct,
	AdminOperationTypeChangeLevel,
	AdminOperationTypeChangeStatus,
	AdminOperationTypeResetPassword,
}

// IsValid reports whether the value matches the canonical operation enum.
func (t AdminOperationType) IsValid() bool {
	for _, candidate := range validAdminOperationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAdminOperationType converts raw input into AdminOperationType.
func ParseAdminOperationType(value string) (AdminOperationType, error) {
	for _, candidate := range validAdminOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin operation type %q", value)
}
