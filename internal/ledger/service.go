package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// MutationInput captures one balance change request. Amount is signed in
// major units and its sign must match the canonical direction of Type.
type MutationInput struct {
	UserID     uuid.UUID
	Type       enums.LedgerEntryType
	Amount     decimal.Decimal
	Remark     string
	OrderID    *uuid.UUID
	TaskID     *string
	OperatorID *uuid.UUID
}

// Service is the only writer of balances and ledger entries. Every mutation
// path in the system converges here.
//
// Mutations are not deduplicated by TaskID: callers retrying a delivery must
// check HasTaskEntry first or they will double-apply.
type Service interface {
	ApplyMutation(ctx context.Context, input MutationInput) (*models.LedgerEntry, error)
	ApplyMutationInTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.LedgerEntry, error)
	Account(ctx context.Context, userID uuid.UUID) (*models.User, error)
	EntriesForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	EntryForOrder(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error)
	HasTaskEntry(ctx context.Context, taskID string, entryType enums.LedgerEntryType) (bool, error)
}

// ServiceParams configure the ledger service.
type ServiceParams struct {
	DB    db.TxRunner
	Repo  Repository
	Audit auditlog.Service
}

type service struct {
	db    db.TxRunner
	repo  Repository
	audit auditlog.Service
}

// NewService wires a ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit log service required")
	}
	return &service{db: params.DB, repo: params.Repo, audit: params.Audit}, nil
}

// ApplyMutation runs the mutation in its own transaction.
func (s *service) ApplyMutation(ctx context.Context, input MutationInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		created, txErr := s.ApplyMutationInTx(ctx, tx, input)
		if txErr != nil {
			return txErr
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplyMutationInTx runs the mutation inside the caller's transaction so it
// can be combined with other writes (order settlement, level changes)
// atomically.
func (s *service) ApplyMutationInTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.LedgerEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)

	user, err := repo.FindUserForUpdate(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	before := user.Balance
	after := before.Add(input.Amount)
	if after.IsNegative() {
		return nil, ErrInsufficientBalance
	}

	updates := map[string]any{"balance": after}
	switch input.Type {
	case enums.LedgerEntryTypeFreeze:
		updates["frozen_balance"] = user.FrozenBalance.Add(input.Amount.Neg())
	case enums.LedgerEntryTypeUnfreeze:
		frozen := user.FrozenBalance.Sub(input.Amount)
		if frozen.IsNegative() {
			return nil, ErrInsufficientFrozenBalance
		}
		updates["frozen_balance"] = frozen
	}

	if err := repo.UpdateUserBalances(ctx, input.UserID, updates); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		UserID:        input.UserID,
		Type:          input.Type,
		Amount:        input.Amount,
		BeforeBalance: before,
		AfterBalance:  after,
		Remark:        input.Remark,
		OrderID:       input.OrderID,
		TaskID:        input.TaskID,
		OperatorID:    input.OperatorID,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("creating ledger entry: %w", err)
	}

	if input.OperatorID != nil {
		if err := s.recordAdminOperation(ctx, tx, input, entry); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

func (s *service) recordAdminOperation(ctx context.Context, tx *gorm.DB, input MutationInput, entry *models.LedgerEntry) error {
	var detail auditlog.OperationDetail
	if input.Amount.IsPositive() {
		detail = auditlog.RechargeDetail{
			Amount:        entry.Amount,
			BeforeBalance: entry.BeforeBalance,
			AfterBalance:  entry.AfterBalance,
		}
	} else {
		detail = auditlog.DeductDetail{
			Amount:        entry.Amount,
			BeforeBalance: entry.BeforeBalance,
			AfterBalance:  entry.AfterBalance,
		}
	}
	_, err := s.audit.CreateLog(ctx, tx, auditlog.CreateLogInput{
		AdminUserID: *input.OperatorID,
		UserID:      input.UserID,
		Detail:      detail,
		Remark:      input.Remark,
	})
	if err != nil {
		return fmt.Errorf("recording admin operation: %w", err)
	}
	return nil
}

func validateInput(input MutationInput) error {
	if input.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if !input.Type.IsValid() {
		return fmt.Errorf("invalid ledger entry type %q", input.Type)
	}
	if input.Amount.IsZero() {
		return fmt.Errorf("amount must be non-zero")
	}
	if input.Type.IsDebit() && !input.Amount.IsNegative() {
		return fmt.Errorf("%s amount must be negative, got %s", input.Type, input.Amount)
	}
	if input.Type.IsCredit() && !input.Amount.IsPositive() {
		return fmt.Errorf("%s amount must be positive, got %s", input.Type, input.Amount)
	}
	return nil
}

func (s *service) Account(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.FindUser(ctx, userID)
}

func (s *service) EntriesForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

func (s *service) EntryForOrder(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.FindEntryByOrder(ctx, orderID, entryType)
}

func (s *service) HasTaskEntry(ctx context.Context, taskID string, entryType enums.LedgerEntryType) (bool, error) {
	if taskID == "" {
		return false, fmt.Errorf("task id is required")
	}
	return s.repo.HasEntryForTask(ctx, taskID, entryType)
}
