package auditlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/pkg/db/models"
)

// SystemActorID marks log rows written by background jobs rather than a human
// administrator.
var SystemActorID = uuid.Nil

// CreateLogInput captures one administrative mutation to document.
type CreateLogInput struct {
	AdminUserID uuid.UUID
	UserID      uuid.UUID
	Detail      OperationDetail
	Remark      string
}

// Service appends admin operation log rows. Rows are always written inside
// the caller's transaction so a rollback of the documented mutation also
// rolls back the log entry.
type Service interface {
	CreateLog(ctx context.Context, tx *gorm.DB, input CreateLogInput) (*models.AdminOperationLog, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AdminOperationLog, error)
}

type service struct {
	repo Repository
}

// NewService wires an audit log service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit log repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateLog(ctx context.Context, tx *gorm.DB, input CreateLogInput) (*models.AdminOperationLog, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("target user id is required")
	}
	if input.Detail == nil {
		return nil, fmt.Errorf("operation detail is required")
	}

	raw, err := EncodeDetail(input.Detail)
	if err != nil {
		return nil, err
	}

	log := &models.AdminOperationLog{
		AdminUserID:     input.AdminUserID,
		UserID:          input.UserID,
		OperationType:   input.Detail.OperationType(),
		OperationDetail: raw,
		Remark:          input.Remark,
	}

	if err := s.repo.WithTx(tx).Create(ctx, log); err != nil {
		return nil, fmt.Errorf("creating operation log: %w", err)
	}
	return log, nil
}

func (s *service) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AdminOperationLog, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}
