package auditlog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/pkg/db/models"
)

// Repository manages persistence for admin operation logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.AdminOperationLog) error
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AdminOperationLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, log *models.AdminOperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AdminOperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.AdminOperationLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
