package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// Repository reads and mutates the tier columns on user rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository wires a membership repository backed by gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := r.db.WithContext(ctx)
	// The sqlite test driver has no row locks; its single-writer model
	// covers the tests.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user models.User
	err := query.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %s: %w", userID, err)
	}
	return &user, nil
}

// FindExpiredBefore returns users on an expirable tier whose expiry passed
// before cutoff. Only canonical enum values are bound: level_code is the
// user_level_enum type and rejects anything outside its members.
func (r *repository) FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("level_code IN ?", enums.ExpirableLevelValues()).
		Where("vip_expire_date IS NOT NULL AND vip_expire_date < ?", cutoff).
		Order("vip_expire_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var result []models.User
	if err := query.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("finding expired memberships: %w", err)
	}
	return result, nil
}

func (r *repository) UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating user %s: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
