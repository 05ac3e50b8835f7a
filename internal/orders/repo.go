package orders

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

// Repository persists recharge orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.RechargeOrder) error
	FindByOrderNo(ctx context.Context, orderNo string) (*models.RechargeOrder, error)
	FindByOrderNoForUpdate(ctx context.Context, orderNo string) (*models.RechargeOrder, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.RechargeOrder, error)
	FindPendingExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.RechargeOrder, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateOrderIfPending(ctx context.Context, orderID uuid.UUID, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository wires an order repository backed by gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.RechargeOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("creating recharge order: %w", err)
	}
	return nil
}

func (r *repository) FindByOrderNo(ctx context.Context, orderNo string) (*models.RechargeOrder, error) {
	return r.findByOrderNo(ctx, orderNo, false)
}

func (r *repository) FindByOrderNoForUpdate(ctx context.Context, orderNo string) (*models.RechargeOrder, error) {
	return r.findByOrderNo(ctx, orderNo, true)
}

func (r *repository) findByOrderNo(ctx context.Context, orderNo string, lock bool) (*models.RechargeOrder, error) {
	query := r.db.WithContext(ctx)
	// The sqlite test driver has no row locks; its single-writer model
	// covers the tests.
	if lock && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.RechargeOrder
	err := query.Where("order_no = ?", orderNo).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding order %s: %w", orderNo, err)
	}
	return &order, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.RechargeOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	var result []models.RechargeOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %s: %w", userID, err)
	}
	return result, nil
}

func (r *repository) FindPendingExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.RechargeOrder, error) {
	query := r.db.WithContext(ctx).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("order_expire_at IS NOT NULL AND order_expire_at < ?", cutoff).
		Order("order_expire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var result []models.RechargeOrder
	if err := query.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("finding expired pending orders: %w", err)
	}
	return result, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.RechargeOrder{}).
		Where("id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating order %s: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateOrderIfPending applies updates only while the order is still pending.
// It reports false when the row was settled or cancelled in the meantime, so
// a sweep racing a payment callback never re-mutates a terminal order.
func (r *repository) UpdateOrderIfPending(ctx context.Context, orderID uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RechargeOrder{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("updating pending order %s: %w", orderID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
