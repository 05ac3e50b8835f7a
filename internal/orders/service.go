package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/paysign"
)

// ExpiredRemark is appended to orders the sweeper cancels. The marker is kept
// verbatim from the upstream payment gateway integration so downstream
// reporting keeps matching on it.
const ExpiredRemark = "订单已过期"

// Callback parameter names used by the payment gateway.
const (
	callbackFieldOrderNo = "order_no"
	callbackFieldAmount  = "amount"
)

// CreateOrderInput captures a new recharge request.
type CreateOrderInput struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	Remark string
}

// Service owns the recharge order lifecycle: creation, gateway settlement,
// cancellation, and expiry sweeping.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.RechargeOrder, error)
	GetOrder(ctx context.Context, orderNo string) (*models.RechargeOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.RechargeOrder, error)
	ConfirmPayment(ctx context.Context, params map[string]string) (*models.RechargeOrder, error)
	CancelOrder(ctx context.Context, orderNo, remark string) (*models.RechargeOrder, error)
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error)
}

// ServiceParams configure the order service.
type ServiceParams struct {
	DB         db.TxRunner
	Repo       Repository
	Ledger     ledger.Service
	Numbers    *NumberGenerator
	SignSecret string
	OrderTTL   time.Duration
	Logger     *logger.Logger
}

type service struct {
	db         db.TxRunner
	repo       Repository
	ledger     ledger.Service
	numbers    *NumberGenerator
	signSecret string
	orderTTL   time.Duration
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires an order service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("number generator required")
	}
	if params.SignSecret == "" {
		return nil, fmt.Errorf("payment sign secret required")
	}
	if params.OrderTTL <= 0 {
		return nil, fmt.Errorf("order ttl must be positive")
	}
	return &service{
		db:         params.DB,
		repo:       params.Repo,
		ledger:     params.Ledger,
		numbers:    params.Numbers,
		signSecret: params.SignSecret,
		orderTTL:   params.OrderTTL,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.RechargeOrder, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("order amount must be positive, got %s", input.Amount)
	}

	expireAt := s.now().UTC().Add(s.orderTTL)
	order := &models.RechargeOrder{
		OrderNo:       s.numbers.Next(ctx),
		UserID:        input.UserID,
		Amount:        input.Amount,
		PaymentStatus: enums.PaymentStatusPending,
		OrderExpireAt: &expireAt,
		Remark:        input.Remark,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderNo string) (*models.RechargeOrder, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("order number is required")
	}
	return s.repo.FindByOrderNo(ctx, orderNo)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.RechargeOrder, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

// ConfirmPayment settles an order from a gateway callback. The callback is
// replayed by the gateway until acknowledged, so a second delivery for an
// already paid order succeeds without crediting again.
func (s *service) ConfirmPayment(ctx context.Context, params map[string]string) (*models.RechargeOrder, error) {
	signature := params[paysign.SignField]
	if signature == "" || !paysign.Verify(params, s.signSecret, signature) {
		return nil, ErrInvalidSignature
	}

	orderNo := params[callbackFieldOrderNo]
	if orderNo == "" {
		return nil, fmt.Errorf("callback missing %s", callbackFieldOrderNo)
	}
	amount, err := decimal.NewFromString(params[callbackFieldAmount])
	if err != nil {
		return nil, fmt.Errorf("callback amount %q: %w", params[callbackFieldAmount], err)
	}

	var settled *models.RechargeOrder
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, txErr := repo.FindByOrderNoForUpdate(ctx, orderNo)
		if txErr != nil {
			return txErr
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			settled = order
			return nil
		}
		if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusPaid) {
			return ErrOrderAlreadyTerminal
		}
		if !amount.Equal(order.Amount) {
			return ErrAmountMismatch
		}

		paidAt := s.now().UTC()
		txErr = repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        paidAt,
		})
		if txErr != nil {
			return txErr
		}

		_, txErr = s.ledger.ApplyMutationInTx(ctx, tx, ledger.MutationInput{
			UserID:  order.UserID,
			Type:    enums.LedgerEntryTypeRecharge,
			Amount:  order.Amount,
			Remark:  fmt.Sprintf("recharge order %s", order.OrderNo),
			OrderID: &order.ID,
		})
		if txErr != nil {
			return txErr
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &paidAt
		settled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_no": settled.OrderNo,
			"user_id":  settled.UserID.String(),
		})
		s.logg.Info(logCtx, "recharge order settled")
	}
	return settled, nil
}

// CancelOrder moves a pending order to cancelled. Cancelling an already
// cancelled order is a no-op; cancelling a paid order is refused.
func (s *service) CancelOrder(ctx context.Context, orderNo, remark string) (*models.RechargeOrder, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("order number is required")
	}

	var cancelled *models.RechargeOrder
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, txErr := repo.FindByOrderNoForUpdate(ctx, orderNo)
		if txErr != nil {
			return txErr
		}
		if order.PaymentStatus == enums.PaymentStatusCancelled {
			cancelled = order
			return nil
		}
		if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusCancelled) {
			return ErrOrderAlreadyTerminal
		}

		newRemark := appendRemark(order.Remark, remark)
		txErr = repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusCancelled,
			"remark":         newRemark,
		})
		if txErr != nil {
			return txErr
		}

		order.PaymentStatus = enums.PaymentStatusCancelled
		order.Remark = newRemark
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ExpireStaleOrders cancels every pending order whose TTL lapsed before
// cutoff. The batch commits atomically so a retry after a mid-batch failure
// reprocesses the full set. The cancellation is guarded on payment_status
// staying pending: an order settled between the scan and the write is
// skipped, never pulled back out of paid.
func (s *service) ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error) {
	var expired int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stale, txErr := repo.FindPendingExpiredBefore(ctx, cutoff, 0)
		if txErr != nil {
			return txErr
		}
		for _, order := range stale {
			cancelled, txErr := repo.UpdateOrderIfPending(ctx, order.ID, map[string]any{
				"payment_status": enums.PaymentStatusCancelled,
				"remark":         appendRemark(order.Remark, ExpiredRemark),
			})
			if txErr != nil {
				return txErr
			}
			if cancelled {
				expired++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func appendRemark(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}
